package models

import (
	"errors"
	"fmt"
)

var ErrInvalidResource = errors.New("resource must identify exactly one project or group")

type ResourceType string

const (
	ResourceTypeProject ResourceType = "project"
	ResourceTypeGroup   ResourceType = "group"
)

// Resource identifies a single GitLab project or group under webhook
// management. Use ProjectResource/GroupResource so the one-of-two identity
// holds by construction.
type Resource struct {
	Type ResourceType
	ID   int64
}

func ProjectResource(id int64) Resource {
	return Resource{Type: ResourceTypeProject, ID: id}
}

func GroupResource(id int64) Resource {
	return Resource{Type: ResourceTypeGroup, ID: id}
}

func ParseResource(typ string, id int64) (Resource, error) {
	switch ResourceType(typ) {
	case ResourceTypeProject:
		return ProjectResource(id), nil
	case ResourceTypeGroup:
		return GroupResource(id), nil
	default:
		return Resource{}, fmt.Errorf("%w: unknown resource type %q", ErrInvalidResource, typ)
	}
}

func (r Resource) Validate() error {
	if r.Type != ResourceTypeProject && r.Type != ResourceTypeGroup {
		return ErrInvalidResource
	}
	if r.ID <= 0 {
		return ErrInvalidResource
	}
	return nil
}

func (r Resource) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}
