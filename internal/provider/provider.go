// Package provider abstracts the Git-hosting provider capabilities needed for
// webhook management. Implementations report quota exhaustion via
// ErrRateLimited so callers can tell "no definitive answer" apart from a
// negative answer.
package provider

import (
	"context"
	"errors"

	"hooksync/internal/platform/models"
)

// ErrRateLimited signals the provider refused the request because the
// caller's quota is exhausted. It is never a negative answer to the question
// asked and must never trigger destructive bookkeeping.
var ErrRateLimited = errors.New("provider rate limited")

type CreateWebhookParams struct {
	Name          string
	URL           string
	Secret        string
	CorrelationID string
	Scopes        []string
}

type Client interface {
	// ResourceExists reports whether the project or group is still visible
	// to the configured credential.
	ResourceExists(ctx context.Context, res models.Resource) (bool, error)

	// HasAdminAccess reports whether the configured credential retains
	// admin-level rights on the resource.
	HasAdminAccess(ctx context.Context, res models.Resource) (bool, error)

	// WebhookExistsAtURL reports whether a hook registered at url is already
	// present on the resource.
	WebhookExistsAtURL(ctx context.Context, res models.Resource, url string) (bool, error)

	// CreateWebhook installs a hook and returns its remote id. A zero id
	// with a nil error means the provider accepted the call but returned no
	// hook; callers decide how to surface that.
	CreateWebhook(ctx context.Context, res models.Resource, params CreateWebhookParams) (int64, error)
}
