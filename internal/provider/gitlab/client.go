package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"hooksync/internal/platform/config"
	"hooksync/internal/platform/models"
	"hooksync/internal/provider"
)

// Client implements provider.Client against the GitLab REST API. Maintainer
// access counts as admin on projects; groups require Owner.
type Client struct {
	gl *gitlab.Client
}

func New(cfg config.GitLabConfig) (*Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/") + "/api/v4"
	gl, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, err
	}
	return &Client{gl: gl}, nil
}

func (c *Client) ResourceExists(ctx context.Context, res models.Resource) (bool, error) {
	if err := res.Validate(); err != nil {
		return false, err
	}

	var resp *gitlab.Response
	var err error
	switch res.Type {
	case models.ResourceTypeProject:
		_, resp, err = c.gl.Projects.GetProject(res.ID, nil, gitlab.WithContext(ctx))
	case models.ResourceTypeGroup:
		_, resp, err = c.gl.Groups.GetGroup(res.ID, nil, gitlab.WithContext(ctx))
	}

	if err == nil {
		return true, nil
	}
	if isRateLimited(resp, err) {
		return false, provider.ErrRateLimited
	}
	if isNotFound(resp, err) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", res, err)
}

func (c *Client) HasAdminAccess(ctx context.Context, res models.Resource) (bool, error) {
	if err := res.Validate(); err != nil {
		return false, err
	}

	switch res.Type {
	case models.ResourceTypeProject:
		return c.projectAdminAccess(ctx, res)
	default:
		return c.groupAdminAccess(ctx, res)
	}
}

func (c *Client) projectAdminAccess(ctx context.Context, res models.Resource) (bool, error) {
	p, resp, err := c.gl.Projects.GetProject(res.ID, nil, gitlab.WithContext(ctx))
	if err != nil {
		if isRateLimited(resp, err) {
			return false, provider.ErrRateLimited
		}
		if isNotFound(resp, err) {
			return false, nil
		}
		return false, fmt.Errorf("checking access on %s: %w", res, err)
	}

	if p.Permissions == nil {
		return false, nil
	}
	if pa := p.Permissions.ProjectAccess; pa != nil && pa.AccessLevel >= gitlab.MaintainerPermissions {
		return true, nil
	}
	if ga := p.Permissions.GroupAccess; ga != nil && ga.AccessLevel >= gitlab.MaintainerPermissions {
		return true, nil
	}
	return false, nil
}

func (c *Client) groupAdminAccess(ctx context.Context, res models.Resource) (bool, error) {
	user, resp, err := c.gl.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		if isRateLimited(resp, err) {
			return false, provider.ErrRateLimited
		}
		return false, fmt.Errorf("resolving current user: %w", err)
	}

	member, resp, err := c.gl.GroupMembers.GetGroupMember(res.ID, user.ID, gitlab.WithContext(ctx))
	if err != nil {
		if isRateLimited(resp, err) {
			return false, provider.ErrRateLimited
		}
		if isNotFound(resp, err) {
			return false, nil
		}
		return false, fmt.Errorf("checking membership on %s: %w", res, err)
	}
	return member.AccessLevel >= gitlab.OwnerPermissions, nil
}

func (c *Client) WebhookExistsAtURL(ctx context.Context, res models.Resource, url string) (bool, error) {
	if err := res.Validate(); err != nil {
		return false, err
	}

	switch res.Type {
	case models.ResourceTypeProject:
		hooks, resp, err := c.gl.Projects.ListProjectHooks(res.ID,
			&gitlab.ListProjectHooksOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}, gitlab.WithContext(ctx))
		if err != nil {
			if isRateLimited(resp, err) {
				return false, provider.ErrRateLimited
			}
			return false, fmt.Errorf("listing hooks on %s: %w", res, err)
		}
		for _, h := range hooks {
			if h.URL == url {
				return true, nil
			}
		}
		return false, nil
	default:
		hooks, resp, err := c.gl.Groups.ListGroupHooks(res.ID,
			&gitlab.ListGroupHooksOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}, gitlab.WithContext(ctx))
		if err != nil {
			if isRateLimited(resp, err) {
				return false, provider.ErrRateLimited
			}
			return false, fmt.Errorf("listing hooks on %s: %w", res, err)
		}
		for _, h := range hooks {
			if h.URL == url {
				return true, nil
			}
		}
		return false, nil
	}
}

func (c *Client) CreateWebhook(ctx context.Context, res models.Resource, params provider.CreateWebhookParams) (int64, error) {
	if err := res.Validate(); err != nil {
		return 0, err
	}

	// The callback URL never varies per resource, so the correlation id
	// lives in the hook description where operators can also see it.
	description := "correlation=" + params.CorrelationID
	scope := func(name string) *bool {
		for _, s := range params.Scopes {
			if s == name {
				return gitlab.Ptr(true)
			}
		}
		return nil
	}

	switch res.Type {
	case models.ResourceTypeProject:
		hook, resp, err := c.gl.Projects.AddProjectHook(res.ID, &gitlab.AddProjectHookOptions{
			URL:                      gitlab.Ptr(params.URL),
			Name:                     gitlab.Ptr(params.Name),
			Description:              gitlab.Ptr(description),
			Token:                    gitlab.Ptr(params.Secret),
			EnableSSLVerification:    gitlab.Ptr(true),
			NoteEvents:               scope("note_events"),
			MergeRequestsEvents:      scope("merge_requests_events"),
			ConfidentialIssuesEvents: scope("confidential_issues_events"),
			IssuesEvents:             scope("issues_events"),
			ConfidentialNoteEvents:   scope("confidential_note_events"),
			JobEvents:                scope("job_events"),
			PipelineEvents:           scope("pipeline_events"),
		}, gitlab.WithContext(ctx))
		if err != nil {
			if isRateLimited(resp, err) {
				return 0, provider.ErrRateLimited
			}
			return 0, fmt.Errorf("creating hook on %s: %w", res, err)
		}
		if hook == nil {
			return 0, nil
		}
		return int64(hook.ID), nil
	default:
		hook, resp, err := c.gl.Groups.AddGroupHook(res.ID, &gitlab.AddGroupHookOptions{
			URL:                      gitlab.Ptr(params.URL),
			Name:                     gitlab.Ptr(params.Name),
			Description:              gitlab.Ptr(description),
			Token:                    gitlab.Ptr(params.Secret),
			EnableSSLVerification:    gitlab.Ptr(true),
			NoteEvents:               scope("note_events"),
			MergeRequestsEvents:      scope("merge_requests_events"),
			ConfidentialIssuesEvents: scope("confidential_issues_events"),
			IssuesEvents:             scope("issues_events"),
			ConfidentialNoteEvents:   scope("confidential_note_events"),
			JobEvents:                scope("job_events"),
			PipelineEvents:           scope("pipeline_events"),
		}, gitlab.WithContext(ctx))
		if err != nil {
			if isRateLimited(resp, err) {
				return 0, provider.ErrRateLimited
			}
			return 0, fmt.Errorf("creating hook on %s: %w", res, err)
		}
		if hook == nil {
			return 0, nil
		}
		return int64(hook.ID), nil
	}
}

func isRateLimited(resp *gitlab.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func isNotFound(resp *gitlab.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == http.StatusNotFound
	}
	return false
}
