package models

// WebhookRecord is one row per managed Git resource. Exactly one of
// ProjectID/GroupID is set; the repository enforces this at every read and
// write boundary.
type WebhookRecord struct {
	ID            string   `json:"id"`
	ProjectID     *int64   `json:"project_id,omitempty"`
	GroupID       *int64   `json:"group_id,omitempty"`
	OwningUserID  string   `json:"owning_user_id"`
	WebhookExists bool     `json:"webhook_exists"`
	WebhookSecret string   `json:"-"`
	WebhookUUID   string   `json:"webhook_uuid,omitempty"`
	WebhookURL    string   `json:"webhook_url,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
	LastError     string   `json:"last_error,omitempty"`
	FailureCount  int      `json:"failure_count"`
	LastSyncedAt  int64    `json:"last_synced_at"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
}

// Resource reconstructs the tagged identity from the two nullable columns.
func (w *WebhookRecord) Resource() (Resource, error) {
	switch {
	case w.ProjectID != nil && w.GroupID == nil:
		return ProjectResource(*w.ProjectID), nil
	case w.GroupID != nil && w.ProjectID == nil:
		return GroupResource(*w.GroupID), nil
	default:
		return Resource{}, ErrInvalidResource
	}
}

// WebhookUpdate is a field-subset update; nil fields are left untouched.
type WebhookUpdate struct {
	WebhookExists *bool
	WebhookSecret *string
	WebhookUUID   *string
	WebhookURL    *string
	Scopes        []string
	LastError     *string
	FailureCount  *int
}
