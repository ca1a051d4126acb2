package webhooks

import (
	"context"

	"hooksync/internal/platform/models"
)

// RecordStore is the persistence surface the engine needs. Implemented by
// *repositories.WebhookRepository in production and by fakes in tests.
type RecordStore interface {
	Upsert(ctx context.Context, res models.Resource, owningUserID string) error
	Get(ctx context.Context, res models.Resource) (*models.WebhookRecord, error)
	GetMany(ctx context.Context, resources []models.Resource) ([]*models.WebhookRecord, error)
	Update(ctx context.Context, res models.Resource, upd models.WebhookUpdate) error
	Delete(ctx context.Context, res models.Resource) error
	ResetForReinstall(ctx context.Context, res models.Resource, actingUserID string) error
	ListPending(ctx context.Context, limit int) ([]*models.WebhookRecord, error)
	TouchLastSynced(ctx context.Context, res models.Resource) error
}
