package webhooks

import (
	"context"
	"fmt"

	"hooksync/internal/platform/models"
	"hooksync/internal/platform/repositories"
	"hooksync/internal/provider"
)

type fakeProvider struct {
	resourceExistsFn     func(ctx context.Context, res models.Resource) (bool, error)
	hasAdminAccessFn     func(ctx context.Context, res models.Resource) (bool, error)
	webhookExistsAtURLFn func(ctx context.Context, res models.Resource, url string) (bool, error)
	createWebhookFn      func(ctx context.Context, res models.Resource, params provider.CreateWebhookParams) (int64, error)
}

func (f *fakeProvider) ResourceExists(ctx context.Context, res models.Resource) (bool, error) {
	if f.resourceExistsFn != nil {
		return f.resourceExistsFn(ctx, res)
	}
	return true, nil
}

func (f *fakeProvider) HasAdminAccess(ctx context.Context, res models.Resource) (bool, error) {
	if f.hasAdminAccessFn != nil {
		return f.hasAdminAccessFn(ctx, res)
	}
	return true, nil
}

func (f *fakeProvider) WebhookExistsAtURL(ctx context.Context, res models.Resource, url string) (bool, error) {
	if f.webhookExistsAtURLFn != nil {
		return f.webhookExistsAtURLFn(ctx, res, url)
	}
	return false, nil
}

func (f *fakeProvider) CreateWebhook(ctx context.Context, res models.Resource, params provider.CreateWebhookParams) (int64, error) {
	if f.createWebhookFn != nil {
		return f.createWebhookFn(ctx, res, params)
	}
	return 1, nil
}

// fakeStore is an in-memory RecordStore that tracks every mutation for
// assertions.
type fakeStore struct {
	records map[models.Resource]*models.WebhookRecord
	deleted []models.Resource
	updates []models.WebhookUpdate
	touched []models.Resource
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[models.Resource]*models.WebhookRecord)}
}

func (s *fakeStore) seed(res models.Resource, rec *models.WebhookRecord) *models.WebhookRecord {
	if res.Type == models.ResourceTypeProject {
		rec.ProjectID = &res.ID
	} else {
		rec.GroupID = &res.ID
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("wh_%s_%d", res.Type, res.ID)
	}
	s.records[res] = rec
	return rec
}

func (s *fakeStore) Upsert(ctx context.Context, res models.Resource, owningUserID string) error {
	if err := res.Validate(); err != nil {
		return err
	}
	if _, ok := s.records[res]; ok {
		return nil
	}
	s.seed(res, &models.WebhookRecord{OwningUserID: owningUserID})
	return nil
}

func (s *fakeStore) Get(ctx context.Context, res models.Resource) (*models.WebhookRecord, error) {
	rec, ok := s.records[res]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *fakeStore) GetMany(ctx context.Context, resources []models.Resource) ([]*models.WebhookRecord, error) {
	var records []*models.WebhookRecord
	for _, res := range resources {
		if rec, ok := s.records[res]; ok {
			copied := *rec
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (s *fakeStore) Update(ctx context.Context, res models.Resource, upd models.WebhookUpdate) error {
	rec, ok := s.records[res]
	if !ok {
		return repositories.ErrNotFound
	}
	s.updates = append(s.updates, upd)
	if upd.WebhookExists != nil {
		rec.WebhookExists = *upd.WebhookExists
	}
	if upd.WebhookSecret != nil {
		rec.WebhookSecret = *upd.WebhookSecret
	}
	if upd.WebhookUUID != nil {
		rec.WebhookUUID = *upd.WebhookUUID
	}
	if upd.WebhookURL != nil {
		rec.WebhookURL = *upd.WebhookURL
	}
	if upd.Scopes != nil {
		rec.Scopes = upd.Scopes
	}
	if upd.LastError != nil {
		rec.LastError = *upd.LastError
	}
	if upd.FailureCount != nil {
		rec.FailureCount = *upd.FailureCount
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, res models.Resource) error {
	delete(s.records, res)
	s.deleted = append(s.deleted, res)
	return nil
}

func (s *fakeStore) ResetForReinstall(ctx context.Context, res models.Resource, actingUserID string) error {
	rec, ok := s.records[res]
	if !ok {
		return nil
	}
	rec.WebhookExists = false
	rec.WebhookUUID = ""
	rec.OwningUserID = actingUserID
	return nil
}

func (s *fakeStore) ListPending(ctx context.Context, limit int) ([]*models.WebhookRecord, error) {
	var records []*models.WebhookRecord
	for _, rec := range s.records {
		if !rec.WebhookExists && len(records) < limit {
			copied := *rec
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (s *fakeStore) TouchLastSynced(ctx context.Context, res models.Resource) error {
	s.touched = append(s.touched, res)
	return nil
}
