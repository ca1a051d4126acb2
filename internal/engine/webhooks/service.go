package webhooks

import (
	"context"
	"errors"
	"fmt"

	"hooksync/internal/platform/models"
	"hooksync/internal/platform/repositories"
)

// ReinstallResult is what the interactive caller gets back for immediate
// display. Exactly one of the non-proceed outcomes or the install status
// explains what happened.
type ReinstallResult struct {
	Outcome       Outcome       `json:"-"`
	InstallStatus InstallStatus `json:"-"`
	Installed     bool          `json:"installed"`
	RemoteID      int64         `json:"remote_id,omitempty"`
	Detail        string        `json:"detail"`
}

type StatusItem struct {
	Resource      models.Resource `json:"-"`
	ResourceType  string          `json:"resource_type"`
	ResourceID    int64           `json:"resource_id"`
	Tracked       bool            `json:"tracked"`
	WebhookExists bool            `json:"webhook_exists"`
	LastSyncedAt  int64           `json:"last_synced_at,omitempty"`
}

// Service is the interactive entry point: the same verify-then-install
// pipeline the sweeper drives, invoked for exactly one resource within a
// request/response cycle.
type Service struct {
	store     RecordStore
	verifier  *Verifier
	installer *Installer
}

func NewService(store RecordStore, verifier *Verifier, installer *Installer) *Service {
	return &Service{store: store, verifier: verifier, installer: installer}
}

// Reinstall resets any existing record (creating one if needed), re-verifies
// preconditions and installs a fresh webhook. Any admin-capable user may act
// on any record; stored ownership is audit trail, not an access gate.
func (s *Service) Reinstall(ctx context.Context, res models.Resource, actingUserID string) (*ReinstallResult, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, res, actingUserID); err != nil {
		return nil, fmt.Errorf("ensuring record for %s: %w", res, err)
	}
	if err := s.store.ResetForReinstall(ctx, res, actingUserID); err != nil {
		return nil, fmt.Errorf("resetting record for %s: %w", res, err)
	}

	rec, err := s.store.Get(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("loading record for %s: %w", res, err)
	}

	outcome, err := s.verifier.Verify(ctx, res, rec)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case OutcomeProceed:
	case OutcomeAlreadyInstalled:
		return &ReinstallResult{Outcome: outcome, Installed: true, Detail: "webhook already present"}, nil
	case OutcomeRateLimited:
		return &ReinstallResult{Outcome: outcome, Detail: "provider rate limited, try again later"}, nil
	case OutcomeResourceGone:
		return &ReinstallResult{Outcome: outcome, Detail: "resource no longer exists"}, nil
	case OutcomeAccessRevoked:
		return &ReinstallResult{Outcome: outcome, Detail: "admin access to the resource was revoked"}, nil
	}

	remoteID, status, err := s.installer.Install(ctx, res)
	if err != nil {
		return nil, err
	}

	result := &ReinstallResult{Outcome: OutcomeProceed, InstallStatus: status, RemoteID: remoteID}
	switch status {
	case InstallSucceeded:
		result.Installed = true
		result.Detail = "webhook installed"
	case InstallRateLimited:
		result.Detail = "provider rate limited, try again later"
	case InstallFailed:
		result.Detail = "failed to install webhook"
	}
	return result, nil
}

// Status reports stored webhook state for many resources in one round trip.
// No provider calls are made; this is the cached view.
func (s *Service) Status(ctx context.Context, resources []models.Resource) ([]StatusItem, error) {
	records, err := s.store.GetMany(ctx, resources)
	if err != nil {
		return nil, err
	}

	byResource := make(map[models.Resource]*models.WebhookRecord, len(records))
	for _, rec := range records {
		res, err := rec.Resource()
		if err != nil {
			return nil, err
		}
		byResource[res] = rec
	}

	items := make([]StatusItem, 0, len(resources))
	for _, res := range resources {
		item := StatusItem{
			Resource:     res,
			ResourceType: string(res.Type),
			ResourceID:   res.ID,
		}
		if rec, ok := byResource[res]; ok {
			item.Tracked = true
			item.WebhookExists = rec.WebhookExists
			item.LastSyncedAt = rec.LastSyncedAt
		}
		items = append(items, item)
	}
	return items, nil
}

// Get returns the stored record for one resource.
func (s *Service) Get(ctx context.Context, res models.Resource) (*models.WebhookRecord, error) {
	rec, err := s.store.Get(ctx, res)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading record for %s: %w", res, err)
	}
	return rec, nil
}
