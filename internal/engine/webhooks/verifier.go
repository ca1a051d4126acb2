package webhooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hooksync/internal/platform/models"
	"hooksync/internal/provider"
)

// Verifier decides whether a resource is safe to mutate and keeps stored
// state honest against what the provider reports. The three checks are
// strictly ordered: existence, then admin access, then hook presence. The
// first definitive negative answer ends processing; a rate-limited answer
// ends processing without touching anything.
type Verifier struct {
	store       RecordStore
	provider    provider.Client
	callbackURL string
}

func NewVerifier(store RecordStore, client provider.Client, callbackURL string) *Verifier {
	return &Verifier{store: store, provider: client, callbackURL: callbackURL}
}

func (v *Verifier) Verify(ctx context.Context, res models.Resource, rec *models.WebhookRecord) (Outcome, error) {
	if err := res.Validate(); err != nil {
		return OutcomeProceed, err
	}

	exists, err := v.provider.ResourceExists(ctx, res)
	if errors.Is(err, provider.ErrRateLimited) {
		return OutcomeRateLimited, nil
	}
	if err != nil {
		return OutcomeProceed, fmt.Errorf("existence check: %w", err)
	}
	if !exists {
		// The resource is gone for good; stale bookkeeping goes with it.
		if err := v.store.Delete(ctx, res); err != nil {
			return OutcomeProceed, fmt.Errorf("pruning record for %s: %w", res, err)
		}
		log.Debug().Stringer("resource", res).Msg("resource gone, record pruned")
		return OutcomeResourceGone, nil
	}

	admin, err := v.provider.HasAdminAccess(ctx, res)
	if errors.Is(err, provider.ErrRateLimited) {
		return OutcomeRateLimited, nil
	}
	if err != nil {
		return OutcomeProceed, fmt.Errorf("access check: %w", err)
	}
	if !admin {
		if err := v.store.Delete(ctx, res); err != nil {
			return OutcomeProceed, fmt.Errorf("pruning record for %s: %w", res, err)
		}
		log.Debug().Stringer("resource", res).Msg("admin access revoked, record pruned")
		return OutcomeAccessRevoked, nil
	}

	present, err := v.provider.WebhookExistsAtURL(ctx, res, v.callbackURL)
	if errors.Is(err, provider.ErrRateLimited) {
		return OutcomeRateLimited, nil
	}
	if err != nil {
		return OutcomeProceed, fmt.Errorf("hook presence check: %w", err)
	}

	// The stored flag is a cache of remote truth; reconcile it before
	// deciding anything else.
	if rec != nil && rec.WebhookExists != present {
		if err := v.store.Update(ctx, res, models.WebhookUpdate{WebhookExists: &present}); err != nil {
			return OutcomeProceed, fmt.Errorf("reconciling stored flag for %s: %w", res, err)
		}
		rec.WebhookExists = present
	}

	if present {
		return OutcomeAlreadyInstalled, nil
	}
	return OutcomeProceed, nil
}
