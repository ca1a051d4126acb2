package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hooksync/internal/platform/models"
	"hooksync/internal/provider"
)

// Scopes is the event list registered with every hook. It must match the
// provider-side registration verbatim; changing it silently breaks existing
// installations.
var Scopes = []string{
	"note_events",
	"merge_requests_events",
	"confidential_issues_events",
	"issues_events",
	"confidential_note_events",
	"job_events",
	"pipeline_events",
}

const DefaultHookName = "hooksync"

// InstallerConfig is the immutable registration shape shared by every
// installation: one callback URL, one human-readable name.
type InstallerConfig struct {
	CallbackURL string
	HookName    string
}

// Installer creates webhooks on resources that passed verification and
// persists the resulting credentials. Each call mints a fresh secret and a
// fresh correlation UUID; values are never reused across installations.
type Installer struct {
	store    RecordStore
	provider provider.Client
	cfg      InstallerConfig
}

func NewInstaller(store RecordStore, client provider.Client, cfg InstallerConfig) *Installer {
	if cfg.HookName == "" {
		cfg.HookName = DefaultHookName
	}
	return &Installer{store: store, provider: client, cfg: cfg}
}

func (i *Installer) Install(ctx context.Context, res models.Resource) (int64, InstallStatus, error) {
	if err := res.Validate(); err != nil {
		return 0, InstallFailed, err
	}

	secret, err := generateSecret()
	if err != nil {
		return 0, InstallFailed, fmt.Errorf("generating secret: %w", err)
	}
	correlationID := uuid.New().String()

	remoteID, err := i.provider.CreateWebhook(ctx, res, provider.CreateWebhookParams{
		Name:          i.cfg.HookName,
		URL:           i.cfg.CallbackURL,
		Secret:        secret,
		CorrelationID: correlationID,
		Scopes:        Scopes,
	})
	if errors.Is(err, provider.ErrRateLimited) {
		// Nothing persisted; the next sweep retries.
		return 0, InstallRateLimited, nil
	}
	if err != nil {
		return 0, InstallFailed, fmt.Errorf("creating hook on %s: %w", res, err)
	}
	if remoteID == 0 {
		// Provider accepted the call but returned no hook. Record the
		// attempt so "tried and failed" is distinguishable from "never
		// attempted", and leave everything else alone.
		i.markFailure(ctx, res, "provider returned no webhook id")
		return 0, InstallFailed, nil
	}

	installed := true
	empty := ""
	zero := 0
	if err := i.store.Update(ctx, res, models.WebhookUpdate{
		WebhookExists: &installed,
		WebhookSecret: &secret,
		WebhookUUID:   &correlationID,
		WebhookURL:    &i.cfg.CallbackURL,
		Scopes:        Scopes,
		LastError:     &empty,
		FailureCount:  &zero,
	}); err != nil {
		return remoteID, InstallFailed, fmt.Errorf("persisting installation for %s: %w", res, err)
	}

	log.Info().Stringer("resource", res).Int64("remote_id", remoteID).Msg("webhook installed")
	return remoteID, InstallSucceeded, nil
}

func (i *Installer) markFailure(ctx context.Context, res models.Resource, reason string) {
	rec, err := i.store.Get(ctx, res)
	if err != nil {
		log.Warn().Err(err).Stringer("resource", res).Msg("failed to load record for failure marker")
		return
	}
	count := rec.FailureCount + 1
	if err := i.store.Update(ctx, res, models.WebhookUpdate{
		LastError:    &reason,
		FailureCount: &count,
	}); err != nil {
		log.Warn().Err(err).Stringer("resource", res).Msg("failed to record installation failure")
	}
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
