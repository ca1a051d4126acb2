package webhooks

import (
	"context"

	"github.com/rs/zerolog/log"

	"hooksync/internal/platform/models"
)

type SweepStats struct {
	Fetched   int `json:"fetched"`
	Installed int `json:"installed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Sweeper drives a bounded batch of unconfirmed records through
// verification and installation. Records are processed strictly
// sequentially: the provider's rate limit is global per credential, so
// fanning out would only trip it faster.
type Sweeper struct {
	store     RecordStore
	verifier  *Verifier
	installer *Installer
	batchSize int
}

func NewSweeper(store RecordStore, verifier *Verifier, installer *Installer, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{store: store, verifier: verifier, installer: installer, batchSize: batchSize}
}

// RunOnce processes one batch and returns when it is exhausted. Individual
// failures never halt the batch.
func (s *Sweeper) RunOnce(ctx context.Context) SweepStats {
	var stats SweepStats

	records, err := s.store.ListPending(ctx, s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("sweep: fetching pending records")
		return stats
	}
	stats.Fetched = len(records)

	for _, rec := range records {
		s.processRecord(ctx, rec, &stats)
	}

	log.Info().
		Int("fetched", stats.Fetched).
		Int("installed", stats.Installed).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("sweep complete")
	return stats
}

func (s *Sweeper) processRecord(ctx context.Context, rec *models.WebhookRecord, stats *SweepStats) {
	res, err := rec.Resource()
	if err != nil {
		log.Error().Err(err).Str("record_id", rec.ID).Msg("sweep: invalid record identity")
		stats.Errors++
		return
	}

	// Whatever happens below, advance the sync timestamp so a persistently
	// failing resource cannot be re-selected first on the very next tick.
	defer func() {
		if err := s.store.TouchLastSynced(ctx, res); err != nil {
			log.Warn().Err(err).Stringer("resource", res).Msg("sweep: advancing sync timestamp")
		}
	}()

	outcome, err := s.verifier.Verify(ctx, res, rec)
	if err != nil {
		log.Error().Err(err).Stringer("resource", res).Msg("sweep: verification failed")
		stats.Errors++
		return
	}
	if outcome != OutcomeProceed {
		log.Debug().Stringer("resource", res).Stringer("outcome", outcome).Msg("sweep: skipping resource")
		stats.Skipped++
		return
	}

	_, status, err := s.installer.Install(ctx, res)
	if err != nil {
		log.Error().Err(err).Stringer("resource", res).Msg("sweep: installation failed")
		stats.Errors++
		return
	}
	if status == InstallSucceeded {
		stats.Installed++
	} else {
		// Rate limited or silent failure; the next sweep retries.
		log.Debug().Stringer("resource", res).Stringer("status", status).Msg("sweep: install not completed")
		stats.Skipped++
	}
}
