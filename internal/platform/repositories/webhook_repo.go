package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"hooksync/internal/platform/models"
)

var ErrNotFound = errors.New("not found")

const webhookColumns = `id, project_id, group_id, owning_user_id, webhook_exists, webhook_secret,
	webhook_uuid, webhook_url, scopes, last_error, failure_count, last_synced_at, created_at, updated_at`

// WebhookRepository is the durable home for webhook installation records,
// keyed by resource identity rather than by user. Every operation validates
// the one-of-two project/group identity before touching the database.
type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// identityClause returns the WHERE fragment and argument for one resource.
func identityClause(res models.Resource) (string, int64, error) {
	if err := res.Validate(); err != nil {
		return "", 0, err
	}
	if res.Type == models.ResourceTypeProject {
		return "project_id = ?", res.ID, nil
	}
	return "group_id = ?", res.ID, nil
}

// Upsert creates a record for the resource if none exists. Safe to call
// repeatedly; a second call with the same identity is a no-op.
func (r *WebhookRepository) Upsert(ctx context.Context, res models.Resource, owningUserID string) error {
	if err := res.Validate(); err != nil {
		return err
	}

	var projectID, groupID *int64
	if res.Type == models.ResourceTypeProject {
		projectID = &res.ID
	} else {
		groupID = &res.ID
	}

	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO webhook_records (id, project_id, group_id, owning_user_id, webhook_exists, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, "wh_"+uuid.New().String(), projectID, groupID, owningUserID, now, now)
	return err
}

func (r *WebhookRepository) Get(ctx context.Context, res models.Resource) (*models.WebhookRecord, error) {
	clause, arg, err := identityClause(res)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM webhook_records WHERE %s", webhookColumns, clause), arg)
	return scanWebhookRecord(row)
}

// GetMany resolves several resource identities in a single query, for
// rendering resource lists with webhook status without one query per row.
func (r *WebhookRepository) GetMany(ctx context.Context, resources []models.Resource) ([]*models.WebhookRecord, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	var projectIDs, groupIDs []interface{}
	for _, res := range resources {
		if err := res.Validate(); err != nil {
			return nil, err
		}
		if res.Type == models.ResourceTypeProject {
			projectIDs = append(projectIDs, res.ID)
		} else {
			groupIDs = append(groupIDs, res.ID)
		}
	}

	var clauses []string
	var args []interface{}
	if len(projectIDs) > 0 {
		clauses = append(clauses, "project_id IN ("+placeholders(len(projectIDs))+")")
		args = append(args, projectIDs...)
	}
	if len(groupIDs) > 0 {
		clauses = append(clauses, "group_id IN ("+placeholders(len(groupIDs))+")")
		args = append(args, groupIDs...)
	}

	query := fmt.Sprintf("SELECT %s FROM webhook_records WHERE %s",
		webhookColumns, strings.Join(clauses, " OR "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.WebhookRecord
	for rows.Next() {
		rec, err := scanWebhookRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update applies a field-subset update to the resource's record.
func (r *WebhookRepository) Update(ctx context.Context, res models.Resource, upd models.WebhookUpdate) error {
	clause, arg, err := identityClause(res)
	if err != nil {
		return err
	}

	var sets []string
	var args []interface{}
	if upd.WebhookExists != nil {
		sets = append(sets, "webhook_exists = ?")
		args = append(args, *upd.WebhookExists)
	}
	if upd.WebhookSecret != nil {
		sets = append(sets, "webhook_secret = ?")
		args = append(args, *upd.WebhookSecret)
	}
	if upd.WebhookUUID != nil {
		sets = append(sets, "webhook_uuid = ?")
		args = append(args, *upd.WebhookUUID)
	}
	if upd.WebhookURL != nil {
		sets = append(sets, "webhook_url = ?")
		args = append(args, *upd.WebhookURL)
	}
	if upd.Scopes != nil {
		scopesJSON, err := json.Marshal(upd.Scopes)
		if err != nil {
			return err
		}
		sets = append(sets, "scopes = ?")
		args = append(args, string(scopesJSON))
	}
	if upd.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *upd.LastError)
	}
	if upd.FailureCount != nil {
		sets = append(sets, "failure_count = ?")
		args = append(args, *upd.FailureCount)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix())
	args = append(args, arg)

	query := fmt.Sprintf("UPDATE webhook_records SET %s WHERE %s", strings.Join(sets, ", "), clause)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *WebhookRepository) Delete(ctx context.Context, res models.Resource) error {
	clause, arg, err := identityClause(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM webhook_records WHERE "+clause, arg)
	return err
}

// ResetForReinstall clears the installed flag and correlation UUID and
// reassigns the acting user. Ownership of the record is not checked here:
// admin rights over the resource are re-verified live before anything
// destructive happens remotely.
func (r *WebhookRepository) ResetForReinstall(ctx context.Context, res models.Resource, actingUserID string) error {
	clause, arg, err := identityClause(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE webhook_records
		SET webhook_exists = 0, webhook_uuid = '', owning_user_id = ?, updated_at = ?
		WHERE %s
	`, clause), actingUserID, time.Now().Unix(), arg)
	return err
}

// ListPending returns up to limit records without a confirmed webhook,
// oldest-synced first so no resource is starved across sweep cycles.
func (r *WebhookRepository) ListPending(ctx context.Context, limit int) ([]*models.WebhookRecord, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM webhook_records
		WHERE webhook_exists = 0
		ORDER BY last_synced_at ASC
		LIMIT ?
	`, webhookColumns), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.WebhookRecord
	for rows.Next() {
		rec, err := scanWebhookRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TouchLastSynced advances the reconciliation timestamp unconditionally.
// Unix seconds, like every other timestamp in the table.
func (r *WebhookRepository) TouchLastSynced(ctx context.Context, res models.Resource) error {
	clause, arg, err := identityClause(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE webhook_records SET last_synced_at = ? WHERE %s", clause),
		time.Now().Unix(), arg)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhookRecord(row rowScanner) (*models.WebhookRecord, error) {
	var rec models.WebhookRecord
	var projectID, groupID sql.NullInt64
	var scopesStr string

	err := row.Scan(&rec.ID, &projectID, &groupID, &rec.OwningUserID, &rec.WebhookExists,
		&rec.WebhookSecret, &rec.WebhookUUID, &rec.WebhookURL, &scopesStr,
		&rec.LastError, &rec.FailureCount, &rec.LastSyncedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if projectID.Valid {
		rec.ProjectID = &projectID.Int64
	}
	if groupID.Valid {
		rec.GroupID = &groupID.Int64
	}
	if _, err := rec.Resource(); err != nil {
		return nil, fmt.Errorf("row %s: %w", rec.ID, err)
	}

	if scopesStr != "" && scopesStr != "[]" {
		if err := json.Unmarshal([]byte(scopesStr), &rec.Scopes); err != nil {
			return nil, fmt.Errorf("row %s: decoding scopes: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
