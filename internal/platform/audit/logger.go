package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apiContext "hooksync/internal/api/context"
	"hooksync/internal/platform/auth"
)

type Entry struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	CreatedAt    int64                  `json:"created_at"`
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log writes an audit row asynchronously; the request path never waits on it.
func (l *Logger) Log(ctx context.Context, r *http.Request, action, resourceType, resourceID string, metadata map[string]interface{}) {
	var userID string
	if claims, ok := ctx.Value(apiContext.Claims).(*auth.Claims); ok {
		userID = claims.UserID
	}

	entry := &Entry{
		ID:           "audit_" + uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().Unix(),
	}
	if r != nil {
		entry.IPAddress = r.RemoteAddr
		entry.UserAgent = r.UserAgent()
	}

	metaJSON, _ := json.Marshal(metadata)

	go func() {
		_, err := l.db.Exec(`
			INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, string(metaJSON), entry.IPAddress, entry.UserAgent, entry.CreatedAt)
		if err != nil {
			log.Warn().Err(err).Str("action", action).Msg("audit write failed")
		}
	}()
}
