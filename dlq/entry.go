package dlq

import (
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/id"
)

// Entry represents an item that has exhausted its retry budget and been
// moved to the dead letter queue for inspection or replay.
type Entry struct {
	ID         id.DeadLetterID `json:"id"`
	ItemID     id.ItemID       `json:"item_id"`
	TenantID   string          `json:"tenant_id"`
	Tier       fairq.Tier      `json:"tier"`
	Payload    []byte          `json:"payload"`
	Error      string          `json:"error"`
	Cost       float64         `json:"cost"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	FailedAt   time.Time       `json:"failed_at"`
	ReplayedAt *time.Time      `json:"replayed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
