package ledger

import (
	"time"

	"github.com/google/uuid"
)

// now is the clock every entity stamps with. Tests replace it.
var now = func() time.Time { return time.Now().UTC() }

// Audit is the identity, lifecycle timestamps and soft-delete state shared by
// every ledger entity. It is embedded by value.
type Audit struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func newAudit() Audit {
	t := now()
	return Audit{ID: uuid.New(), CreatedAt: t, UpdatedAt: t}
}

func (a *Audit) touch() {
	a.UpdatedAt = now()
}

// SoftDelete hides the entity from normal reads while keeping it for history.
// Calling it again re-stamps the timestamps.
func (a *Audit) SoftDelete() {
	t := now()
	a.IsDeleted = true
	a.DeletedAt = &t
	a.UpdatedAt = t
}
