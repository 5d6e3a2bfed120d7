package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cursor is the sort key of the last row a page returned.
type Cursor struct {
	Date time.Time
	ID   uuid.UUID
}

// CursorFor returns the cursor positioned on tx.
func CursorFor(tx *Transaction) Cursor {
	return Cursor{Date: tx.Date.UTC(), ID: tx.ID}
}

// String encodes the cursor as "<RFC3339Nano date>|<uuid>".
func (c Cursor) String() string {
	return c.Date.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
}

// ParseCursor decodes a cursor produced by String.
func ParseCursor(s string) (Cursor, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("ParseCursor: want 2 parts, got %d", len(parts))
	}
	date, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("ParseCursor: date: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("ParseCursor: id: %w", err)
	}
	return Cursor{Date: date.UTC(), ID: id}, nil
}

// Precedes reports whether tx sorts strictly after the cursor position:
// date < cursor date, or equal date and id < cursor id.
func (c Cursor) Precedes(tx *Transaction) bool {
	return sortsBefore(c.Date, c.ID, tx.Date, tx.ID)
}
