package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ImportStatus tracks an import batch through its lifecycle.
type ImportStatus string

const (
	ImportPending             ImportStatus = "Pending"
	ImportProcessing          ImportStatus = "Processing"
	ImportCompleted           ImportStatus = "Completed"
	ImportCompletedWithErrors ImportStatus = "CompletedWithErrors"
	ImportFailed              ImportStatus = "Failed"
	ImportRolledBack          ImportStatus = "RolledBack"
)

// Terminal reports whether no further counting can happen.
func (s ImportStatus) Terminal() bool {
	switch s {
	case ImportCompleted, ImportCompletedWithErrors, ImportFailed, ImportRolledBack:
		return true
	}
	return false
}

const maxErrorDetailsLen = 2000

// ImportBatch records one statement import and its outcome counts.
type ImportBatch struct {
	Audit

	UserID         uuid.UUID    `json:"user_id"`
	AccountID      uuid.UUID    `json:"account_id"`
	FileName       string       `json:"file_name"`
	FileFormat     string       `json:"file_format"`
	ImportDate     time.Time    `json:"import_date"`
	RowCount       int          `json:"row_count"`
	SuccessCount   int          `json:"success_count"`
	ErrorCount     int          `json:"error_count"`
	DuplicateCount int          `json:"duplicate_count"`
	Status         ImportStatus `json:"status"`
	ErrorDetails   string       `json:"error_details,omitempty"`
}

// NewImportBatch returns a Pending batch.
func NewImportBatch(userID, accountID uuid.UUID, fileName, fileFormat string) (*ImportBatch, error) {
	fileName = strings.TrimSpace(fileName)
	verr := &ValidationError{}
	if userID == uuid.Nil {
		verr.add("user_id", "is required")
	}
	if accountID == uuid.Nil {
		verr.add("account_id", "is required")
	}
	if fileName == "" {
		verr.add("file_name", "must not be empty")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	audit := newAudit()
	return &ImportBatch{
		Audit:      audit,
		UserID:     userID,
		AccountID:  accountID,
		FileName:   fileName,
		FileFormat: strings.ToLower(strings.TrimSpace(fileFormat)),
		ImportDate: audit.CreatedAt,
		Status:     ImportPending,
	}, nil
}

func (b *ImportBatch) transition(from []ImportStatus, to ImportStatus) error {
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			b.touch()
			return nil
		}
	}
	return invalid("status", fmt.Sprintf("cannot move import batch from %s to %s", b.Status, to))
}

// Start moves a Pending batch to Processing.
func (b *ImportBatch) Start() error {
	return b.transition([]ImportStatus{ImportPending}, ImportProcessing)
}

// Complete records the final counts. Any error row yields CompletedWithErrors.
func (b *ImportBatch) Complete(rows, succeeded, errored, duplicates int) error {
	if rows != succeeded+errored+duplicates {
		return invalid("row_count", fmt.Sprintf("%d rows but %d+%d+%d counted", rows, succeeded, errored, duplicates))
	}
	to := ImportCompleted
	if errored > 0 {
		to = ImportCompletedWithErrors
	}
	if err := b.transition([]ImportStatus{ImportPending, ImportProcessing}, to); err != nil {
		return err
	}
	b.RowCount = rows
	b.SuccessCount = succeeded
	b.ErrorCount = errored
	b.DuplicateCount = duplicates
	return nil
}

// Fail marks the batch Failed. Details longer than 2000 bytes are cut on a
// rune boundary.
func (b *ImportBatch) Fail(details string) error {
	if err := b.transition([]ImportStatus{ImportPending, ImportProcessing}, ImportFailed); err != nil {
		return err
	}
	b.ErrorDetails = truncateUTF8(details, maxErrorDetailsLen)
	return nil
}

// RollBack marks a completed batch as undone.
func (b *ImportBatch) RollBack() error {
	return b.transition([]ImportStatus{ImportCompleted, ImportCompletedWithErrors}, ImportRolledBack)
}

// AppendErrorDetail adds a line of row-level detail, keeping the total bounded.
func (b *ImportBatch) AppendErrorDetail(line string) {
	if b.ErrorDetails != "" {
		line = "\n" + line
	}
	room := maxErrorDetailsLen - len(b.ErrorDetails)
	if room <= 0 {
		return
	}
	b.ErrorDetails += truncateUTF8(line, room)
	b.touch()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
