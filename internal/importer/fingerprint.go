package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fingerprint identifies a statement line across imports. Occurrence counts
// identical lines earlier in the same file, so two equal purchases on one day
// stay distinct while re-importing the file yields the same fingerprints.
func Fingerprint(accountID uuid.UUID, date time.Time, amount decimal.Decimal, description, externalID string, occurrence int) string {
	canonical := strings.Join([]string{
		accountID.String(),
		date.UTC().Format(dateLayout),
		amount.String(),
		normalizeDescription(description),
		strings.TrimSpace(externalID),
		strconv.Itoa(occurrence),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
