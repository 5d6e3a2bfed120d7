package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/logger"
)

// FingerprintCache is a fast, non-authoritative record of fingerprints that
// have already been persisted.
type FingerprintCache interface {
	Seen(ctx context.Context, fingerprint string) (bool, error)
	Remember(ctx context.Context, fingerprint string) error
}

// ImportDeduplicator keeps imported transactions at-most-once. IsDuplicate is
// an early exit; the store's unique constraint behind Register is what
// actually guarantees it.
type ImportDeduplicator struct {
	repo  TransactionRepository
	cache FingerprintCache
}

// NewImportDeduplicator wires repo and an optional cache (nil disables it).
func NewImportDeduplicator(repo TransactionRepository, cache FingerprintCache) *ImportDeduplicator {
	return &ImportDeduplicator{repo: repo, cache: cache}
}

// IsDuplicate reports whether fingerprint is already taken. An empty
// fingerprint never is.
func (d *ImportDeduplicator) IsDuplicate(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	if d.cache != nil {
		seen, err := d.cache.Seen(ctx, fingerprint)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("Fingerprint cache lookup failed, falling back to store")
		} else if seen {
			return true, nil
		}
	}
	exists, err := d.repo.FingerprintExists(ctx, fingerprint)
	if err != nil {
		return false, fmt.Errorf("IsDuplicate: checking store: %w", err)
	}
	if exists {
		d.remember(ctx, fingerprint)
	}
	return exists, nil
}

// Register persists tx. A uniqueness violation on its fingerprint comes back
// as ErrDuplicateImport.
func (d *ImportDeduplicator) Register(ctx context.Context, tx *Transaction) error {
	if err := d.repo.InsertTransaction(ctx, tx); err != nil {
		if errors.Is(err, ErrDuplicateImport) {
			d.remember(ctx, tx.ImportFingerprint)
			return fmt.Errorf("Register: fingerprint %q: %w", tx.ImportFingerprint, ErrDuplicateImport)
		}
		return fmt.Errorf("Register: inserting transaction: %w", err)
	}
	d.remember(ctx, tx.ImportFingerprint)
	return nil
}

func (d *ImportDeduplicator) remember(ctx context.Context, fingerprint string) {
	if d.cache == nil || fingerprint == "" {
		return
	}
	if err := d.cache.Remember(ctx, fingerprint); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("Failed to cache fingerprint")
	}
}
