package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/uptrace/bun"
)

// BunSetupTokenRepository implements SetupTokenRepository using Bun ORM
type BunSetupTokenRepository struct {
	db *bun.DB
}

// NewBunSetupTokenRepository creates a new Bun-based setup token ledger
func NewBunSetupTokenRepository(db *bun.DB) *BunSetupTokenRepository {
	return &BunSetupTokenRepository{db: db}
}

// Redeem inserts the jti. The primary key makes a second redemption a no-op,
// which is reported as false.
func (r *BunSetupTokenRepository) Redeem(ctx context.Context, token *models.UsedSetupToken) (bool, error) {
	token.RedeemedAt = time.Now().UTC()
	res, err := r.db.NewInsert().
		Model(token).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("redeem setup token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// Release forgets a redemption so the token can be presented again. It is
// used when the grant that followed a redemption failed.
func (r *BunSetupTokenRepository) Release(ctx context.Context, jti string) error {
	_, err := r.db.NewDelete().
		Model((*models.UsedSetupToken)(nil)).
		Where("jti = ?", jti).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("release setup token: %w", err)
	}
	return nil
}

// DeleteExpired removes ledger entries for tokens that can no longer verify.
func (r *BunSetupTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.UsedSetupToken)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired setup tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}
