package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

const purchaseColumns = `id, user_id, plan_id, provider, status, amount_cents,
	COALESCE(contact, '{}'), COALESCE(bumps, '{}'), COALESCE(source, ''),
	COALESCE(pix_code, ''), COALESCE(pix_qr_url, ''), COALESCE(external_ref, ''),
	expires_at, confirmed_at, created_at`

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

func (r *PurchaseRepo) CreatePending(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	if p.ID == "" || p.UserID <= 0 || strings.TrimSpace(p.PlanID) == "" {
		return model.Purchase{}, fmt.Errorf("invalid purchase create payload")
	}
	now := p.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	contact, err := json.Marshal(p.Contact)
	if err != nil {
		return model.Purchase{}, fmt.Errorf("encode purchase contact: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
INSERT INTO purchases (
	id,
	user_id,
	plan_id,
	provider,
	status,
	amount_cents,
	contact,
	bumps,
	source,
	pix_code,
	pix_qr_url,
	external_ref,
	expires_at,
	created_at
) VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, status, created_at
`, p.ID, p.UserID, p.PlanID, p.Provider, p.AmountCents, contact, p.Bumps, p.Source,
		p.PixCode, p.PixQRURL, p.ExternalRef, p.ExpiresAt.UTC(), now.UTC()).Scan(
		&p.ID, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return model.Purchase{}, fmt.Errorf("create pending purchase: %w", err)
	}

	return p, nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID string) (model.Purchase, error) {
	if purchaseID == "" {
		return model.Purchase{}, fmt.Errorf("invalid purchase id")
	}

	p, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT `+purchaseColumns+`
FROM purchases
WHERE id = $1
`, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Purchase{}, ErrPurchaseNotFound
		}
		return model.Purchase{}, fmt.Errorf("get purchase: %w", err)
	}

	return p, nil
}

func (r *PurchaseRepo) GetByExternalRef(ctx context.Context, provider, externalRef string) (model.Purchase, error) {
	provider = strings.TrimSpace(provider)
	externalRef = strings.TrimSpace(externalRef)
	if provider == "" || externalRef == "" {
		return model.Purchase{}, fmt.Errorf("invalid external ref payload")
	}

	p, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT `+purchaseColumns+`
FROM purchases
WHERE provider = $1 AND external_ref = $2
`, provider, externalRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Purchase{}, ErrPurchaseNotFound
		}
		return model.Purchase{}, fmt.Errorf("get purchase by external ref: %w", err)
	}

	return p, nil
}

// MarkConfirmed flips a pending purchase to confirmed exactly once inside
// the entitlement grant transaction, recording the provider tx id. A purchase
// that is already confirmed comes back with confirmed=false so webhook
// retries stay idempotent.
func (r *PurchaseRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, purchaseID, externalRef string, now time.Time) (model.Purchase, bool, error) {
	if purchaseID == "" {
		return model.Purchase{}, false, fmt.Errorf("invalid purchase id")
	}
	if tx == nil {
		return model.Purchase{}, false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	p, err := scanPurchase(tx.QueryRow(ctx, `
UPDATE purchases
SET status = 'confirmed',
	confirmed_at = $2,
	external_ref = COALESCE(NULLIF($3, ''), external_ref)
WHERE id = $1 AND status = 'pending'
RETURNING `+purchaseColumns+`
`, purchaseID, now.UTC(), strings.TrimSpace(externalRef)))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Purchase{}, false, fmt.Errorf("mark purchase confirmed: %w", err)
	}

	existing, err := r.GetByID(ctx, purchaseID)
	if err != nil {
		return model.Purchase{}, false, err
	}
	return existing, false, nil
}

// ExpirePending flips pending purchases older than their deadline. Used by
// the cleanup job.
func (r *PurchaseRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE purchases
SET status = 'expired'
WHERE status = 'pending' AND expires_at < $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire pending purchases: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanPurchase(row pgx.Row) (model.Purchase, error) {
	var (
		p          model.Purchase
		rawContact []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PlanID,
		&p.Provider,
		&p.Status,
		&p.AmountCents,
		&rawContact,
		&p.Bumps,
		&p.Source,
		&p.PixCode,
		&p.PixQRURL,
		&p.ExternalRef,
		&p.ExpiresAt,
		&p.ConfirmedAt,
		&p.CreatedAt,
	); err != nil {
		return model.Purchase{}, err
	}
	if len(rawContact) > 0 {
		if err := json.Unmarshal(rawContact, &p.Contact); err != nil {
			return model.Purchase{}, fmt.Errorf("decode purchase contact: %w", err)
		}
	}
	return p, nil
}
