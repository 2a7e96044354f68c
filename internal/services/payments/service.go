package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrUnknownBump        = errors.New("unknown order bump")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseExpired    = errors.New("purchase expired")
	ErrDevConfirmDisabled = errors.New("dev confirmation is disabled")
)

type PurchaseStore interface {
	CreatePending(ctx context.Context, p model.Purchase) (model.Purchase, error)
	GetByID(ctx context.Context, purchaseID string) (model.Purchase, error)
	GetByExternalRef(ctx context.Context, provider, externalRef string) (model.Purchase, error)
	MarkConfirmed(ctx context.Context, tx pgx.Tx, purchaseID, externalRef string, now time.Time) (model.Purchase, bool, error)
}

type SubscriptionStore interface {
	Grant(ctx context.Context, tx pgx.Tx, userID int64, tier enums.Tier, periodDays int, now time.Time) (model.Subscription, error)
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	Purchases     PurchaseStore
	Subscriptions SubscriptionStore
}

// Bump is an order-bump add-on offered at checkout.
type Bump struct {
	ID         string
	Name       string
	PriceCents int64
}

type Config struct {
	Provider    string
	PixKey      string
	PixMerchant string
	PixCity     string
	QRBaseURL   string
	IntentTTL   time.Duration
	DevConfirm  bool
	Plans       []model.Plan
	Bumps       []Bump
}

type Service struct {
	deps  Dependencies
	cfg   Config
	plans map[string]model.Plan
	bumps map[string]Bump
	now   func() time.Time
}

type CreateInput struct {
	PlanID   string
	Contact  model.PurchaseContact
	Bumps    []string
	Source   string
	Provider string
}

type WebhookInput struct {
	PurchaseID  string
	Provider    string
	ExternalRef string
	Status      string
}

type WebhookResult struct {
	Purchase         model.Purchase
	AlreadyProcessed bool
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Provider == "" {
		cfg.Provider = model.PaymentProviderPix
	}
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = 30 * time.Minute
	}
	if cfg.QRBaseURL == "" {
		cfg.QRBaseURL = "https://quickchart.io/qr"
	}
	if len(cfg.Bumps) == 0 {
		cfg.Bumps = []Bump{
			{ID: "devocional_plus", Name: "Devocional Plus", PriceCents: 990},
			{ID: "destaque_7d", Name: "Destaque por 7 dias", PriceCents: 1490},
		}
	}

	plans := make(map[string]model.Plan, len(cfg.Plans))
	for _, plan := range cfg.Plans {
		plans[plan.ID] = plan
	}
	bumps := make(map[string]Bump, len(cfg.Bumps))
	for _, bump := range cfg.Bumps {
		bumps[bump.ID] = bump
	}

	return &Service{
		deps:  deps,
		cfg:   cfg,
		plans: plans,
		bumps: bumps,
		now:   time.Now,
	}
}

// CreateIntent opens a pending purchase for the plan plus any order bumps and
// returns it with the pix payload the client renders. Nothing is charged
// here; the subscription only activates on confirmation.
func (s *Service) CreateIntent(ctx context.Context, userID int64, in CreateInput) (model.Purchase, error) {
	if userID <= 0 {
		return model.Purchase{}, ErrValidation
	}
	if s.deps.Purchases == nil {
		return model.Purchase{}, fmt.Errorf("purchase store is nil")
	}

	plan, ok := s.plans[strings.TrimSpace(in.PlanID)]
	if !ok {
		return model.Purchase{}, ErrUnknownPlan
	}
	if err := validateContact(in.Contact); err != nil {
		return model.Purchase{}, err
	}

	amount := plan.PriceCents
	bumps := make([]string, 0, len(in.Bumps))
	for _, raw := range in.Bumps {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		bump, ok := s.bumps[id]
		if !ok {
			return model.Purchase{}, fmt.Errorf("%w: %s", ErrUnknownBump, id)
		}
		amount += bump.PriceCents
		bumps = append(bumps, bump.ID)
	}

	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		provider = s.cfg.Provider
	}
	if provider != model.PaymentProviderPix && provider != model.PaymentProviderDev {
		return model.Purchase{}, fmt.Errorf("%w: provider %q", ErrValidation, provider)
	}

	now := s.now().UTC()
	id := uuid.NewString()
	pixCode := s.buildPixCode(id, amount)

	purchase, err := s.deps.Purchases.CreatePending(ctx, model.Purchase{
		ID:          id,
		UserID:      userID,
		PlanID:      plan.ID,
		Provider:    provider,
		AmountCents: amount,
		Contact:     normalizeContact(in.Contact),
		Bumps:       bumps,
		Source:      strings.TrimSpace(in.Source),
		PixCode:     pixCode,
		PixQRURL:    s.buildQRURL(pixCode),
		ExpiresAt:   now.Add(s.cfg.IntentTTL),
		CreatedAt:   now,
	})
	if err != nil {
		return model.Purchase{}, err
	}

	return purchase, nil
}

// Status returns the purchase for polling. Only the buyer sees it.
func (s *Service) Status(ctx context.Context, userID int64, purchaseID string) (model.Purchase, error) {
	if userID <= 0 || strings.TrimSpace(purchaseID) == "" {
		return model.Purchase{}, ErrValidation
	}
	if s.deps.Purchases == nil {
		return model.Purchase{}, fmt.Errorf("purchase store is nil")
	}

	purchase, err := s.deps.Purchases.GetByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
			return model.Purchase{}, ErrPurchaseNotFound
		}
		return model.Purchase{}, err
	}
	if purchase.UserID != userID {
		return model.Purchase{}, ErrPurchaseNotFound
	}

	return purchase, nil
}

// ConfirmWebhook processes a provider confirmation. Replays of the same
// provider tx id, and of an already confirmed purchase, come back with
// AlreadyProcessed and change nothing: the tier is granted exactly once.
func (s *Service) ConfirmWebhook(ctx context.Context, in WebhookInput) (WebhookResult, error) {
	if s.deps.Purchases == nil {
		return WebhookResult{}, fmt.Errorf("purchase store is nil")
	}

	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	externalRef := strings.TrimSpace(in.ExternalRef)
	if provider == "" || externalRef == "" {
		return WebhookResult{}, ErrValidation
	}
	if !isConfirmationStatus(in.Status) {
		return WebhookResult{}, ErrValidation
	}

	existing, err := s.deps.Purchases.GetByExternalRef(ctx, provider, externalRef)
	if err == nil && existing.Status == model.PurchaseStatusConfirmed {
		return WebhookResult{Purchase: existing, AlreadyProcessed: true}, nil
	}
	if err != nil && !errors.Is(err, pgrepo.ErrPurchaseNotFound) {
		return WebhookResult{}, err
	}

	purchaseID := strings.TrimSpace(in.PurchaseID)
	if purchaseID == "" {
		purchaseID = existing.ID
	}
	if purchaseID == "" {
		return WebhookResult{}, ErrPurchaseNotFound
	}

	return s.confirm(ctx, purchaseID, externalRef)
}

// DevConfirm instantly confirms a dev-provider purchase. Only available when
// enabled in configuration; the caller gates it to admins.
func (s *Service) DevConfirm(ctx context.Context, purchaseID string) (WebhookResult, error) {
	if !s.cfg.DevConfirm {
		return WebhookResult{}, ErrDevConfirmDisabled
	}
	if strings.TrimSpace(purchaseID) == "" {
		return WebhookResult{}, ErrValidation
	}

	return s.confirm(ctx, purchaseID, "dev-"+purchaseID)
}

func (s *Service) Plans() []model.Plan {
	return append([]model.Plan(nil), s.cfg.Plans...)
}

func (s *Service) Bumps() []Bump {
	return append([]Bump(nil), s.cfg.Bumps...)
}

// confirm flips the purchase and grants the plan tier in one transaction, so
// entitlements reflect the payment the moment the webhook returns.
func (s *Service) confirm(ctx context.Context, purchaseID, externalRef string) (WebhookResult, error) {
	if s.deps.Pool == nil || s.deps.Purchases == nil || s.deps.Subscriptions == nil {
		return WebhookResult{}, fmt.Errorf("payments dependencies are not configured")
	}
	now := s.now().UTC()

	var result WebhookResult
	err := pgrepo.WithTx(ctx, s.deps.Pool, func(txCtx context.Context, tx pgx.Tx) error {
		purchase, confirmed, err := s.deps.Purchases.MarkConfirmed(txCtx, tx, purchaseID, externalRef, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
				return ErrPurchaseNotFound
			}
			return err
		}
		result.Purchase = purchase
		if !confirmed {
			switch purchase.Status {
			case model.PurchaseStatusConfirmed:
				result.AlreadyProcessed = true
				return nil
			case model.PurchaseStatusExpired:
				return ErrPurchaseExpired
			default:
				return fmt.Errorf("purchase %s in status %s cannot confirm", purchase.ID, purchase.Status)
			}
		}

		plan, ok := s.plans[purchase.PlanID]
		if !ok {
			return fmt.Errorf("purchase %s references unknown plan %s", purchase.ID, purchase.PlanID)
		}
		if _, err := s.deps.Subscriptions.Grant(txCtx, tx, purchase.UserID, plan.Tier, plan.PeriodDays, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return WebhookResult{}, err
	}

	return result, nil
}

// buildPixCode renders a BR Code style copy-paste payload for the intent.
func (s *Service) buildPixCode(purchaseID string, amountCents int64) string {
	txid := strings.ReplaceAll(purchaseID, "-", "")
	if len(txid) > 25 {
		txid = txid[:25]
	}
	return fmt.Sprintf("00020126580014br.gov.bcb.pix01%02d%s5204000053039865406%d.%02d5802BR59%02d%s60%02d%s62%02d%s6304",
		len(s.cfg.PixKey), s.cfg.PixKey,
		amountCents/100, amountCents%100,
		len(s.cfg.PixMerchant), s.cfg.PixMerchant,
		len(s.cfg.PixCity), s.cfg.PixCity,
		len(txid)+4, txid,
	)
}

func (s *Service) buildQRURL(pixCode string) string {
	return fmt.Sprintf("%s?size=300&text=%s", s.cfg.QRBaseURL, url.QueryEscape(pixCode))
}

func validateContact(contact model.PurchaseContact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return fmt.Errorf("%w: contact name is required", ErrValidation)
	}
	email := strings.TrimSpace(contact.Email)
	at := strings.Index(email, "@")
	if at <= 0 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("%w: contact email is invalid", ErrValidation)
	}
	return nil
}

func normalizeContact(contact model.PurchaseContact) model.PurchaseContact {
	return model.PurchaseContact{
		Name:     strings.TrimSpace(contact.Name),
		Email:    strings.ToLower(strings.TrimSpace(contact.Email)),
		Phone:    strings.TrimSpace(contact.Phone),
		Document: strings.TrimSpace(contact.Document),
	}
}

func isConfirmationStatus(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "confirmed", "approved", "paid", "success":
		return true
	default:
		return false
	}
}
