package quota

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

// Unlimited is reported as Remaining for plans without a cap.
const Unlimited = -1

// Decision is the outcome of a reservation attempt.
type Decision struct {
	Allowed     bool
	Plan        enums.Plan
	Limit       *int
	Used        int
	Remaining   int
	UpgradeHint string
	ResetsAt    time.Time
}

// Err converts a denial into the QUOTA_EXCEEDED error surfaced to clients.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	details := map[string]any{
		"upgrade_hint": d.UpgradeHint,
		"plan":         d.Plan,
	}
	if d.Limit != nil {
		details["limit"] = *d.Limit
	}
	return pkgerrors.New(pkgerrors.CodeQuotaExceeded, "monthly invoice limit reached").WithDetails(details)
}

// Usage is a read-only snapshot of the effective period.
type Usage struct {
	Plan      enums.Plan `json:"plan"`
	Used      int        `json:"usage"`
	Limit     *int       `json:"limit"`
	Remaining int        `json:"remaining"`
	ResetsAt  time.Time  `json:"resets_at"`
}

type Service struct {
	repo  *Repository
	clock func() time.Time
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quota repository required")
	}
	return &Service{repo: repo, clock: func() time.Time { return time.Now().UTC() }}, nil
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// CheckAndReserve consumes one invoice slot inside tx. Rolling tx back releases the slot.
func (s *Service) CheckAndReserve(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (Decision, error) {
	now := s.clock()

	tenant, err := s.loadTenant(ctx, tx, tenantID)
	if err != nil {
		return Decision{}, err
	}

	if !now.Before(tenant.PeriodResetsAt) {
		if _, err := s.repo.ResetIfDue(ctx, tx, tenantID, now, NextPeriodStart(now)); err != nil {
			return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset quota period")
		}
	}

	limit, limited := LimitFor(tenant.Plan)
	if !limited {
		if err := s.repo.Increment(ctx, tx, tenantID, now); err != nil {
			return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record usage")
		}
		tenant, err = s.loadTenant(ctx, tx, tenantID)
		if err != nil {
			return Decision{}, err
		}
		return Decision{
			Allowed:   true,
			Plan:      tenant.Plan,
			Used:      tenant.UsageCount,
			Remaining: Unlimited,
			ResetsAt:  tenant.PeriodResetsAt,
		}, nil
	}

	allowed, err := s.repo.TryIncrement(ctx, tx, tenantID, limit, now)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve quota")
	}
	tenant, err = s.loadTenant(ctx, tx, tenantID)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Allowed:  allowed,
		Plan:     tenant.Plan,
		Limit:    &limit,
		Used:     tenant.UsageCount,
		ResetsAt: tenant.PeriodResetsAt,
	}
	if allowed {
		decision.Remaining = max(limit-tenant.UsageCount, 0)
	} else {
		decision.UpgradeHint = UpgradeHint(tenant.Plan)
	}
	return decision, nil
}

// Usage reports the reset-aware usage without mutating the tenant.
func (s *Service) Usage(ctx context.Context, tenantID uuid.UUID) (*Usage, error) {
	tenant, err := s.loadTenant(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	used, resetsAt := tenant.UsageCount, tenant.PeriodResetsAt
	if !now.Before(resetsAt) {
		used, resetsAt = 0, NextPeriodStart(now)
	}

	usage := &Usage{Plan: tenant.Plan, Used: used, Remaining: Unlimited, ResetsAt: resetsAt}
	if limit, limited := LimitFor(tenant.Plan); limited {
		usage.Limit = &limit
		usage.Remaining = max(limit-used, 0)
	}
	return usage, nil
}

// OpenTenant registers a business on plan with a fresh usage period.
func (s *Service) OpenTenant(ctx context.Context, name, contactEmail string, plan enums.Plan) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant name is required")
	}
	if !plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}
	tenant := &models.Tenant{
		ID:             uuid.New(),
		Name:           name,
		Plan:           plan,
		PeriodResetsAt: NextPeriodStart(s.clock()),
	}
	if email := strings.ToLower(strings.TrimSpace(contactEmail)); email != "" {
		tenant.ContactEmail = &email
	}
	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tenant")
	}
	return tenant, nil
}

// SetPlan moves a tenant to another tier. Usage carries over.
func (s *Service) SetPlan(ctx context.Context, tenantID uuid.UUID, plan enums.Plan) error {
	if !plan.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}
	ok, err := s.repo.SetPlan(ctx, tenantID, plan, s.clock())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return nil
}

func (s *Service) loadTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.repo.FindTenant(ctx, tx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	return tenant, nil
}
