package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/receptionist/internal/business/domain"
	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/identity"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	"github.com/smallbiznis/receptionist/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("business.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

// Create registers the caller's business. An owner has at most one business;
// repeated calls return the existing record unchanged.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Business, error) {
	owner, ok := identity.FromContext(ctx)
	if !ok {
		return domain.Business{}, domain.ErrUnauthenticated
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Business{}, domain.ErrInvalidName
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = domain.DefaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return domain.Business{}, domain.ErrInvalidTimezone
	}

	existing, err := s.repo.FindByOwnerEmail(ctx, s.db, owner.Email)
	if err != nil {
		return domain.Business{}, err
	}
	if existing != nil {
		s.log.Info("business already exists for owner",
			zap.String("business_id", existing.ID.String()),
		)
		return *existing, nil
	}

	now := s.clock.Now().UTC()
	business := domain.Business{
		ID:                  s.genID.Generate(),
		OwnerEmail:          owner.Email,
		Name:                name,
		Slug:                slug.Make(name),
		Industry:            strings.TrimSpace(req.Industry),
		Description:         strings.TrimSpace(req.Description),
		PhoneNumberStatus:   domain.PhoneStatusPending,
		ReceptionistEnabled: true,
		IsActive:            true,
		GreetingStyle:       domain.GreetingProfessional,
		Timezone:            timezone,
		FAQs:                datatypes.NewJSONSlice([]domain.FAQ{}),
		SubscriptionStatus:  domain.SubscriptionActive,
		MinutesLimit:        domain.DefaultMinutesLimit,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Insert(ctx, s.db, &business); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Business{}, err
		}
		// a concurrent create for the same owner won the unique index
		winner, findErr := s.repo.FindByOwnerEmail(ctx, s.db, owner.Email)
		if findErr != nil || winner == nil {
			return domain.Business{}, err
		}
		return *winner, nil
	}

	s.metrics.RecordBusinessCreated(ctx, business.Industry)
	s.log.Info("business created",
		zap.String("business_id", business.ID.String()),
		zap.String("slug", business.Slug),
	)
	return business, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Business, error) {
	business, err := s.loadOwned(ctx, id)
	if err != nil {
		return domain.Business{}, err
	}
	return *business, nil
}

// GetMine returns the caller's business, or nil when none exists yet.
func (s *Service) GetMine(ctx context.Context) (*domain.Business, error) {
	owner, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	business, err := s.repo.FindByOwnerEmail(ctx, s.db, owner.Email)
	if err != nil {
		return nil, err
	}
	if business != nil || owner.BusinessID == "" {
		return business, nil
	}

	id, err := parseID(owner.BusinessID)
	if err != nil {
		return nil, nil
	}
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Business, error) {
	business, err := s.loadOwned(ctx, req.ID)
	if err != nil {
		return domain.Business{}, err
	}
	return s.applyUpdate(ctx, business, req)
}

func (s *Service) UpdateMine(ctx context.Context, req domain.UpdateRequest) (domain.Business, error) {
	business, err := s.GetMine(ctx)
	if err != nil {
		return domain.Business{}, err
	}
	if business == nil {
		return domain.Business{}, domain.ErrNotFound
	}
	return s.applyUpdate(ctx, business, req)
}

func (s *Service) SetReceptionistEnabled(ctx context.Context, enabled bool) (domain.Business, error) {
	business, err := s.GetMine(ctx)
	if err != nil {
		return domain.Business{}, err
	}
	if business == nil {
		return domain.Business{}, domain.ErrNotFound
	}
	if enabled && !business.HasPhoneNumber() {
		return domain.Business{}, domain.ErrPhoneNumberRequired
	}

	business.ReceptionistEnabled = enabled
	business.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, business); err != nil {
		return domain.Business{}, err
	}

	s.metrics.RecordReceptionistToggle(ctx, enabled)
	s.log.Info("receptionist toggled",
		zap.String("business_id", business.ID.String()),
		zap.Bool("enabled", enabled),
	)
	return *business, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (domain.Business, error) {
	business, err := s.loadOwned(ctx, id)
	if err != nil {
		return domain.Business{}, err
	}
	business.IsActive = active
	business.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, business); err != nil {
		return domain.Business{}, err
	}
	return *business, nil
}

func (s *Service) AssignPhoneNumber(ctx context.Context, req domain.AssignPhoneNumberRequest) (domain.Business, error) {
	number := strings.TrimSpace(req.Number)
	if !e164Pattern.MatchString(number) {
		return domain.Business{}, domain.ErrInvalidPhoneNumber
	}

	business, err := s.repo.FindByID(ctx, s.db, req.BusinessID)
	if err != nil {
		return domain.Business{}, err
	}
	if business == nil {
		return domain.Business{}, domain.ErrNotFound
	}

	business.PhoneNumber = number
	business.PhoneNumberSID = strings.TrimSpace(req.SID)
	business.PhoneNumberStatus = domain.PhoneStatusActive
	business.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, business); err != nil {
		return domain.Business{}, err
	}
	return *business, nil
}

func (s *Service) ClearPhoneNumber(ctx context.Context, id snowflake.ID) (domain.Business, error) {
	business, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Business{}, err
	}
	if business == nil {
		return domain.Business{}, domain.ErrNotFound
	}

	business.PhoneNumber = ""
	business.PhoneNumberSID = ""
	business.PhoneNumberStatus = domain.PhoneStatusCancelled
	business.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, business); err != nil {
		return domain.Business{}, err
	}
	return *business, nil
}

func (s *Service) LinkStripeCustomer(ctx context.Context, id snowflake.ID, customerID string) error {
	business, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if business == nil {
		return domain.ErrNotFound
	}
	business.StripeCustomerID = strings.TrimSpace(customerID)
	business.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Update(ctx, s.db, business)
}

// ApplySubscription records a billing state change. The business is resolved
// by id first and by Stripe customer second.
func (s *Service) ApplySubscription(ctx context.Context, update domain.SubscriptionUpdate) (domain.Business, error) {
	status := strings.ToLower(strings.TrimSpace(update.Status))
	switch status {
	case domain.SubscriptionActive, domain.SubscriptionTrialing, domain.SubscriptionPastDue, domain.SubscriptionCanceled:
	default:
		return domain.Business{}, domain.ErrInvalidSubscriptionStatus
	}

	var (
		business *domain.Business
		err      error
	)
	if raw := strings.TrimSpace(update.BusinessID); raw != "" {
		id, parseErr := parseID(raw)
		if parseErr != nil {
			return domain.Business{}, parseErr
		}
		business, err = s.repo.FindByID(ctx, s.db, id)
	} else if customerID := strings.TrimSpace(update.StripeCustomerID); customerID != "" {
		business, err = s.repo.FindByStripeCustomerID(ctx, s.db, customerID)
	}
	if err != nil {
		return domain.Business{}, err
	}
	if business == nil {
		return domain.Business{}, domain.ErrNotFound
	}

	business.SubscriptionStatus = status
	if update.MinutesLimit > 0 {
		business.MinutesLimit = update.MinutesLimit
	}
	if customerID := strings.TrimSpace(update.StripeCustomerID); customerID != "" && business.StripeCustomerID == "" {
		business.StripeCustomerID = customerID
	}
	business.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, business); err != nil {
		return domain.Business{}, err
	}

	s.log.Info("subscription applied",
		zap.String("business_id", business.ID.String()),
		zap.String("status", status),
		zap.Int("minutes_limit", business.MinutesLimit),
	)
	return *business, nil
}

func (s *Service) applyUpdate(ctx context.Context, business *domain.Business, req domain.UpdateRequest) (domain.Business, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Business{}, domain.ErrInvalidName
		}
		business.Name = name
		business.Slug = slug.Make(name)
	}
	if req.Industry != nil {
		business.Industry = strings.TrimSpace(*req.Industry)
	}
	if req.Description != nil {
		business.Description = strings.TrimSpace(*req.Description)
	}
	if req.PhoneNumber != nil {
		number := strings.TrimSpace(*req.PhoneNumber)
		if number != "" && !e164Pattern.MatchString(number) {
			return domain.Business{}, domain.ErrInvalidPhoneNumber
		}
		business.PhoneNumber = number
	}
	if req.Timezone != nil {
		timezone := strings.TrimSpace(*req.Timezone)
		if timezone == "" {
			timezone = domain.DefaultTimezone
		}
		if _, err := time.LoadLocation(timezone); err != nil {
			return domain.Business{}, domain.ErrInvalidTimezone
		}
		business.Timezone = timezone
	}
	if req.GreetingStyle != nil {
		style := strings.ToLower(strings.TrimSpace(*req.GreetingStyle))
		switch style {
		case domain.GreetingProfessional, domain.GreetingFriendly, domain.GreetingCasual:
			business.GreetingStyle = style
		default:
			return domain.Business{}, domain.ErrInvalidGreetingStyle
		}
	}
	if req.BusinessHours != nil {
		business.BusinessHours = strings.TrimSpace(*req.BusinessHours)
	}
	if req.CommonServices != nil {
		business.CommonServices = strings.TrimSpace(*req.CommonServices)
	}
	if req.FAQs != nil {
		business.FAQs = datatypes.NewJSONSlice(domain.PruneFAQs(*req.FAQs))
	}
	if req.ReceptionistEnabled != nil {
		if *req.ReceptionistEnabled && !business.HasPhoneNumber() {
			return domain.Business{}, domain.ErrPhoneNumberRequired
		}
		business.ReceptionistEnabled = *req.ReceptionistEnabled
	}

	business.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, business); err != nil {
		return domain.Business{}, err
	}
	return *business, nil
}

func (s *Service) loadOwned(ctx context.Context, rawID string) (*domain.Business, error) {
	owner, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	business, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, domain.ErrNotFound
	}
	if !strings.EqualFold(business.OwnerEmail, owner.Email) && owner.BusinessID != business.ID.String() {
		return nil, domain.ErrForbidden
	}
	return business, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
