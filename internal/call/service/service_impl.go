package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	"github.com/smallbiznis/receptionist/internal/call/domain"
	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	"github.com/smallbiznis/receptionist/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	BusinessRepo businessdomain.Repository
	BusinessSvc  businessdomain.Service
	Clock        clock.Clock      `optional:"true"`
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	businessRepo businessdomain.Repository
	businessSvc  businessdomain.Service
	clock        clock.Clock
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("call.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		businessRepo: p.BusinessRepo,
		businessSvc:  p.BusinessSvc,
		clock:        clk,
		metrics:      p.Metrics,
	}
}

// RecordStatus applies a Twilio status callback. The first callback for a
// call sid opens the record against the business that owns the dialled
// number. A completed call bills ceil(seconds/60) minutes exactly once,
// however often Twilio replays the callback.
func (s *Service) RecordStatus(ctx context.Context, update domain.StatusUpdate) (domain.Call, error) {
	sid := strings.TrimSpace(update.CallSID)
	if sid == "" {
		return domain.Call{}, domain.ErrInvalidCallSID
	}
	status, ok := domain.NormalizeStatus(update.Status)
	if !ok {
		return domain.Call{}, domain.ErrInvalidCallStatus
	}
	update.CallSID, update.Status = sid, status

	call, err := s.recordStatus(ctx, update)
	if db.IsDuplicateKeyErr(err) {
		// a concurrent callback opened the same call first
		call, err = s.recordStatus(ctx, update)
	}
	return call, err
}

func (s *Service) recordStatus(ctx context.Context, update domain.StatusUpdate) (domain.Call, error) {
	var (
		result   domain.Call
		finished bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now().UTC()
		call, err := s.repo.FindCallBySID(ctx, tx, update.CallSID)
		if err != nil {
			return err
		}
		if call == nil {
			call, err = s.openCall(ctx, tx, update)
			if err != nil {
				return err
			}
		}
		if domain.IsTerminal(call.Status) {
			result = *call
			return nil
		}

		if from := strings.TrimSpace(update.From); from != "" && call.FromNumber == "" {
			call.FromNumber = from
		}
		call.Status = update.Status
		call.UpdatedAt = now

		if !domain.IsTerminal(update.Status) {
			result = *call
			return s.repo.UpdateCall(ctx, tx, call)
		}

		seconds := max(update.DurationSeconds, 0)
		if update.Status == domain.StatusCompleted {
			call.Duration = max(1, seconds)
			call.MinutesBilled = domain.BilledMinutes(seconds)
		} else {
			call.Duration = seconds
		}
		won, err := s.repo.FinishCall(ctx, tx, call)
		if err != nil {
			return err
		}
		if !won {
			latest, err := s.repo.FindCallBySID(ctx, tx, update.CallSID)
			if err != nil {
				return err
			}
			if latest != nil {
				result = *latest
			}
			return nil
		}
		if call.MinutesBilled > 0 {
			if err := s.businessRepo.AddMinutesUsed(ctx, tx, call.BusinessID, call.MinutesBilled, now); err != nil {
				return err
			}
		}
		result, finished = *call, true
		return nil
	})
	if err != nil {
		return domain.Call{}, err
	}

	if finished {
		s.metrics.RecordCallCompleted(ctx, result.Status, result.MinutesBilled)
		s.log.Info("call finished",
			zap.String("call_sid", result.CallSID),
			zap.String("business_id", result.BusinessID.String()),
			zap.String("status", result.Status),
			zap.Int("duration", result.Duration),
			zap.Int("minutes_billed", result.MinutesBilled),
		)
	}
	return result, nil
}

func (s *Service) openCall(ctx context.Context, tx *gorm.DB, update domain.StatusUpdate) (*domain.Call, error) {
	to := strings.TrimSpace(update.To)
	if to == "" {
		return nil, domain.ErrUnknownNumber
	}
	business, err := s.businessRepo.FindByPhoneNumber(ctx, tx, to)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, domain.ErrUnknownNumber
	}

	now := s.clock.Now().UTC()
	call := &domain.Call{
		ID:         s.genID.Generate(),
		BusinessID: business.ID,
		CallSID:    update.CallSID,
		FromNumber: strings.TrimSpace(update.From),
		ToNumber:   to,
		Status:     domain.StatusInProgress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertCall(ctx, tx, call); err != nil {
		return nil, err
	}
	s.log.Info("call opened",
		zap.String("call_sid", call.CallSID),
		zap.String("business_id", business.ID.String()),
	)
	return call, nil
}

// RecordRecording attaches a finished recording. A blank url is ignored.
func (s *Service) RecordRecording(ctx context.Context, callSID, recordingURL string) error {
	sid := strings.TrimSpace(callSID)
	if sid == "" {
		return domain.ErrInvalidCallSID
	}
	recordingURL = strings.TrimSpace(recordingURL)
	if recordingURL == "" {
		return nil
	}

	call, err := s.repo.FindCallBySID(ctx, s.db, sid)
	if err != nil {
		return err
	}
	if call == nil {
		return domain.ErrCallNotFound
	}
	call.RecordingURL = recordingURL
	call.UpdatedAt = s.clock.Now().UTC()
	return s.repo.UpdateCall(ctx, s.db, call)
}

// ListRecent returns the caller's latest calls, newest first.
func (s *Service) ListRecent(ctx context.Context) ([]domain.CallView, error) {
	business, err := s.ownedBusiness(ctx)
	if err != nil {
		return nil, err
	}
	calls, err := s.repo.ListCalls(ctx, s.db, business.ID, domain.RecentCallsLimit)
	if err != nil {
		return nil, err
	}
	if calls == nil {
		calls = []domain.CallView{}
	}
	return calls, nil
}

// SearchContact returns the caller's contact for phone, or nil when there is
// none on file.
func (s *Service) SearchContact(ctx context.Context, phone string) (*domain.Contact, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, domain.ErrPhoneRequired
	}
	business, err := s.ownedBusiness(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindContactByPhone(ctx, s.db, business.ID, phone)
}

// UpsertContact creates the contact for a phone number or updates the fields
// the request carries.
func (s *Service) UpsertContact(ctx context.Context, req domain.ContactUpsert) (domain.Contact, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return domain.Contact{}, domain.ErrPhoneRequired
	}
	business, err := s.ownedBusiness(ctx)
	if err != nil {
		return domain.Contact{}, err
	}

	existing, err := s.repo.FindContactByPhone(ctx, s.db, business.ID, phone)
	if err != nil {
		return domain.Contact{}, err
	}
	now := s.clock.Now().UTC()
	if existing != nil {
		return s.updateContact(ctx, existing, req, now)
	}

	contact := domain.Contact{
		ID:          s.genID.Generate(),
		BusinessID:  business.ID,
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyContact(&contact, req)
	if err := s.repo.InsertContact(ctx, s.db, &contact); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Contact{}, err
		}
		winner, findErr := s.repo.FindContactByPhone(ctx, s.db, business.ID, phone)
		if findErr != nil || winner == nil {
			return domain.Contact{}, err
		}
		return s.updateContact(ctx, winner, req, now)
	}
	return contact, nil
}

func (s *Service) updateContact(ctx context.Context, contact *domain.Contact, req domain.ContactUpsert, now time.Time) (domain.Contact, error) {
	applyContact(contact, req)
	contact.UpdatedAt = now
	if err := s.repo.UpdateContact(ctx, s.db, contact); err != nil {
		return domain.Contact{}, err
	}
	return *contact, nil
}

func applyContact(contact *domain.Contact, req domain.ContactUpsert) {
	if req.Name != nil {
		contact.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		contact.Email = strings.TrimSpace(*req.Email)
	}
	if req.Notes != nil {
		contact.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.IsBlocked != nil {
		contact.IsBlocked = *req.IsBlocked
	}
}

func (s *Service) ownedBusiness(ctx context.Context) (*businessdomain.Business, error) {
	business, err := s.businessSvc.GetMine(ctx)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, domain.ErrBusinessNotFound
	}
	return business, nil
}
