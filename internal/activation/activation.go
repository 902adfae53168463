// Package activation drives the dashboard control that pauses and resumes
// call answering.
package activation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/smallbiznis/receptionist/internal/notify"
	"go.uber.org/zap"
)

var (
	ErrNoPhoneNumber = errors.New("no_phone_number")
	ErrUnavailable   = errors.New("receptionist_unavailable")
	ErrInFlight      = errors.New("toggle_in_flight")
)

type State int

const (
	Unavailable State = iota
	Off
	On
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "unavailable"
	}
}

// Record is the slice of the business record activation depends on.
type Record struct {
	HasPhoneNumber     bool
	SubscriptionStatus string
	MinutesUsed        int
	MinutesLimit       int
	Enabled            bool
}

// Derive computes the activation state from the authoritative record.
func Derive(r Record) State {
	if !r.HasPhoneNumber {
		return Unavailable
	}
	switch strings.ToLower(strings.TrimSpace(r.SubscriptionStatus)) {
	case "active", "trialing":
	default:
		return Unavailable
	}
	if r.MinutesUsed >= r.MinutesLimit {
		return Unavailable
	}
	if r.Enabled {
		return On
	}
	return Off
}

// Optimistic is the locally guessed state while a toggle call is pending.
type Optimistic struct {
	State   State
	Pending bool
}

// Reconcile returns what to display: the optimistic guess while a call is
// pending, otherwise the authoritative state.
func Reconcile(optimistic Optimistic, authoritative State) State {
	if optimistic.Pending {
		return optimistic.State
	}
	return authoritative
}

type Backend interface {
	GetBusiness(ctx context.Context) (Record, error)
	SetReceptionistEnabled(ctx context.Context, enabled bool) (Record, error)
}

// Toggle holds the authoritative record plus at most one pending change.
type Toggle struct {
	mu         sync.Mutex
	backend    Backend
	notices    *notify.Center
	log        *zap.Logger
	record     Record
	optimistic Optimistic
	inFlight   bool
}

func NewToggle(backend Backend, notices *notify.Center, log *zap.Logger) *Toggle {
	if log == nil {
		log = zap.NewNop()
	}
	if notices == nil {
		notices = notify.NewCenter(nil, 0)
	}
	return &Toggle{
		backend: backend,
		notices: notices,
		log:     log.Named("activation.toggle"),
	}
}

// Load replaces the record with a fresh copy from the backend.
func (t *Toggle) Load(ctx context.Context) error {
	rec, err := t.backend.GetBusiness(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.record = rec
	t.mu.Unlock()
	return nil
}

func (t *Toggle) Record() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

// Display is the state the control should render.
func (t *Toggle) Display() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Reconcile(t.optimistic, Derive(t.record))
}

// Disabled reports whether Set would be refused.
func (t *Toggle) Disabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refusal() != nil
}

func (t *Toggle) refusal() error {
	switch {
	case t.inFlight:
		return ErrInFlight
	case !t.record.HasPhoneNumber:
		return ErrNoPhoneNumber
	case Derive(t.record) == Unavailable:
		return ErrUnavailable
	}
	return nil
}

func (t *Toggle) Notifications() []notify.Notification {
	return t.notices.Active()
}

// Set flips the display to desired immediately, then asks the backend. On
// success the re-fetched record wins; on failure the display reverts and one
// error notification is shown. Refused calls touch neither display nor
// network.
func (t *Toggle) Set(ctx context.Context, desired bool) error {
	t.mu.Lock()
	if err := t.refusal(); err != nil {
		t.mu.Unlock()
		return err
	}
	guess := Off
	if desired {
		guess = On
	}
	t.optimistic = Optimistic{State: guess, Pending: true}
	t.inFlight = true
	t.mu.Unlock()

	rec, err := t.backend.SetReceptionistEnabled(ctx, desired)
	if err != nil {
		t.settle(nil)
		t.log.Warn("receptionist toggle failed", zap.Bool("enabled", desired), zap.Error(err))
		t.notices.Push(notify.KindError, "Could not update the receptionist", err.Error())
		return err
	}

	if fresh, ferr := t.backend.GetBusiness(ctx); ferr == nil {
		rec = fresh
	} else {
		t.log.Warn("refetch after toggle failed", zap.Error(ferr))
	}
	t.settle(&rec)
	return nil
}

func (t *Toggle) settle(rec *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec != nil {
		t.record = *rec
	}
	t.optimistic = Optimistic{}
	t.inFlight = false
}
