package onboarding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/notify"
	"go.uber.org/zap"
)

var (
	ErrMissingBackend   = errors.New("missing_backend")
	ErrMissingStore     = errors.New("missing_store")
	ErrMissingNavigator = errors.New("missing_navigator")
)

type Params struct {
	Backend   Backend
	Store     Store
	Navigator Navigator
	Clock     clock.Clock
	Log       *zap.Logger

	// LandingURL is the location the wizard was opened at, including any
	// resumption query signals.
	LandingURL   string
	DashboardURL string
	NotifyTTL    time.Duration
}

// Controller runs the onboarding Machine: it owns the session, executes
// effects and feeds their results back as events.
type Controller struct {
	mu      sync.Mutex
	machine Machine
	session Session

	backend      Backend
	store        Store
	nav          Navigator
	log          *zap.Logger
	notices      *notify.Center
	dashboardURL string

	inflight sync.WaitGroup
}

// NewController restores the durable business id and reserved number, then
// consumes the landing URL signals once.
func NewController(ctx context.Context, p Params) (*Controller, error) {
	if p.Backend == nil {
		return nil, ErrMissingBackend
	}
	if p.Store == nil {
		return nil, ErrMissingStore
	}
	if p.Navigator == nil {
		return nil, ErrMissingNavigator
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	c := &Controller{
		backend:      p.Backend,
		store:        p.Store,
		nav:          p.Navigator,
		log:          log.Named("onboarding.controller"),
		notices:      notify.NewCenter(p.Clock, p.NotifyTTL),
		dashboardURL: p.DashboardURL,
	}

	businessID := c.load(ctx, KeyBusinessID)
	reserved := ""
	if businessID != "" {
		reserved = c.load(ctx, KeyReservedNumber)
	}
	c.session = NewSession(businessID, reserved)
	if businessID != "" {
		c.log.Info("resuming onboarding",
			zap.String("business_id", businessID),
			zap.Bool("number_reserved", reserved != ""),
		)
	}

	sig, clean := ParseSignals(p.LandingURL)
	if !sig.Empty() {
		c.nav.ReplaceURL(clean)
	}
	if sig.PaymentConfirmed {
		c.notices.Push(notify.KindSuccess, "Subscription active", "")
		c.Dispatch(ctx, PaymentConfirmed{})
	}
	if sig.CalendarConnected {
		c.notices.Push(notify.KindSuccess, "Google Calendar connected", "")
	}
	if sig.CalendarError != "" {
		c.notices.Push(notify.KindError, calendarErrorMessage(sig.CalendarError), sig.Details)
	}

	return c, nil
}

func (c *Controller) load(ctx context.Context, key string) string {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("durable store read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Dispatch applies ev and runs the resulting effects. Backend calls run in
// the background and re-enter Dispatch with their result; they are not
// cancelled when ctx is.
func (c *Controller) Dispatch(ctx context.Context, ev Event) {
	c.mu.Lock()
	next, effects := c.machine.Handle(c.session, ev)
	c.session = next
	c.mu.Unlock()

	for _, eff := range effects {
		c.run(ctx, eff)
	}
}

func (c *Controller) run(ctx context.Context, eff Effect) {
	switch e := eff.(type) {
	case Persist:
		if err := c.store.Set(ctx, e.Key, e.Value); err != nil {
			c.log.Error("durable store write failed", zap.String("key", e.Key), zap.Error(err))
			c.notices.Push(notify.KindError, "Progress could not be saved", "")
		}
	case Forget:
		if err := c.store.Delete(ctx, e.Key); err != nil {
			c.log.Warn("durable store delete failed", zap.String("key", e.Key), zap.Error(err))
		}
	case Navigate:
		c.nav.Navigate(e.URL)
	case ExitToDashboard:
		c.log.Info("onboarding complete")
		c.nav.Navigate(c.dashboardURL)
	case RedirectToCalendar:
		target, err := c.backend.CalendarAuthorizationURL(e.BusinessID)
		if err != nil {
			c.log.Warn("calendar authorization unavailable", zap.String("business_id", e.BusinessID), zap.Error(err))
			c.notices.Push(notify.KindError, "Google Calendar connection failed", err.Error())
			return
		}
		c.nav.Navigate(target)

	case StartCheckout:
		c.async(ctx, func(ctx context.Context) Event {
			url, err := c.backend.CreateCheckoutSession(ctx)
			return CheckoutCreated{URL: url, Err: err}
		})
	case CreateBusiness:
		c.async(ctx, func(ctx context.Context) Event {
			id, err := c.backend.CreateBusiness(ctx, e.Input)
			return BusinessCreated{Epoch: e.Epoch, BusinessID: id, ThenCalendar: e.ThenCalendar, Err: err}
		})
	case SearchNumbers:
		if e.Fallback {
			c.log.Debug("area code search empty, searching all numbers")
		}
		c.async(ctx, func(ctx context.Context) Event {
			found, err := c.backend.SearchNumbers(ctx, e.AreaCode)
			return SearchCompleted{Epoch: e.Epoch, AreaCode: e.AreaCode, Fallback: e.Fallback, Candidates: found, Err: err}
		})
	case PurchaseNumber:
		c.async(ctx, func(ctx context.Context) Event {
			number, err := c.backend.PurchaseNumber(ctx, e.Number, e.BusinessID)
			if err == nil && number == "" {
				number = e.Number
			}
			return NumberPurchased{Epoch: e.Epoch, Number: number, Err: err}
		})
	case ReleaseNumber:
		c.async(ctx, func(ctx context.Context) Event {
			err := c.backend.ReleaseNumber(ctx, e.BusinessID)
			if err == nil {
				c.notices.Push(notify.KindInfo, "Phone number released", "")
			}
			return NumberReleased{Err: err}
		})
	case UpdateBusiness:
		c.async(ctx, func(ctx context.Context) Event {
			return BusinessUpdated{Epoch: e.Epoch, Err: c.backend.UpdateBusiness(ctx, e.BusinessID, e.Update)}
		})
	}
}

func (c *Controller) async(ctx context.Context, call func(context.Context) Event) {
	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ev := call(ctx)
		if err := resultErr(ev); err != nil {
			c.log.Warn("onboarding action failed", zap.String("event", eventName(ev)), zap.Error(err))
		}
		c.Dispatch(ctx, ev)
	}()
}

// Wait blocks until every in-flight backend call has been applied.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) Notifications() []notify.Notification {
	return c.notices.Active()
}

func (c *Controller) Dismiss(id int) {
	c.notices.Dismiss(id)
}

func resultErr(ev Event) error {
	switch e := ev.(type) {
	case CheckoutCreated:
		return e.Err
	case BusinessCreated:
		return e.Err
	case SearchCompleted:
		return e.Err
	case NumberPurchased:
		return e.Err
	case NumberReleased:
		return e.Err
	case BusinessUpdated:
		return e.Err
	}
	return nil
}

func eventName(ev Event) string {
	switch ev.(type) {
	case CheckoutCreated:
		return "checkout"
	case BusinessCreated:
		return "create_business"
	case SearchCompleted:
		return "search_numbers"
	case NumberPurchased:
		return "purchase_number"
	case NumberReleased:
		return "release_number"
	case BusinessUpdated:
		return "update_business"
	default:
		return "unknown"
	}
}
