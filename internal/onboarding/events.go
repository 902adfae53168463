package onboarding

// Event is an input to Machine.Handle: a user gesture, a resumption signal or
// the result of an effect.
type Event interface {
	isEvent()
}

// User gestures.
type (
	PaymentConfirmed struct{}
	Subscribe        struct{}
	Next             struct{}
	Back             struct{}
	Submit           struct{}
	ConnectCalendar  struct{}
	EditProfile      struct{ Profile Profile }
	EditPersona      struct{ Persona PersonaDraft }
	SetTimezone      struct{ Timezone string }
	Search           struct{ AreaCode string }
	SelectNumber     struct{ Number string }
	Release          struct{}
)

// Effect results.
type (
	CheckoutCreated struct {
		URL string
		Err error
	}
	BusinessCreated struct {
		Epoch        uint64
		BusinessID   string
		ThenCalendar bool
		Err          error
	}
	SearchCompleted struct {
		Epoch      uint64
		AreaCode   string
		Fallback   bool
		Candidates []Candidate
		Err        error
	}
	NumberPurchased struct {
		Epoch  uint64
		Number string
		Err    error
	}
	NumberReleased struct {
		Err error
	}
	BusinessUpdated struct {
		Epoch uint64
		Err   error
	}
)

func (PaymentConfirmed) isEvent() {}
func (Subscribe) isEvent()        {}
func (Next) isEvent()             {}
func (Back) isEvent()             {}
func (Submit) isEvent()           {}
func (ConnectCalendar) isEvent()  {}
func (EditProfile) isEvent()      {}
func (EditPersona) isEvent()      {}
func (SetTimezone) isEvent()      {}
func (Search) isEvent()           {}
func (SelectNumber) isEvent()     {}
func (Release) isEvent()          {}
func (CheckoutCreated) isEvent()  {}
func (BusinessCreated) isEvent()  {}
func (SearchCompleted) isEvent()  {}
func (NumberPurchased) isEvent()  {}
func (NumberReleased) isEvent()   {}
func (BusinessUpdated) isEvent()  {}

// Effect is work the controller performs on behalf of the machine.
type Effect interface {
	isEffect()
}

type (
	StartCheckout  struct{}
	CreateBusiness struct {
		Epoch        uint64
		Input        CreateBusinessInput
		ThenCalendar bool
	}
	SearchNumbers struct {
		Epoch    uint64
		AreaCode string
		Fallback bool
	}
	PurchaseNumber struct {
		Epoch      uint64
		Number     string
		BusinessID string
	}
	ReleaseNumber struct {
		BusinessID string
	}
	UpdateBusiness struct {
		Epoch      uint64
		BusinessID string
		Update     BusinessUpdate
	}
	Persist struct {
		Key   string
		Value string
	}
	Forget struct {
		Key string
	}
	Navigate struct {
		URL string
	}
	RedirectToCalendar struct {
		BusinessID string
	}
	ExitToDashboard struct{}
)

func (StartCheckout) isEffect()      {}
func (CreateBusiness) isEffect()     {}
func (SearchNumbers) isEffect()      {}
func (PurchaseNumber) isEffect()     {}
func (ReleaseNumber) isEffect()      {}
func (UpdateBusiness) isEffect()     {}
func (Persist) isEffect()            {}
func (Forget) isEffect()             {}
func (Navigate) isEffect()           {}
func (RedirectToCalendar) isEffect() {}
func (ExitToDashboard) isEffect()    {}
