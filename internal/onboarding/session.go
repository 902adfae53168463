package onboarding

import "strings"

const DefaultTimezone = "America/New_York"

type GreetingStyle string

const (
	GreetingProfessional GreetingStyle = "professional"
	GreetingFriendly     GreetingStyle = "friendly"
	GreetingCasual       GreetingStyle = "casual"
)

func (g GreetingStyle) Valid() bool {
	switch g {
	case GreetingProfessional, GreetingFriendly, GreetingCasual:
		return true
	default:
		return false
	}
}

type Profile struct {
	Name        string
	Industry    string
	Description string
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type PersonaDraft struct {
	GreetingStyle GreetingStyle
	BusinessHours string
	Services      string
	FAQs          []FAQ
}

// PruneFAQs drops entries whose question or answer is blank after trimming.
func PruneFAQs(faqs []FAQ) []FAQ {
	out := make([]FAQ, 0, len(faqs))
	for _, f := range faqs {
		q := strings.TrimSpace(f.Question)
		a := strings.TrimSpace(f.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, FAQ{Question: q, Answer: a})
	}
	return out
}

// Candidate is a number offered by a search.
type Candidate struct {
	PhoneNumber  string `json:"phoneNumber"`
	FriendlyName string `json:"friendlyName"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
}

// Action identifies a side-effecting user gesture for busy tracking.
type Action uint8

const (
	ActionCheckout Action = 1 << iota
	ActionCreateBusiness
	ActionSearch
	ActionPurchase
	ActionRelease
	ActionSubmit
	ActionConnectCalendar
)

// ActionSet is a value-typed set of in-flight actions.
type ActionSet uint8

func (s ActionSet) Has(a Action) bool         { return s&ActionSet(a) != 0 }
func (s ActionSet) With(a Action) ActionSet    { return s | ActionSet(a) }
func (s ActionSet) Without(a Action) ActionSet { return s &^ ActionSet(a) }

type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureConflict   FailureKind = "conflict"
	FailurePayment    FailureKind = "payment"
	FailureTransient  FailureKind = "transient"
)

// Failure is the step-local error shown after an action is rejected.
type Failure struct {
	Kind      FailureKind
	Message   string
	Retryable bool
}

// Session is the wizard's working state. It is a value: Machine.Handle
// returns a new Session and never mutates maps or slices it was given.
type Session struct {
	State State

	// BusinessID and ReservedNumber are durable facts shared by every step.
	BusinessID     string
	ReservedNumber string

	Profile  Profile
	Persona  PersonaDraft
	Timezone string

	AreaCode   string
	Candidates []Candidate
	Selected   string

	PaymentConfirmed bool
	Busy             ActionSet
	FieldErrors      map[string]string
	Failure          *Failure

	// Epoch advances on every step change. Results tagged with an older
	// epoch no longer own the step-local fields.
	Epoch uint64
	Done  bool
}

// NewSession starts at the subscription gate, or at the phone number step
// when a business already exists.
func NewSession(businessID, reservedNumber string) Session {
	s := Session{
		State:    Subscription{},
		Timezone: DefaultTimezone,
		Persona:  PersonaDraft{GreetingStyle: GreetingProfessional},
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return s
	}
	s.BusinessID = businessID
	s.ReservedNumber = strings.TrimSpace(reservedNumber)
	s.Selected = s.ReservedNumber
	s.PaymentConfirmed = true
	s.State = PhoneNumber{BusinessID: businessID}
	return s
}

func (s Session) Step() Step {
	if s.State == nil {
		return StepSubscription
	}
	return s.State.Step()
}

// BusinessUpdate is the merged profile submitted from the final step.
func (s Session) BusinessUpdate() BusinessUpdate {
	return BusinessUpdate{
		Name:           strings.TrimSpace(s.Profile.Name),
		Industry:       strings.TrimSpace(s.Profile.Industry),
		Description:    strings.TrimSpace(s.Profile.Description),
		PhoneNumber:    s.ReservedNumber,
		Timezone:       s.Timezone,
		GreetingStyle:  s.Persona.GreetingStyle,
		BusinessHours:  strings.TrimSpace(s.Persona.BusinessHours),
		CommonServices: strings.TrimSpace(s.Persona.Services),
		FAQs:           PruneFAQs(s.Persona.FAQs),
	}
}
