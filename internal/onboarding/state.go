package onboarding

// Step orders the wizard pages.
type Step int

const (
	StepSubscription Step = iota
	StepBusinessProfile
	StepPhoneNumber
	StepPersona
	StepFinalize
)

func (s Step) String() string {
	switch s {
	case StepSubscription:
		return "subscription"
	case StepBusinessProfile:
		return "business_profile"
	case StepPhoneNumber:
		return "phone_number"
	case StepPersona:
		return "persona"
	case StepFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// State is the current wizard page. Pages after the business profile carry
// the business id they operate on.
type State interface {
	Step() Step
	isState()
}

type Subscription struct{}

type BusinessProfile struct{}

type PhoneNumber struct {
	BusinessID string
}

type Persona struct {
	BusinessID string
}

type Finalize struct {
	BusinessID string
}

func (Subscription) Step() Step    { return StepSubscription }
func (BusinessProfile) Step() Step { return StepBusinessProfile }
func (PhoneNumber) Step() Step     { return StepPhoneNumber }
func (Persona) Step() Step         { return StepPersona }
func (Finalize) Step() Step        { return StepFinalize }

func (Subscription) isState()    {}
func (BusinessProfile) isState() {}
func (PhoneNumber) isState()     {}
func (Persona) isState()         {}
func (Finalize) isState()        {}

// BusinessIDOf returns the business id carried by state, if any.
func BusinessIDOf(state State) (string, bool) {
	switch s := state.(type) {
	case PhoneNumber:
		return s.BusinessID, s.BusinessID != ""
	case Persona:
		return s.BusinessID, s.BusinessID != ""
	case Finalize:
		return s.BusinessID, s.BusinessID != ""
	default:
		return "", false
	}
}
