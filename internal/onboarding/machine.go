package onboarding

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// Field error keys.
const (
	FieldName     = "name"
	FieldNumber   = "number"
	FieldTimezone = "timezone"
	FieldGreeting = "greeting_style"
)

// Machine is the onboarding transition table. Handle is pure: it returns the
// next session and the effects the caller must run, and never performs I/O.
type Machine struct{}

func (Machine) Handle(s Session, ev Event) (Session, []Effect) {
	if s.State == nil {
		s.State = Subscription{}
	}

	switch e := ev.(type) {
	case PaymentConfirmed:
		return onPaymentConfirmed(s)
	case Subscribe:
		return onSubscribe(s)
	case CheckoutCreated:
		return onCheckoutCreated(s, e)
	case Next:
		return onNext(s)
	case Back:
		return onBack(s)
	case Submit:
		return onSubmit(s)
	case ConnectCalendar:
		return onConnectCalendar(s)
	case EditProfile:
		s.Profile = e.Profile
		if strings.TrimSpace(e.Profile.Name) != "" {
			s.FieldErrors = withoutField(s.FieldErrors, FieldName)
		}
		return s, nil
	case EditPersona:
		return onEditPersona(s, e)
	case SetTimezone:
		return onSetTimezone(s, e)
	case Search:
		return onSearch(s, e)
	case SelectNumber:
		return onSelectNumber(s, e)
	case Release:
		return onRelease(s)
	case BusinessCreated:
		return onBusinessCreated(s, e)
	case SearchCompleted:
		return onSearchCompleted(s, e)
	case NumberPurchased:
		return onNumberPurchased(s, e)
	case NumberReleased:
		return onNumberReleased(s, e)
	case BusinessUpdated:
		return onBusinessUpdated(s, e)
	default:
		return s, nil
	}
}

func onPaymentConfirmed(s Session) (Session, []Effect) {
	s.PaymentConfirmed = true
	if _, ok := s.State.(Subscription); ok {
		s = moveTo(s, BusinessProfile{})
	}
	return s, nil
}

func onSubscribe(s Session) (Session, []Effect) {
	if _, ok := s.State.(Subscription); !ok || s.Busy.Has(ActionCheckout) {
		return s, nil
	}
	s.Busy = s.Busy.With(ActionCheckout)
	s.Failure = nil
	return s, []Effect{StartCheckout{}}
}

func onCheckoutCreated(s Session, e CheckoutCreated) (Session, []Effect) {
	s.Busy = s.Busy.Without(ActionCheckout)
	if e.Err != nil {
		f := classifyFailure(e.Err)
		s.Failure = &f
		return s, nil
	}
	return s, []Effect{Navigate{URL: e.URL}}
}

func onNext(s Session) (Session, []Effect) {
	switch st := s.State.(type) {
	case Subscription:
		// Payment confirmation unlocks the gate; going back to it afterwards
		// must not force a second checkout.
		if s.PaymentConfirmed {
			return moveTo(s, BusinessProfile{}), nil
		}
		return s, nil

	case BusinessProfile:
		if s.Busy.Has(ActionCreateBusiness) {
			return s, nil
		}
		if strings.TrimSpace(s.Profile.Name) == "" {
			return withValidation(s, FieldName, "Business name is required"), nil
		}
		if s.BusinessID != "" {
			return moveTo(s, PhoneNumber{BusinessID: s.BusinessID}), nil
		}
		s.Busy = s.Busy.With(ActionCreateBusiness)
		s.Failure = nil
		return s, []Effect{CreateBusiness{Epoch: s.Epoch, Input: s.createInput()}}

	case PhoneNumber:
		// A purchase racing a release would leave the reservation ambiguous.
		if s.Busy.Has(ActionPurchase) || s.Busy.Has(ActionRelease) {
			return s, nil
		}
		if st.BusinessID == "" {
			return withValidation(s, "business_id", "Create your business profile first"), nil
		}
		if s.ReservedNumber != "" {
			return moveTo(s, Persona{BusinessID: st.BusinessID}), nil
		}
		if s.Selected == "" {
			return withValidation(s, FieldNumber, "Select a phone number"), nil
		}
		s.Busy = s.Busy.With(ActionPurchase)
		s.Failure = nil
		return s, []Effect{PurchaseNumber{Epoch: s.Epoch, Number: s.Selected, BusinessID: st.BusinessID}}

	case Persona:
		return moveTo(s, Finalize{BusinessID: st.BusinessID}), nil
	}
	return s, nil
}

func onBack(s Session) (Session, []Effect) {
	switch s.State.(type) {
	case BusinessProfile:
		return moveTo(s, Subscription{}), nil
	case PhoneNumber:
		return moveTo(s, BusinessProfile{}), nil
	case Persona:
		return moveTo(s, PhoneNumber{BusinessID: s.BusinessID}), nil
	case Finalize:
		return moveTo(s, Persona{BusinessID: s.BusinessID}), nil
	}
	return s, nil
}

func onSubmit(s Session) (Session, []Effect) {
	st, ok := s.State.(Finalize)
	if !ok || s.Busy.Has(ActionSubmit) {
		return s, nil
	}
	if st.BusinessID == "" {
		return withValidation(s, "business_id", "Create your business profile first"), nil
	}
	s.Busy = s.Busy.With(ActionSubmit)
	s.Failure = nil
	return s, []Effect{UpdateBusiness{Epoch: s.Epoch, BusinessID: st.BusinessID, Update: s.BusinessUpdate()}}
}

func onConnectCalendar(s Session) (Session, []Effect) {
	st, ok := s.State.(Finalize)
	if !ok || s.Busy.Has(ActionConnectCalendar) {
		return s, nil
	}
	if st.BusinessID != "" {
		return s, []Effect{RedirectToCalendar{BusinessID: st.BusinessID}}
	}
	if s.Busy.Has(ActionCreateBusiness) {
		return s, nil
	}
	if strings.TrimSpace(s.Profile.Name) == "" {
		return withValidation(s, FieldName, "Business name is required"), nil
	}
	s.Busy = s.Busy.With(ActionCreateBusiness).With(ActionConnectCalendar)
	s.Failure = nil
	return s, []Effect{CreateBusiness{Epoch: s.Epoch, Input: s.createInput(), ThenCalendar: true}}
}

func onEditPersona(s Session, e EditPersona) (Session, []Effect) {
	style := e.Persona.GreetingStyle
	if style == "" {
		style = GreetingProfessional
	}
	if !style.Valid() {
		return withValidation(s, FieldGreeting, "Choose professional, friendly or casual"), nil
	}
	persona := e.Persona
	persona.GreetingStyle = style
	persona.FAQs = append([]FAQ(nil), e.Persona.FAQs...)
	s.Persona = persona
	s.FieldErrors = withoutField(s.FieldErrors, FieldGreeting)
	return s, nil
}

func onSetTimezone(s Session, e SetTimezone) (Session, []Effect) {
	tz := strings.TrimSpace(e.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return withValidation(s, FieldTimezone, "Unknown timezone"), nil
	}
	s.Timezone = tz
	s.FieldErrors = withoutField(s.FieldErrors, FieldTimezone)
	return s, nil
}

func onSearch(s Session, e Search) (Session, []Effect) {
	if _, ok := s.State.(PhoneNumber); !ok || s.Busy.Has(ActionSearch) {
		return s, nil
	}
	areaCode := strings.TrimSpace(e.AreaCode)
	s.AreaCode = areaCode
	s.Busy = s.Busy.With(ActionSearch)
	s.Failure = nil
	return s, []Effect{SearchNumbers{Epoch: s.Epoch, AreaCode: areaCode}}
}

func onSearchCompleted(s Session, e SearchCompleted) (Session, []Effect) {
	if e.Epoch != s.Epoch {
		s.Busy = s.Busy.Without(ActionSearch)
		return s, nil
	}
	if e.Err != nil {
		s.Busy = s.Busy.Without(ActionSearch)
		f := classifyFailure(e.Err)
		s.Failure = &f
		return s, nil
	}
	if len(e.Candidates) == 0 && e.AreaCode != "" && !e.Fallback {
		// Area-code exhaustion is common: broaden once, without telling the
		// user the area code came back empty.
		return s, []Effect{SearchNumbers{Epoch: s.Epoch, AreaCode: "", Fallback: true}}
	}

	s.Busy = s.Busy.Without(ActionSearch)
	s.Candidates = append([]Candidate(nil), e.Candidates...)
	if s.Selected == "" && len(s.Candidates) > 0 {
		s.Selected = s.Candidates[0].PhoneNumber
		s.FieldErrors = withoutField(s.FieldErrors, FieldNumber)
	}
	return s, nil
}

func onSelectNumber(s Session, e SelectNumber) (Session, []Effect) {
	if _, ok := s.State.(PhoneNumber); !ok {
		return s, nil
	}
	number := strings.TrimSpace(e.Number)
	if number == "" {
		return s, nil
	}
	s.Selected = number
	s.FieldErrors = withoutField(s.FieldErrors, FieldNumber)
	return s, nil
}

func onRelease(s Session) (Session, []Effect) {
	if s.BusinessID == "" || s.Busy.Has(ActionRelease) || s.Busy.Has(ActionPurchase) {
		return s, nil
	}
	s.Busy = s.Busy.With(ActionRelease)
	return s, []Effect{ReleaseNumber{BusinessID: s.BusinessID}}
}

func onBusinessCreated(s Session, e BusinessCreated) (Session, []Effect) {
	s.Busy = s.Busy.Without(ActionCreateBusiness)
	if e.ThenCalendar {
		s.Busy = s.Busy.Without(ActionConnectCalendar)
	}
	stale := e.Epoch != s.Epoch

	if e.Err != nil {
		if !stale {
			f := classifyFailure(e.Err)
			s.Failure = &f
		}
		return s, nil
	}

	var effects []Effect
	if s.BusinessID == "" && e.BusinessID != "" {
		s.BusinessID = e.BusinessID
		effects = append(effects, Persist{Key: KeyBusinessID, Value: e.BusinessID})
	}
	if stale || s.BusinessID == "" {
		return s, effects
	}

	if e.ThenCalendar {
		if _, ok := s.State.(Finalize); ok {
			s.State = Finalize{BusinessID: s.BusinessID}
			effects = append(effects, RedirectToCalendar{BusinessID: s.BusinessID})
		}
		return s, effects
	}
	if _, ok := s.State.(BusinessProfile); ok {
		s = moveTo(s, PhoneNumber{BusinessID: s.BusinessID})
	}
	return s, effects
}

func onNumberPurchased(s Session, e NumberPurchased) (Session, []Effect) {
	s.Busy = s.Busy.Without(ActionPurchase)
	stale := e.Epoch != s.Epoch

	if e.Err != nil {
		if !stale {
			f := classifyFailure(e.Err)
			s.Failure = &f
		}
		return s, nil
	}

	number := strings.TrimSpace(e.Number)
	var effects []Effect
	if number != "" {
		s.ReservedNumber = number
		effects = append(effects, Persist{Key: KeyReservedNumber, Value: number})
	}
	if stale {
		return s, effects
	}
	if st, ok := s.State.(PhoneNumber); ok {
		s.Selected = number
		s = moveTo(s, Persona{BusinessID: st.BusinessID})
	}
	return s, effects
}

func onNumberReleased(s Session, e NumberReleased) (Session, []Effect) {
	s.Busy = s.Busy.Without(ActionRelease)
	if e.Err != nil {
		f := classifyFailure(e.Err)
		s.Failure = &f
		return s, nil
	}
	s.ReservedNumber = ""
	s.Selected = ""
	return s, []Effect{Forget{Key: KeyReservedNumber}}
}

func onBusinessUpdated(s Session, e BusinessUpdated) (Session, []Effect) {
	s.Busy = s.Busy.Without(ActionSubmit)
	if e.Epoch != s.Epoch {
		return s, nil
	}
	if e.Err != nil {
		f := classifyFailure(e.Err)
		s.Failure = &f
		return s, nil
	}
	s.Done = true
	return s, []Effect{
		Forget{Key: KeyBusinessID},
		Forget{Key: KeyReservedNumber},
		ExitToDashboard{},
	}
}

func moveTo(s Session, next State) Session {
	s.State = next
	s.Epoch++
	s.Failure = nil
	s.FieldErrors = nil
	return s
}

func withValidation(s Session, field, message string) Session {
	errs := make(map[string]string, len(s.FieldErrors)+1)
	for k, v := range s.FieldErrors {
		errs[k] = v
	}
	errs[field] = message
	s.FieldErrors = errs
	s.Failure = &Failure{Kind: FailureValidation, Message: message}
	return s
}

func withoutField(errs map[string]string, field string) map[string]string {
	if _, ok := errs[field]; !ok {
		return errs
	}
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		if k != field {
			out[k] = v
		}
	}
	return out
}

func (s Session) createInput() CreateBusinessInput {
	return CreateBusinessInput{
		Name:        strings.TrimSpace(s.Profile.Name),
		Industry:    strings.TrimSpace(s.Profile.Industry),
		Description: strings.TrimSpace(s.Profile.Description),
		Timezone:    s.Timezone,
	}
}
