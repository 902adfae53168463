package onboarding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atPhoneNumber(businessID string) Session {
	return NewSession(businessID, "")
}

func TestNewSession(t *testing.T) {
	fresh := NewSession("", "")
	assert.Equal(t, StepSubscription, fresh.Step())
	assert.Empty(t, fresh.BusinessID)
	assert.Equal(t, DefaultTimezone, fresh.Timezone)
	assert.Equal(t, GreetingProfessional, fresh.Persona.GreetingStyle)

	resumed := NewSession("42", "+12125551234")
	assert.Equal(t, PhoneNumber{BusinessID: "42"}, resumed.State)
	assert.Equal(t, "+12125551234", resumed.ReservedNumber)
	assert.Equal(t, "+12125551234", resumed.Selected)
	assert.True(t, resumed.PaymentConfirmed)
}

func TestSubscriptionGate(t *testing.T) {
	var m Machine
	s := NewSession("", "")

	s, effects := m.Handle(s, Next{})
	assert.Empty(t, effects)
	assert.Equal(t, StepSubscription, s.Step())

	s, effects = m.Handle(s, Back{})
	assert.Empty(t, effects)
	assert.Equal(t, StepSubscription, s.Step())

	s, effects = m.Handle(s, Subscribe{})
	assert.Equal(t, []Effect{StartCheckout{}}, effects)
	assert.True(t, s.Busy.Has(ActionCheckout))

	_, effects = m.Handle(s, Subscribe{})
	assert.Empty(t, effects, "checkout already in flight")

	s, effects = m.Handle(s, CheckoutCreated{URL: "https://checkout.stripe.com/c/pay/cs_1"})
	assert.Equal(t, []Effect{Navigate{URL: "https://checkout.stripe.com/c/pay/cs_1"}}, effects)
	assert.False(t, s.Busy.Has(ActionCheckout))

	s, effects = m.Handle(s, PaymentConfirmed{})
	assert.Empty(t, effects)
	assert.Equal(t, BusinessProfile{}, s.State)

	s, _ = m.Handle(s, Back{})
	assert.Equal(t, StepSubscription, s.Step())
	s, _ = m.Handle(s, Next{})
	assert.Equal(t, StepBusinessProfile, s.Step(), "payment already confirmed")
}

func TestCheckoutFailureIsRetryable(t *testing.T) {
	var m Machine
	s, _ := m.Handle(NewSession("", ""), Subscribe{})
	s, effects := m.Handle(s, CheckoutCreated{Err: ErrUnavailable})

	assert.Empty(t, effects)
	require.NotNil(t, s.Failure)
	assert.Equal(t, FailureTransient, s.Failure.Kind)
	assert.True(t, s.Failure.Retryable)
	assert.False(t, s.Busy.Has(ActionCheckout))
}

func TestBusinessProfileRequiresName(t *testing.T) {
	var m Machine
	s, _ := m.Handle(NewSession("", ""), PaymentConfirmed{})
	s, _ = m.Handle(s, EditProfile{Profile: Profile{Name: "   ", Industry: "Dental"}})

	next, effects := m.Handle(s, Next{})
	assert.Empty(t, effects)
	assert.Equal(t, StepBusinessProfile, next.Step())
	assert.Contains(t, next.FieldErrors, FieldName)
	require.NotNil(t, next.Failure)
	assert.Equal(t, FailureValidation, next.Failure.Kind)
	assert.Nil(t, s.FieldErrors, "input session untouched")

	next, _ = m.Handle(next, EditProfile{Profile: Profile{Name: "Acme Dental"}})
	assert.NotContains(t, next.FieldErrors, FieldName)
}

func TestCreateBusinessAdvances(t *testing.T) {
	var m Machine
	s, _ := m.Handle(NewSession("", ""), PaymentConfirmed{})
	s, _ = m.Handle(s, EditProfile{Profile: Profile{Name: " Acme Dental ", Industry: "Dental", Description: "Family dentistry"}})

	s, effects := m.Handle(s, Next{})
	require.Len(t, effects, 1)
	create, ok := effects[0].(CreateBusiness)
	require.True(t, ok)
	assert.Equal(t, CreateBusinessInput{Name: "Acme Dental", Industry: "Dental", Description: "Family dentistry", Timezone: DefaultTimezone}, create.Input)
	assert.True(t, s.Busy.Has(ActionCreateBusiness))

	_, again := m.Handle(s, Next{})
	assert.Empty(t, again, "create already in flight")

	s, effects = m.Handle(s, BusinessCreated{Epoch: create.Epoch, BusinessID: "42"})
	assert.Equal(t, []Effect{Persist{Key: KeyBusinessID, Value: "42"}}, effects)
	assert.Equal(t, PhoneNumber{BusinessID: "42"}, s.State)
	assert.Equal(t, "42", s.BusinessID)
	assert.False(t, s.Busy.Has(ActionCreateBusiness))
}

func TestCreateBusinessFailureStaysOnStep(t *testing.T) {
	var m Machine
	s, _ := m.Handle(NewSession("", ""), PaymentConfirmed{})
	s, _ = m.Handle(s, EditProfile{Profile: Profile{Name: "Acme Dental"}})
	s, effects := m.Handle(s, Next{})
	create := effects[0].(CreateBusiness)

	s, effects = m.Handle(s, BusinessCreated{Epoch: create.Epoch, Err: errors.New("connection reset")})
	assert.Empty(t, effects)
	assert.Equal(t, StepBusinessProfile, s.Step())
	assert.Empty(t, s.BusinessID)
	require.NotNil(t, s.Failure)
	assert.True(t, s.Failure.Retryable)
	assert.Equal(t, "Acme Dental", s.Profile.Name)
}

func TestBusinessIDIsNeverOverwritten(t *testing.T) {
	var m Machine
	s := NewSession("", "")
	s, _ = m.Handle(s, PaymentConfirmed{})
	s, _ = m.Handle(s, EditProfile{Profile: Profile{Name: "Acme Dental"}})
	s, effects := m.Handle(s, Next{})
	epoch := effects[0].(CreateBusiness).Epoch
	s, _ = m.Handle(s, BusinessCreated{Epoch: epoch, BusinessID: "42"})

	// Walk back and forward across every step, then deliver a late second id.
	for i := 0; i < 3; i++ {
		s, _ = m.Handle(s, Back{})
	}
	for i := 0; i < 2; i++ {
		s, effects = m.Handle(s, Next{})
		assert.Empty(t, effects)
	}
	assert.Equal(t, PhoneNumber{BusinessID: "42"}, s.State)

	s, effects = m.Handle(s, BusinessCreated{Epoch: s.Epoch, BusinessID: "43"})
	assert.Empty(t, effects)
	assert.Equal(t, "42", s.BusinessID)
	assert.Equal(t, PhoneNumber{BusinessID: "42"}, s.State)
}

func TestPurchaseRequiresBusinessBeforeAnyCall(t *testing.T) {
	var m Machine
	s := Session{State: PhoneNumber{}, Selected: "+12125551234"}

	next, effects := m.Handle(s, Next{})
	assert.Empty(t, effects)
	assert.Equal(t, PhoneNumber{}, next.State)
	require.NotNil(t, next.Failure)
	assert.Equal(t, FailureValidation, next.Failure.Kind)
	assert.False(t, next.Busy.Has(ActionPurchase))
}

func TestPurchaseRequiresSelection(t *testing.T) {
	var m Machine
	s, effects := m.Handle(atPhoneNumber("42"), Next{})
	assert.Empty(t, effects)
	assert.Contains(t, s.FieldErrors, FieldNumber)
	assert.Equal(t, StepPhoneNumber, s.Step())
}

func TestAreaCodeFallbackSearch(t *testing.T) {
	var m Machine
	s, effects := m.Handle(atPhoneNumber("42"), Search{AreaCode: " 212 "})
	require.Equal(t, []Effect{SearchNumbers{Epoch: s.Epoch, AreaCode: "212"}}, effects)
	assert.True(t, s.Busy.Has(ActionSearch))

	s, effects = m.Handle(s, SearchCompleted{Epoch: s.Epoch, AreaCode: "212"})
	require.Equal(t, []Effect{SearchNumbers{Epoch: s.Epoch, AreaCode: "", Fallback: true}}, effects)
	assert.Nil(t, s.Failure)
	assert.True(t, s.Busy.Has(ActionSearch), "still searching")

	// An empty fallback ends the search without another request.
	empty, effects := m.Handle(s, SearchCompleted{Epoch: s.Epoch, Fallback: true})
	assert.Empty(t, effects)
	assert.Nil(t, empty.Failure)
	assert.Empty(t, empty.Candidates)
	assert.False(t, empty.Busy.Has(ActionSearch))

	found := []Candidate{
		{PhoneNumber: "+13055550100", FriendlyName: "(305) 555-0100"},
		{PhoneNumber: "+13055550101", FriendlyName: "(305) 555-0101"},
	}
	s, effects = m.Handle(s, SearchCompleted{Epoch: s.Epoch, Fallback: true, Candidates: found})
	assert.Empty(t, effects)
	assert.Nil(t, s.Failure)
	assert.Equal(t, found, s.Candidates)
	assert.Equal(t, "+13055550100", s.Selected)
}

func TestEmptyAreaCodeSearchDoesNotFallBack(t *testing.T) {
	var m Machine
	s, _ := m.Handle(atPhoneNumber("42"), Search{})
	s, effects := m.Handle(s, SearchCompleted{Epoch: s.Epoch})
	assert.Empty(t, effects)
	assert.False(t, s.Busy.Has(ActionSearch))
}

func TestSearchKeepsExistingSelection(t *testing.T) {
	var m Machine
	s := atPhoneNumber("42")
	s.Selected = "+12125550000"

	s, _ = m.Handle(s, Search{AreaCode: "212"})
	s, _ = m.Handle(s, SearchCompleted{Epoch: s.Epoch, AreaCode: "212", Candidates: []Candidate{{PhoneNumber: "+12125551234"}}})
	assert.Equal(t, "+12125550000", s.Selected)
}

func TestPurchaseAdvancesAndPersists(t *testing.T) {
	var m Machine
	s := atPhoneNumber("42")
	s, _ = m.Handle(s, SelectNumber{Number: "+12125551234"})

	s, effects := m.Handle(s, Next{})
	require.Equal(t, []Effect{PurchaseNumber{Epoch: s.Epoch, Number: "+12125551234", BusinessID: "42"}}, effects)

	s, effects = m.Handle(s, NumberPurchased{Epoch: s.Epoch, Number: "+12125551234"})
	assert.Equal(t, []Effect{Persist{Key: KeyReservedNumber, Value: "+12125551234"}}, effects)
	assert.Equal(t, Persona{BusinessID: "42"}, s.State)
	assert.Equal(t, "+12125551234", s.ReservedNumber)
}

func TestPurchaseConflictKeepsSelection(t *testing.T) {
	var m Machine
	s := atPhoneNumber("42")
	s, _ = m.Handle(s, SelectNumber{Number: "+12125551234"})
	s, _ = m.Handle(s, Next{})

	s, effects := m.Handle(s, NumberPurchased{Epoch: s.Epoch, Err: fmt.Errorf("buy: %w", ErrConflict)})
	assert.Empty(t, effects)
	assert.Equal(t, PhoneNumber{BusinessID: "42"}, s.State)
	assert.Empty(t, s.ReservedNumber)
	assert.Equal(t, "+12125551234", s.Selected)
	require.NotNil(t, s.Failure)
	assert.Equal(t, FailureConflict, s.Failure.Kind)
	assert.True(t, s.Failure.Retryable)
	assert.False(t, s.Busy.Has(ActionPurchase))

	// Retrying is the same gesture.
	_, effects = m.Handle(s, Next{})
	assert.Equal(t, []Effect{PurchaseNumber{Epoch: s.Epoch, Number: "+12125551234", BusinessID: "42"}}, effects)
}

func TestPaymentFailureOnPurchase(t *testing.T) {
	var m Machine
	s := atPhoneNumber("42")
	s, _ = m.Handle(s, SelectNumber{Number: "+12125551234"})
	s, _ = m.Handle(s, Next{})
	s, _ = m.Handle(s, NumberPurchased{Epoch: s.Epoch, Err: ErrPayment})

	require.NotNil(t, s.Failure)
	assert.Equal(t, FailurePayment, s.Failure.Kind)
}

func TestReleaseRearmsSelection(t *testing.T) {
	var m Machine
	s := NewSession("42", "+12125551234")

	s, effects := m.Handle(s, Next{})
	assert.Empty(t, effects, "reserved number needs no purchase")
	assert.Equal(t, Persona{BusinessID: "42"}, s.State)

	s, effects = m.Handle(s, Release{})
	require.Equal(t, []Effect{ReleaseNumber{BusinessID: "42"}}, effects)
	s, effects = m.Handle(s, NumberReleased{})
	assert.Equal(t, []Effect{Forget{Key: KeyReservedNumber}}, effects)
	assert.Empty(t, s.ReservedNumber)
	assert.Empty(t, s.Selected)

	s, _ = m.Handle(s, Back{})
	require.Equal(t, StepPhoneNumber, s.Step())

	released, effects := m.Handle(s, Next{})
	never, neverEffects := m.Handle(atPhoneNumber("42"), Next{})
	assert.Empty(t, effects)
	assert.Empty(t, neverEffects)
	assert.Equal(t, never.FieldErrors, released.FieldErrors)
	assert.Equal(t, never.Failure, released.Failure)
	assert.Equal(t, StepPhoneNumber, released.Step())
}

func TestReleaseFailureKeepsReservation(t *testing.T) {
	var m Machine
	s := NewSession("42", "+12125551234")
	s, _ = m.Handle(s, Release{})
	s, effects := m.Handle(s, NumberReleased{Err: ErrNotFound})

	assert.Empty(t, effects)
	assert.Equal(t, "+12125551234", s.ReservedNumber)
	require.NotNil(t, s.Failure)
}

func TestReleaseWithoutBusinessIsIgnored(t *testing.T) {
	var m Machine
	_, effects := m.Handle(NewSession("", ""), Release{})
	assert.Empty(t, effects)
}

func TestPurchaseAndReleaseExcludeEachOther(t *testing.T) {
	var m Machine

	t.Run("release during purchase", func(t *testing.T) {
		s := atPhoneNumber("42")
		s, _ = m.Handle(s, SelectNumber{Number: "+12125551234"})
		s, effects := m.Handle(s, Next{})
		require.Len(t, effects, 1)

		s, effects = m.Handle(s, Release{})
		assert.Empty(t, effects)
		assert.False(t, s.Busy.Has(ActionRelease))
		assert.True(t, s.Busy.Has(ActionPurchase))
	})

	t.Run("next during release", func(t *testing.T) {
		s := NewSession("42", "+12125551234")
		s, effects := m.Handle(s, Release{})
		require.Equal(t, []Effect{ReleaseNumber{BusinessID: "42"}}, effects)

		s, effects = m.Handle(s, Next{})
		assert.Empty(t, effects)
		assert.Equal(t, StepPhoneNumber, s.Step())
		assert.False(t, s.Busy.Has(ActionPurchase))

		s, _ = m.Handle(s, NumberReleased{})
		s, _ = m.Handle(s, SelectNumber{Number: "+13125550000"})
		_, effects = m.Handle(s, Next{})
		assert.Equal(t, []Effect{PurchaseNumber{Epoch: s.Epoch, Number: "+13125550000", BusinessID: "42"}}, effects)
	})
}

func TestBackNeverCallsAPI(t *testing.T) {
	var m Machine
	s := Session{State: Finalize{BusinessID: "42"}, BusinessID: "42"}

	want := []Step{StepPersona, StepPhoneNumber, StepBusinessProfile, StepSubscription, StepSubscription}
	for _, step := range want {
		var effects []Effect
		s, effects = m.Handle(s, Back{})
		assert.Empty(t, effects)
		assert.Equal(t, step, s.Step())
	}
}

func TestSubmitPrunesFAQs(t *testing.T) {
	var m Machine
	s := NewSession("42", "+12125551234")
	s.State = Finalize{BusinessID: "42"}
	s.Profile = Profile{Name: "Acme Dental", Industry: "Dental", Description: "Family dentistry"}
	s, _ = m.Handle(s, SetTimezone{Timezone: "America/Chicago"})
	s, _ = m.Handle(s, EditPersona{Persona: PersonaDraft{
		GreetingStyle: GreetingFriendly,
		BusinessHours: "Mon-Fri 9-5",
		Services:      "Cleanings, whitening",
		FAQs: []FAQ{
			{Question: "Do you take walk-ins?", Answer: "Yes, mornings only."},
			{Question: "Is parking free?", Answer: "  "},
		},
	}})

	s, effects := m.Handle(s, Submit{})
	require.Len(t, effects, 1)
	update := effects[0].(UpdateBusiness)
	assert.Equal(t, "42", update.BusinessID)
	assert.Equal(t, BusinessUpdate{
		Name:           "Acme Dental",
		Industry:       "Dental",
		Description:    "Family dentistry",
		PhoneNumber:    "+12125551234",
		Timezone:       "America/Chicago",
		GreetingStyle:  GreetingFriendly,
		BusinessHours:  "Mon-Fri 9-5",
		CommonServices: "Cleanings, whitening",
		FAQs:           []FAQ{{Question: "Do you take walk-ins?", Answer: "Yes, mornings only."}},
	}, update.Update)
	assert.Len(t, s.Persona.FAQs, 2, "draft keeps what was typed")

	_, again := m.Handle(s, Submit{})
	assert.Empty(t, again, "submit already in flight")

	done, effects := m.Handle(s, BusinessUpdated{Epoch: update.Epoch})
	assert.True(t, done.Done)
	assert.Equal(t, []Effect{Forget{Key: KeyBusinessID}, Forget{Key: KeyReservedNumber}, ExitToDashboard{}}, effects)
}

func TestSubmitFailureKeepsFields(t *testing.T) {
	var m Machine
	s := Session{State: Finalize{BusinessID: "42"}, BusinessID: "42", Profile: Profile{Name: "Acme Dental"}}
	s, effects := m.Handle(s, Submit{})
	epoch := effects[0].(UpdateBusiness).Epoch

	s, effects = m.Handle(s, BusinessUpdated{Epoch: epoch, Err: ErrValidation})
	assert.Empty(t, effects)
	assert.False(t, s.Done)
	assert.Equal(t, StepFinalize, s.Step())
	assert.Equal(t, "Acme Dental", s.Profile.Name)
	require.NotNil(t, s.Failure)
	assert.False(t, s.Failure.Retryable)
}

func TestPersonaValidation(t *testing.T) {
	var m Machine
	s := Session{State: Persona{BusinessID: "42"}}

	s, _ = m.Handle(s, EditPersona{Persona: PersonaDraft{GreetingStyle: "shouty"}})
	assert.Contains(t, s.FieldErrors, FieldGreeting)

	s, _ = m.Handle(s, EditPersona{Persona: PersonaDraft{}})
	assert.Equal(t, GreetingProfessional, s.Persona.GreetingStyle)
	assert.NotContains(t, s.FieldErrors, FieldGreeting)

	s, _ = m.Handle(s, SetTimezone{Timezone: "Mars/Olympus"})
	assert.Contains(t, s.FieldErrors, FieldTimezone)

	s, effects := m.Handle(s, Next{})
	assert.Empty(t, effects)
	assert.Equal(t, Finalize{BusinessID: "42"}, s.State)
}

func TestConnectCalendar(t *testing.T) {
	var m Machine

	t.Run("redirects with an existing business", func(t *testing.T) {
		s := Session{State: Finalize{BusinessID: "42"}, BusinessID: "42"}
		_, effects := m.Handle(s, ConnectCalendar{})
		assert.Equal(t, []Effect{RedirectToCalendar{BusinessID: "42"}}, effects)
	})

	t.Run("creates the business first", func(t *testing.T) {
		s := Session{State: Finalize{}, Profile: Profile{Name: "Acme Dental"}, Timezone: DefaultTimezone}
		s, effects := m.Handle(s, ConnectCalendar{})
		require.Len(t, effects, 1)
		create := effects[0].(CreateBusiness)
		assert.True(t, create.ThenCalendar)
		assert.True(t, s.Busy.Has(ActionConnectCalendar))

		s, effects = m.Handle(s, BusinessCreated{Epoch: create.Epoch, BusinessID: "42", ThenCalendar: true})
		assert.Equal(t, []Effect{
			Persist{Key: KeyBusinessID, Value: "42"},
			RedirectToCalendar{BusinessID: "42"},
		}, effects)
		assert.Equal(t, Finalize{BusinessID: "42"}, s.State)
		assert.False(t, s.Busy.Has(ActionConnectCalendar))
	})

	t.Run("only from finalize", func(t *testing.T) {
		_, effects := m.Handle(atPhoneNumber("42"), ConnectCalendar{})
		assert.Empty(t, effects)
	})
}

func TestStaleResultsPersistButDoNotAdvance(t *testing.T) {
	var m Machine
	s, _ := m.Handle(NewSession("", ""), PaymentConfirmed{})
	s, _ = m.Handle(s, EditProfile{Profile: Profile{Name: "Acme Dental"}})
	s, effects := m.Handle(s, Next{})
	epoch := effects[0].(CreateBusiness).Epoch

	s, _ = m.Handle(s, Back{})
	s, effects = m.Handle(s, BusinessCreated{Epoch: epoch, BusinessID: "42"})

	assert.Equal(t, []Effect{Persist{Key: KeyBusinessID, Value: "42"}}, effects)
	assert.Equal(t, "42", s.BusinessID)
	assert.Equal(t, StepSubscription, s.Step())
	assert.False(t, s.Busy.Has(ActionCreateBusiness))
}

func TestStaleSearchIsIgnored(t *testing.T) {
	var m Machine
	s := atPhoneNumber("42")
	s.Profile.Name = "Acme Dental"
	s, _ = m.Handle(s, Search{AreaCode: "212"})
	epoch := s.Epoch
	s, _ = m.Handle(s, Back{})
	s, _ = m.Handle(s, Next{})

	s, effects := m.Handle(s, SearchCompleted{Epoch: epoch, AreaCode: "212", Candidates: []Candidate{{PhoneNumber: "+12125551234"}}})
	assert.Empty(t, effects)
	assert.Empty(t, s.Candidates)
	assert.Empty(t, s.Selected)
}

func TestResumedSessionSubmitsWithoutProfile(t *testing.T) {
	var m Machine
	s := NewSession("42", "+12125551234")
	s, _ = m.Handle(s, Next{})
	s, _ = m.Handle(s, Next{})
	require.Equal(t, StepFinalize, s.Step())

	s, effects := m.Handle(s, Submit{})
	require.Len(t, effects, 1)
	update := effects[0].(UpdateBusiness).Update
	assert.Empty(t, update.Name)
	assert.Empty(t, update.Industry)
	assert.Empty(t, update.Description)
	assert.Equal(t, "+12125551234", update.PhoneNumber)
	assert.Equal(t, DefaultTimezone, update.Timezone)
	assert.Empty(t, s.FieldErrors)
}
