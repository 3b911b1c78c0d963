package domain

type State string

const (
	StateIdle                      State = "IDLE"
	StateScanning                  State = "SCANNING"
	StateReviewingCart             State = "REVIEWING_CART"
	StateConfirmingPurchase        State = "CONFIRMING_PURCHASE"
	StateAwaitingMobilePayment     State = "AWAITING_MOBILE_PAYMENT"
	StateAssistedPaymentEntry      State = "ASSISTED_PAYMENT_ENTRY"
	StateProcessingAssistedPayment State = "PROCESSING_ASSISTED_PAYMENT"
	StateCompleted                 State = "COMPLETED"
	StateTimedOut                  State = "TIMED_OUT"
)

var transitions = map[State][]State{
	StateIdle:                      {StateScanning},
	StateScanning:                  {StateReviewingCart, StateConfirmingPurchase, StateIdle},
	StateReviewingCart:             {StateScanning, StateConfirmingPurchase, StateIdle},
	StateConfirmingPurchase:        {StateAwaitingMobilePayment, StateScanning, StateIdle},
	StateAwaitingMobilePayment:     {StateAssistedPaymentEntry, StateCompleted, StateTimedOut, StateIdle},
	StateAssistedPaymentEntry:      {StateProcessingAssistedPayment, StateTimedOut, StateIdle},
	StateProcessingAssistedPayment: {StateCompleted, StateAssistedPaymentEntry, StateTimedOut, StateIdle},
	StateCompleted:                 {StateIdle},
	StateTimedOut:                  {StateIdle},
}

// CanTransitionTo reports whether the session may move from one state to another.
func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateTimedOut
}

// InPaymentWindow reports whether the payment timer is expected to run in this state.
func (s State) InPaymentWindow() bool {
	switch s {
	case StateAwaitingMobilePayment, StateAssistedPaymentEntry, StateProcessingAssistedPayment:
		return true
	}
	return false
}

// AcceptsScans reports whether scanned tags are added to the cart in this state.
func (s State) AcceptsScans() bool {
	return s == StateScanning || s == StateReviewingCart
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}
