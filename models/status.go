package models

// PaymentStatus is the bank-reported state of a payment or card attachment.
type PaymentStatus string

const (
	StatusNew             PaymentStatus = "NEW"
	StatusFormShowed      PaymentStatus = "FORM_SHOWED"
	StatusAuthorizing     PaymentStatus = "AUTHORIZING"
	Status3DSChecking     PaymentStatus = "3DS_CHECKING"
	Status3DSChecked      PaymentStatus = "3DS_CHECKED"
	StatusAuthorized      PaymentStatus = "AUTHORIZED"
	StatusConfirming      PaymentStatus = "CONFIRMING"
	StatusConfirmed       PaymentStatus = "CONFIRMED"
	StatusReversing       PaymentStatus = "REVERSING"
	StatusReversed        PaymentStatus = "REVERSED"
	StatusRefunding       PaymentStatus = "REFUNDING"
	StatusRefunded        PaymentStatus = "REFUNDED"
	StatusPartialRefunded PaymentStatus = "PARTIAL_REFUNDED"
	StatusRejected        PaymentStatus = "REJECTED"
	StatusCanceled        PaymentStatus = "CANCELED"
	StatusDeadlineExpired PaymentStatus = "DEADLINE_EXPIRED"
	StatusAuthFail        PaymentStatus = "AUTH_FAIL"
	StatusCompleted       PaymentStatus = "COMPLETED"
	StatusUnknown         PaymentStatus = "UNKNOWN"
)

func (s PaymentStatus) String() string {
	if s == "" {
		return string(StatusUnknown)
	}
	return string(s)
}

// IsTerminalSuccess reports whether no further transition toward a successful
// payment is expected.
func (s PaymentStatus) IsTerminalSuccess() bool {
	switch s {
	case StatusAuthorized, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// IsFailure reports whether the payment reached a hard failure state.
func (s PaymentStatus) IsFailure() bool {
	switch s {
	case StatusRejected, StatusCanceled, StatusDeadlineExpired, StatusAuthFail, StatusReversed:
		return true
	}
	return false
}

// IsTerminal reports whether the payment can still change state on the bank
// side.
func (s PaymentStatus) IsTerminal() bool {
	return s.IsTerminalSuccess() || s.IsFailure()
}
