package block

import "fmt"

// RejectionReason explains why the ledger refused a transaction.
type RejectionReason string

// Set of rejection reasons.
const (
	InvalidTransaction RejectionReason = "INVALID_TRANSACTION"
	InvalidNetwork     RejectionReason = "INVALID_NETWORK"
	InvalidVersion     RejectionReason = "INVALID_VERSION"
	InvalidTimestamp   RejectionReason = "INVALID_TIMESTAMP"
	InvalidPrevious    RejectionReason = "INVALID_PREVIOUS"
	InvalidBalance     RejectionReason = "INVALID_BALANCE"
	InvalidAmount      RejectionReason = "INVALID_AMOUNT"
	InvalidReceiver    RejectionReason = "INVALID_RECEIVER"
	InvalidChange      RejectionReason = "INVALID_CHANGE"
	AccountExists      RejectionReason = "ACCOUNT_EXISTS"
	PreviousNotFound   RejectionReason = "PREVIOUS_NOT_FOUND"
	ReceivableNotFound RejectionReason = "RECEIVABLE_NOT_FOUND"
	OldTransaction     RejectionReason = "OLD_TRANSACTION"
)

// RejectionError is returned by ledger validation.
type RejectionError struct {
	Reason  RejectionReason
	Message string
}

// Reject constructs a RejectionError.
func Reject(reason RejectionReason, format string, args ...any) *RejectionError {
	return &RejectionError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (re *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", re.Reason, re.Message)
}
