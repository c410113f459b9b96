package domain

import "errors"

// Error taxonomy shared by every component. Operations fail fast with one of
// these sentinels (possibly wrapped); callers branch with errors.Is.
var (
	// ErrUnauthorized is returned when the caller lacks the required identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidAmount is returned for non-positive or overflowing values.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrTokenNotSupported is returned when the asset is not allow-listed.
	ErrTokenNotSupported = errors.New("token not supported")

	// ErrFeeExceedsPayment is returned when the fee bps sum exceeds 10000.
	ErrFeeExceedsPayment = errors.New("fee exceeds payment")

	// ErrInsufficientBalance is returned when a withdrawal or redemption
	// exceeds the available amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransferFailed is returned when the underlying asset move failed.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrDuplicateTransaction is returned on a transaction identity collision.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrDuplicateDispute is returned on a dispute identity collision.
	ErrDuplicateDispute = errors.New("duplicate dispute")

	// ErrFundsLocked is returned when an escrow release is attempted before
	// the unlock sequence without authorization.
	ErrFundsLocked = errors.New("funds locked")

	// ErrAlreadyFinalized is returned on terminal-state re-entry of an escrow.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrAlreadyResolved is returned on terminal-state re-entry of a dispute.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrNotYetResolvable is returned when the dispute deadline has not been
	// reached. Retry later.
	ErrNotYetResolvable = errors.New("not yet resolvable")

	// ErrPaused is returned when an operation is blocked by emergency pause.
	ErrPaused = errors.New("contract paused")

	// ErrNotFound is returned on a lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPoints is returned for a bad redemption or award amount.
	ErrInvalidPoints = errors.New("invalid points")
)
