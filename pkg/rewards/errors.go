package rewards

import "errors"

// Error taxonomy for the settlement core. Callers classify failures with
// errors.Is; the HTTP boundary maps each sentinel to a status code.
var (
	// ErrInvalidAddress means a supplied string is not a well-formed public
	// key. Caller input error, never retried.
	ErrInvalidAddress = errors.New("invalid public key")

	// ErrInvalidAmount means an amount argument is zero or unparseable.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrConfiguration means the program registry failed to load its
	// interface definitions. Fatal at startup, not per-request retryable.
	ErrConfiguration = errors.New("program configuration failed to load")

	// ErrMissingAuthority means a privileged builder was invoked without a
	// configured local signing key.
	ErrMissingAuthority = errors.New("no settlement authority key configured")

	// ErrAuthorityMismatch means the configured local authority does not
	// match the authority recorded on-chain. Never retried with the same key.
	ErrAuthorityMismatch = errors.New("configured authority does not match on-chain authority")

	// ErrAccountNotFound means an expected on-chain account does not exist.
	// Read paths model an absent stake position as a nil result instead;
	// write paths surface this error.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAccountData means fetched account bytes do not carry the
	// expected discriminator or cannot be decoded with the program layout.
	ErrInvalidAccountData = errors.New("account data does not match expected layout")

	// ErrInvalidState means fetched on-chain state does not allow the
	// requested operation (e.g. settling a listing that is not pending).
	ErrInvalidState = errors.New("on-chain state does not allow this operation")

	// ErrNetwork wraps transient RPC failures. Safe to retry with backoff at
	// the caller's discretion; the core never retries internally.
	ErrNetwork = errors.New("rpc request failed")

	// ErrArithmeticOverflow means a reward or amount computation exceeded the
	// safe integer domain. The core fails closed rather than saturating.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
