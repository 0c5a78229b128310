package errs

import "github.com/cockroachdb/errors"

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound        = ErrorKind("Not Found")
	InvalidArgument = ErrorKind("Invalid Argument")
	Unsupported     = ErrorKind("Unsupported")
	OverflowUint64  = ErrorKind("overflow uint64")
	OverflowUint128 = ErrorKind("overflow uint128")
	// Conflict is returned when a concurrent call changed the same rows. The call may be retried as is.
	Conflict = ErrorKind("Conflict")
)

// Ledger rejections. Every rejected call leaves state untouched.
const (
	UnsupportedDenom     = ErrorKind("Unsupported Denom")
	ContractStopped      = ErrorKind("Contract Stopped")
	BelowMinimum         = ErrorKind("Below Minimum")
	ReachedMaxTier       = ErrorKind("Reached Max Tier")
	LockPeriodNotElapsed = ErrorKind("Lock Period Not Elapsed")
	NothingToClaim       = ErrorKind("Nothing To Claim")
	Unauthorized         = ErrorKind("Unauthorized")
	InvalidNftTier       = ErrorKind("Invalid NFT Tier")
	SaleNotActive        = ErrorKind("Sale Not Active")
	SaleNotFinished      = ErrorKind("Sale Not Finished")
	NotWhitelisted       = ErrorKind("Not Whitelisted")
	ExceedsTierCap       = ErrorKind("Exceeds Tier Cap")
	TierSoldOut          = ErrorKind("Tier Sold Out")
	ZeroTokens           = ErrorKind("Zero Tokens")
	AlreadyWithdrawn     = ErrorKind("Already Withdrawn")
	NothingToReceive     = ErrorKind("Nothing To Receive")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Code returns the machine-readable code of the error kind, e.g. "TIER_SOLD_OUT".
func (e ErrorKind) Code() string {
	b := make([]byte, 0, len(e))
	for i := 0; i < len(e); i++ {
		c := e[i]
		switch {
		case c == ' ':
			b = append(b, '_')
		case c >= 'a' && c <= 'z':
			b = append(b, c-'a'+'A')
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

var retryable = []ErrorKind{SaleNotActive, LockPeriodNotElapsed, SaleNotFinished, Conflict}

// IsRetryable reports whether err is a time-gated rejection or a transaction conflict that may succeed later.
func IsRetryable(err error) bool {
	for _, kind := range retryable {
		if errors.Is(err, kind) {
			return true
		}
	}
	return isSerializationFailure(err)
}

// KindOf returns the first ErrorKind found in the chain of err.
// A database serialization failure without a kind is a Conflict.
func KindOf(err error) (ErrorKind, bool) {
	var kind ErrorKind
	if errors.As(err, &kind) {
		return kind, true
	}
	if isSerializationFailure(err) {
		return Conflict, true
	}
	return "", false
}

// sqlStater is implemented by database driver errors, e.g. *pgconn.PgError.
type sqlStater interface {
	SQLState() string
}

// serialization_failure and deadlock_detected abort the whole transaction.
var conflictStates = []string{"40001", "40P01"}

func isSerializationFailure(err error) bool {
	var e sqlStater
	if !errors.As(err, &e) {
		return false
	}
	state := e.SQLState()
	for _, s := range conflictStates {
		if state == s {
			return true
		}
	}
	return false
}
