package decode

// #region imports
import (
	"context"
	"fmt"
)

// #endregion

// #region attempt

// Variant distinguishes the first parse from reprompted retries.
type Variant string

const (
	VariantInitial  Variant = "initial"
	VariantReprompt Variant = "reprompt"
)

// Outcome records how a single parse attempt ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRepaired Outcome = "repaired"
	OutcomeFailed   Outcome = "failed"
)

// ParseAttempt is the audit record for one decode attempt. Not persisted;
// it bounds retries and feeds the audit log.
type ParseAttempt struct {
	Index     int
	Variant   Variant
	Outcome   Outcome
	ErrorKind string // empty on success
}

// #endregion attempt

// #region ports

// Reprompt asks the external generator for a fresh response with a raw-JSON-only
// instruction appended. It is a paid network call, invoked at most
// MaxAttempts-1 times per decode.
type Reprompt func(ctx context.Context) (string, error)

// AttemptLogger receives each attempt record as it happens. Keeping logging
// behind a callback leaves the decode state machine pure and testable.
type AttemptLogger func(a ParseAttempt)

// #endregion ports

// #region errors

// DecodeError reports that all repair and reprompt attempts were exhausted.
type DecodeError struct {
	Kind           string // "syntax" | "schema" | "generator"
	Attempts       int
	LastRawExcerpt string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed after %d attempts (%s)", e.Attempts, e.Kind)
}

// RefusalError reports that the generator declined to answer. The text was
// well-formed-absent rather than malformed, so no repair or reprompt applies;
// callers should route to human escalation.
type RefusalError struct {
	Excerpt string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("generator refused to answer: %q", e.Excerpt)
}

// #endregion errors
