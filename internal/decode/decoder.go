package decode

// #region imports
import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// #endregion

// #region constants

// DefaultMaxAttempts bounds total parse attempts (initial + reprompts).
// Reprompting is a paid network call, so the budget stays small.
const DefaultMaxAttempts = 2

// excerptLen caps the raw-text excerpt carried in errors and audit rows.
const excerptLen = 200

// #endregion

// #region decoder

// Decoder turns free-form generator output into schema-validated objects,
// repairing common structural defects and reprompting within a bounded budget.
type Decoder struct {
	schema      *jsonschema.Schema
	reprompt    Reprompt
	maxAttempts int
	logf        AttemptLogger
}

// NewDecoder creates a decoder for the given compiled schema. reprompt may be
// nil when the caller has no retry channel (replay, tests); logf may be nil.
func NewDecoder(schema *jsonschema.Schema, reprompt Reprompt, maxAttempts int, logf AttemptLogger) *Decoder {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Decoder{
		schema:      schema,
		reprompt:    reprompt,
		maxAttempts: maxAttempts,
		logf:        logf,
	}
}

// #endregion decoder

// #region decode

// Decode runs the attempt/repair/reprompt state machine over raw generator
// text. On success it returns the validated object plus the attempt trail;
// on exhaustion it returns a DecodeError, and on generator refusal a
// RefusalError. It never panics on malformed input.
func (d *Decoder) Decode(ctx context.Context, raw string) (map[string]any, []ParseAttempt, error) {
	text := raw
	var attempts []ParseAttempt
	lastKind := "syntax"
	lastExcerpt := excerpt(raw)

	for i := 0; i < d.maxAttempts; i++ {
		variant := VariantInitial
		if i > 0 {
			variant = VariantReprompt
		}

		if IsRefusal(text) {
			d.record(&attempts, ParseAttempt{Index: i, Variant: variant, Outcome: OutcomeFailed, ErrorKind: "refusal"})
			return nil, attempts, &RefusalError{Excerpt: excerpt(text)}
		}

		obj, outcome, errKind := d.tryParse(text)
		d.record(&attempts, ParseAttempt{Index: i, Variant: variant, Outcome: outcome, ErrorKind: errKind})
		if obj != nil {
			return obj, attempts, nil
		}

		lastKind = errKind
		lastExcerpt = excerpt(text)

		if i+1 >= d.maxAttempts || d.reprompt == nil {
			break
		}

		next, err := d.reprompt(ctx)
		if err != nil {
			// A failed or timed-out reprompt consumes the retry it was meant
			// to fill.
			d.record(&attempts, ParseAttempt{Index: i + 1, Variant: VariantReprompt, Outcome: OutcomeFailed, ErrorKind: "generator"})
			lastKind = "generator"
			break
		}
		text = next
	}

	return nil, attempts, &DecodeError{
		Kind:           lastKind,
		Attempts:       len(attempts),
		LastRawExcerpt: lastExcerpt,
	}
}

// #endregion decode

// #region try-parse

// tryParse strips wrappers, attempts a strict parse+validate, and on syntax
// failure applies the repair heuristics and re-parses exactly once.
func (d *Decoder) tryParse(text string) (map[string]any, Outcome, string) {
	stripped := StripWrappers(text)

	if obj, ok := d.parseValidate(stripped); ok {
		return obj, OutcomeOK, ""
	}

	// Distinguish schema failure from syntax failure: a schema failure means
	// the JSON parsed fine, so structural repair cannot help.
	var v any
	if err := json.Unmarshal([]byte(stripped), &v); err == nil {
		return nil, OutcomeFailed, "schema"
	}

	repaired := Repair(stripped)
	if obj, ok := d.parseValidate(repaired); ok {
		return obj, OutcomeRepaired, ""
	}
	if err := json.Unmarshal([]byte(repaired), &v); err == nil {
		return nil, OutcomeFailed, "schema"
	}
	return nil, OutcomeFailed, "syntax"
}

// parseValidate parses s and validates it against the schema.
func (d *Decoder) parseValidate(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if d.schema != nil {
		if err := d.schema.Validate(v); err != nil {
			return nil, false
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return obj, true
}

// #endregion try-parse

// #region helpers

func (d *Decoder) record(attempts *[]ParseAttempt, a ParseAttempt) {
	*attempts = append(*attempts, a)
	if d.logf != nil {
		d.logf(a)
	}
}

func excerpt(s string) string {
	if len(s) > excerptLen {
		return s[:excerptLen]
	}
	return s
}

// #endregion helpers
