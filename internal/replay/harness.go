package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/havenops/issue-triage/internal/category"
	"github.com/havenops/issue-triage/internal/decision"
	"github.com/havenops/issue-triage/internal/decode"
)

// #region types

// CaseResult captures the outcome of replaying one recorded case through
// decode and decide.
type CaseResult struct {
	CaseID    string
	Action    string
	Escalated bool
	Matched   bool
	Reason    string
	Attempts  []decode.ParseAttempt
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalCases     int
	Matched        int
	Mismatched     int
	Escalations    int
	DecodeFailures int
}

// #endregion types

// #region replay

// Replay runs every recorded case through the decoder and decision engine.
// Reprompts are served from the recorded transcript, so the run is fully
// offline and deterministic.
func Replay(f *Fixture) ([]CaseResult, error) {
	schema, err := decode.CompileOptionsSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	weights := f.Policy.ToWeights()
	cfg := f.Policy.ToConfiguration()

	results := make([]CaseResult, 0, len(f.Cases))
	for _, c := range f.Cases {
		res := replayCase(schema, c, weights, cfg)
		res.Matched = res.Action == c.Expected.Action && res.Escalated == c.Expected.Escalated
		results = append(results, res)
	}
	return results, nil
}

func replayCase(schema *jsonschema.Schema, c FixtureCase, weights decision.PolicyWeights, cfg decision.PolicyConfiguration) CaseResult {
	if len(c.Responses) == 0 {
		return CaseResult{
			CaseID: c.CaseID, Action: decision.EscalationAction,
			Escalated: true, Reason: "case has no recorded responses",
		}
	}

	// Serve reprompts from the recorded transcript in order; running past
	// the recording ends the attempt budget early.
	next := 1
	reprompt := func(context.Context) (string, error) {
		if next >= len(c.Responses) {
			return "", errors.New("transcript exhausted")
		}
		r := c.Responses[next]
		next++
		return r, nil
	}

	d := decode.NewDecoder(schema, reprompt, len(c.Responses), nil)
	obj, attempts, err := d.Decode(context.Background(), c.Responses[0])
	if err != nil {
		return CaseResult{
			CaseID: c.CaseID, Action: decision.EscalationAction,
			Escalated: true, Reason: "decode: " + err.Error(), Attempts: attempts,
		}
	}

	options, err := decode.ToCandidates(obj)
	if err != nil {
		return CaseResult{
			CaseID: c.CaseID, Action: decision.EscalationAction,
			Escalated: true, Reason: "options: " + err.Error(), Attempts: attempts,
		}
	}

	urgency := category.Urgency(c.Urgency)
	if urgency == "" {
		urgency = category.ClassifyReport(c.Report).Urgency
	}

	dec, err := decision.Decide(options, urgency, weights, cfg, c.RuleSources)
	if err != nil {
		return CaseResult{
			CaseID: c.CaseID, Action: decision.EscalationAction,
			Escalated: true, Reason: "decide: " + err.Error(), Attempts: attempts,
		}
	}

	reason := ""
	if len(dec.Reasoning) > 0 {
		reason = dec.Reasoning[0]
	}
	return CaseResult{
		CaseID:   c.CaseID,
		Action:   dec.ChosenAction,
		Reason:   reason,
		Attempts: attempts,
	}
}

// #endregion replay

// #region summarize

// Summarize computes aggregate stats from replay results.
func Summarize(results []CaseResult) Summary {
	s := Summary{TotalCases: len(results)}
	for _, r := range results {
		if r.Matched {
			s.Matched++
		} else {
			s.Mismatched++
		}
		if r.Escalated {
			s.Escalations++
			if len(r.Reason) >= 7 && r.Reason[:7] == "decode:" {
				s.DecodeFailures++
			}
		}
	}
	return s
}

// #endregion summarize
