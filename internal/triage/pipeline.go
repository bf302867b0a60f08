package triage

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/havenops/issue-triage/internal/audit"
	"github.com/havenops/issue-triage/internal/category"
	"github.com/havenops/issue-triage/internal/decision"
	"github.com/havenops/issue-triage/internal/decode"
	"github.com/havenops/issue-triage/internal/index"
	"github.com/havenops/issue-triage/internal/llm"
	"github.com/havenops/issue-triage/internal/retrieval"
	"github.com/havenops/issue-triage/internal/store"
)

// #endregion

// #region pipeline-struct

// Pipeline is the top-level coordinator: classify, retrieve, generate,
// decode, decide, persist. Every run ends in a persisted decision; failures
// along the way degrade to the escalation fallback rather than erroring out.
type Pipeline struct {
	retriever   Retriever
	generator   llm.Generator
	store       *store.Store
	trail       *audit.Trail
	weights     decision.PolicyWeights
	cfg         decision.PolicyConfiguration
	maxAttempts int

	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
}

// #endregion

// #region constructor

// NewPipeline creates a fully wired pipeline with the default decision
// policy. trail may be nil to skip stage-event recording.
func NewPipeline(r Retriever, g llm.Generator, st *store.Store, tr *audit.Trail) *Pipeline {
	return &Pipeline{
		retriever:   r,
		generator:   g,
		store:       st,
		trail:       tr,
		weights:     decision.DefaultWeights(),
		cfg:         decision.DefaultConfiguration(),
		maxAttempts: decode.DefaultMaxAttempts,
	}
}

// SetPolicy overrides the decision weights and scaling anchors. Validation
// happens at decision time.
func (p *Pipeline) SetPolicy(w decision.PolicyWeights, cfg decision.PolicyConfiguration) {
	p.weights = w
	p.cfg = cfg
}

// SetMaxDecodeAttempts bounds total parse attempts per run.
func (p *Pipeline) SetMaxDecodeAttempts(n int) {
	if n > 0 {
		p.maxAttempts = n
	}
}

// #endregion

// #region triage

// Triage runs the full decision pipeline for one tenant report.
func (p *Pipeline) Triage(ctx context.Context, scopeID, report string) (Result, error) {
	class := category.ClassifyReport(report)
	log.Printf("[TRIAGE] classify: category=%s urgency=%s escalation_requested=%v",
		class.Category, class.Urgency, class.EscalationRequested)

	issue, err := p.store.CreateIssue(scopeID, report, string(class.Category), string(class.Urgency))
	if err != nil {
		return Result{}, fmt.Errorf("create issue: %w", err)
	}

	res := Result{Issue: issue, Classification: class}
	p.event(issue.IssueID, audit.StageClassify,
		fmt.Sprintf("category=%s urgency=%s", class.Category, class.Urgency))

	if class.EscalationRequested {
		return p.escalate(res, "tenant requested a human", nil)
	}

	// Retrieval. An unreachable index escalates; an empty result set is a
	// valid outcome that also escalates, because deciding without context
	// is worse than handing off.
	q := retrieval.NewQuery(report, scopeID, string(class.Category), category.DocTypesFor(class.Category))
	rc, err := p.retriever.Retrieve(ctx, q)
	if err != nil {
		if errors.Is(err, index.ErrIndexUnavailable) {
			p.event(issue.IssueID, audit.StageRetrieve, "index unavailable")
			return p.escalate(res, "knowledge index unavailable", nil)
		}
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}
	res.Context = rc
	p.event(issue.IssueID, audit.StageRetrieve,
		fmt.Sprintf("method=%s retrieved=%d unique=%d", rc.Method, rc.TotalRetrieved, rc.UniqueDocs))

	if rc.TotalRetrieved == 0 {
		return p.escalate(res, "no relevant documents found", nil)
	}

	// Rule documents are best-effort: they inform weights and citations but
	// their absence never blocks a decision.
	var ruleSources []string
	if rules, err := p.retriever.RetrieveRules(ctx, report, scopeID); err == nil {
		ruleSources = rules.RuleSourceIDs()
	}
	res.RuleSources = ruleSources

	prompt := BuildOptionsPrompt(report, class, rc)
	raw, err := p.generator.Generate(ctx, prompt, llm.DefaultOptions())
	if err != nil {
		p.event(issue.IssueID, audit.StageGenerate, "generator error: "+err.Error())
		return p.escalate(res, "option generator unavailable", ruleSources)
	}
	res.RawResponse = raw
	p.event(issue.IssueID, audit.StageGenerate, fmt.Sprintf("response_len=%d", len(raw)))

	options, attempts, decodeErr := p.decodeOptions(ctx, prompt, raw)
	res.Attempts = attempts
	p.event(issue.IssueID, audit.StageDecode,
		fmt.Sprintf("attempts=%d ok=%v", len(attempts), decodeErr == nil))
	if decodeErr != nil {
		var refusal *decode.RefusalError
		if errors.As(decodeErr, &refusal) {
			return p.escalate(res, "generator refused to propose options", ruleSources)
		}
		return p.escalate(res, "could not decode generator output: "+decodeErr.Error(), ruleSources)
	}

	dec, err := decision.Decide(options, class.Urgency, p.weights, p.cfg, ruleSources)
	if err != nil {
		if errors.Is(err, decision.ErrNoOptions) {
			return p.escalate(res, "generator proposed no options", ruleSources)
		}
		// Invalid weights are an operator configuration error, not a
		// property of this issue.
		return Result{}, fmt.Errorf("decide: %w", err)
	}
	res.Decision = dec

	if err := p.persist(res); err != nil {
		return Result{}, err
	}
	p.event(issue.IssueID, audit.StageDecide,
		fmt.Sprintf("chose %s (%s)", dec.ChosenOptionID, dec.ChosenAction))
	return res, nil
}

// #endregion triage

// #region decode-options

// decodeOptions runs the resilient decoder over raw generator text, wiring
// the reprompt channel back to the generator with a strict-JSON reminder.
func (p *Pipeline) decodeOptions(ctx context.Context, prompt, raw string) ([]decision.CandidateOption, []decode.ParseAttempt, error) {
	// Runs execute concurrently over one pipeline; compile the shared
	// schema exactly once.
	p.schemaOnce.Do(func() {
		p.schema, p.schemaErr = decode.CompileOptionsSchema()
	})
	if p.schemaErr != nil {
		return nil, nil, fmt.Errorf("compile schema: %w", p.schemaErr)
	}

	reprompt := func(ctx context.Context) (string, error) {
		return p.generator.Generate(ctx, BuildRepairPrompt(prompt), llm.DefaultOptions())
	}

	d := decode.NewDecoder(p.schema, reprompt, p.maxAttempts, nil)
	obj, attempts, err := d.Decode(ctx, raw)
	if err != nil {
		return nil, attempts, err
	}

	options, err := decode.ToCandidates(obj)
	if err != nil {
		return nil, attempts, err
	}
	return options, attempts, nil
}

// #endregion decode-options

// #region escalate

// escalate persists the fixed escalation decision for the run and returns
// the completed result. Escalation is a success path, not an error.
func (p *Pipeline) escalate(res Result, reason string, ruleSources []string) (Result, error) {
	res.Decision = decision.DecideEscalation(reason, ruleSources)
	res.RuleSources = ruleSources
	log.Printf("[TRIAGE] escalating issue %s: %s", res.Issue.IssueID, reason)
	if err := p.persist(res); err != nil {
		return Result{}, err
	}
	p.event(res.Issue.IssueID, audit.StageDecide, "escalated: "+reason)
	return res, nil
}

// #endregion escalate

// #region persist

// persist writes the decision record; JSON columns are best-effort encoded.
func (p *Pipeline) persist(res Result) error {
	rec := store.DecisionRecord{
		IssueID:          res.Issue.IssueID,
		ChosenOptionID:   res.Decision.ChosenOptionID,
		ChosenAction:     res.Decision.ChosenAction,
		Reasoning:        strings.Join(res.Decision.Reasoning, "; "),
		Escalated:        res.Escalated(),
		EscalationReason: res.Decision.EscalationReason,
		RetrievalMethod:  res.Context.Method,
		RetrievedCount:   res.Context.TotalRetrieved,
		RawResponse:      res.RawResponse,
	}
	rec.ScoresJSON = marshalOrEmpty(res.Decision.PolicyScores)
	rec.RuleSourcesJSON = marshalOrEmpty(res.Decision.RuleSources)
	rec.AttemptsJSON = marshalOrEmpty(res.Attempts)

	if _, err := p.store.LogDecision(rec); err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

func marshalOrEmpty(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// #endregion persist

// #region event

func (p *Pipeline) event(issueID, stage, detail string) {
	if p.trail == nil {
		return
	}
	if err := p.trail.RecordEvent(issueID, stage, detail); err != nil {
		log.Printf("[TRIAGE] failed to record %s event: %v", stage, err)
	}
}

// #endregion event
