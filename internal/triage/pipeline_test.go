package triage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/havenops/issue-triage/internal/audit"
	"github.com/havenops/issue-triage/internal/decision"
	"github.com/havenops/issue-triage/internal/index"
	"github.com/havenops/issue-triage/internal/llm"
	"github.com/havenops/issue-triage/internal/retrieval"
	"github.com/havenops/issue-triage/internal/store"
)

// #region fakes

type fakeRetriever struct {
	result    retrieval.Context
	rules     retrieval.Context
	err       error
	rulesErr  error
	lastQuery retrieval.Query
}

func (f *fakeRetriever) Retrieve(_ context.Context, q retrieval.Query) (retrieval.Context, error) {
	f.lastQuery = q
	return f.result, f.err
}

func (f *fakeRetriever) RetrieveRules(_ context.Context, _, _ string) (retrieval.Context, error) {
	return f.rules, f.rulesErr
}

type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ llm.Options) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	var resp string
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

func contextWith(docIDs ...string) retrieval.Context {
	var docs []retrieval.Document
	for _, id := range docIDs {
		docs = append(docs, retrieval.Document{DocID: id, Text: "chunk of " + id, Score: 0.8})
	}
	unique := make(map[string]bool)
	for _, d := range docs {
		unique[d.DocID] = true
	}
	return retrieval.Context{
		Retrieved:      docs,
		TotalRetrieved: len(docs),
		Method:         retrieval.MethodMMR,
		UniqueDocs:     len(unique),
		HasDiversity:   len(unique) >= 2,
		Timestamp:      time.Now().UTC(),
	}
}

// staticRetriever and staticGenerator are safe for concurrent calls, unlike
// the recording fakes above.
type staticRetriever struct {
	result retrieval.Context
}

func (s staticRetriever) Retrieve(_ context.Context, _ retrieval.Query) (retrieval.Context, error) {
	return s.result, nil
}

func (s staticRetriever) RetrieveRules(_ context.Context, _, _ string) (retrieval.Context, error) {
	return retrieval.Context{}, nil
}

type staticGenerator struct {
	mu       sync.Mutex
	calls    int
	response string
}

func (g *staticGenerator) Generate(_ context.Context, _ string, _ llm.Options) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.response, nil
}

const validOptions = `{"options": [
	{"option_id": "opt-1", "action": "dispatch_plumber", "estimated_cost": 250, "estimated_time": 4,
	 "reasoning": "licensed plumber for the leak", "satisfaction_impact": 0.9, "source_doc_ids": ["handbook"]},
	{"option_id": "opt-2", "action": "schedule_inspection", "estimated_cost": 150, "estimated_time": 48,
	 "reasoning": "cheaper but slower", "satisfaction_impact": 0.5, "source_doc_ids": []}
]}`

func newTestPipeline(t *testing.T, r Retriever, g llm.Generator) (*Pipeline, *store.Store, *audit.Trail) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tr, err := audit.NewTrail(st.DB())
	if err != nil {
		t.Fatalf("NewTrail: %v", err)
	}
	return NewPipeline(r, g, st, tr), st, tr
}

// #endregion fakes

// #region happy-path

func TestTriageHappyPath(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook", "vendor-list"), rules: contextWith("rules-doc")}
	g := &scriptedGenerator{responses: []string{validOptions}}
	p, st, tr := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "water leak under the kitchen sink, urgent")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if res.Escalated() {
		t.Fatalf("unexpected escalation: %+v", res.Decision)
	}
	if res.Decision.ChosenOptionID == "" {
		t.Fatal("expected a chosen option")
	}
	if res.Decision.PolicyScores[res.Decision.ChosenOptionID] != 1.0 {
		t.Errorf("winner score = %v, want exactly 1.0", res.Decision.PolicyScores[res.Decision.ChosenOptionID])
	}
	if len(res.RuleSources) != 1 || res.RuleSources[0] != "rules-doc" {
		t.Errorf("rule sources = %v, want [rules-doc]", res.RuleSources)
	}
	if r.lastQuery.Category != "plumbing" {
		t.Errorf("retrieval category = %q, want plumbing", r.lastQuery.Category)
	}

	issue, err := st.GetIssue(res.Issue.IssueID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue.Status != store.StatusDecided {
		t.Errorf("issue status = %q, want %q", issue.Status, store.StatusDecided)
	}

	decisions, _ := st.DecisionsForIssue(res.Issue.IssueID)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 persisted decision, got %d", len(decisions))
	}
	if decisions[0].ChosenAction != res.Decision.ChosenAction {
		t.Errorf("persisted action = %q, want %q", decisions[0].ChosenAction, res.Decision.ChosenAction)
	}
	if decisions[0].RetrievedCount != 2 {
		t.Errorf("persisted retrieved count = %d, want 2", decisions[0].RetrievedCount)
	}

	events, _ := tr.EventsForIssue(res.Issue.IssueID)
	var stages []string
	for _, ev := range events {
		stages = append(stages, ev.Stage)
	}
	want := []string{audit.StageClassify, audit.StageRetrieve, audit.StageGenerate, audit.StageDecode, audit.StageDecide}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, stages[i], want[i])
		}
	}
}

// #endregion happy-path

// #region escalation-paths

func TestTriageTenantRequestsHuman(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook")}
	g := &scriptedGenerator{}
	p, st, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "I want to speak to a human about my rent")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if !res.Escalated() {
		t.Fatal("expected escalation")
	}
	if len(g.prompts) != 0 {
		t.Error("explicit human request must short-circuit before generation")
	}

	issue, _ := st.GetIssue(res.Issue.IssueID)
	if issue.Status != store.StatusEscalated {
		t.Errorf("issue status = %q, want %q", issue.Status, store.StatusEscalated)
	}
}

func TestTriageIndexUnavailableEscalates(t *testing.T) {
	r := &fakeRetriever{err: index.ErrIndexUnavailable}
	g := &scriptedGenerator{}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	if err != nil {
		t.Fatalf("index outage must escalate, not error: %v", err)
	}
	if !res.Escalated() {
		t.Fatal("expected escalation")
	}
	if !strings.Contains(res.Decision.EscalationReason, "index unavailable") {
		t.Errorf("reason = %q", res.Decision.EscalationReason)
	}
}

func TestTriageNoContextEscalates(t *testing.T) {
	r := &fakeRetriever{result: retrieval.Context{Method: retrieval.MethodNoResults, Timestamp: time.Now()}}
	g := &scriptedGenerator{}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "strange smell in the basement")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if !res.Escalated() {
		t.Fatal("expected escalation on empty retrieval")
	}
	if len(g.prompts) != 0 {
		t.Error("no generation without context")
	}
}

func TestTriageGeneratorErrorEscalates(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook")}
	g := &scriptedGenerator{errs: []error{errors.New("connection refused")}}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if !res.Escalated() {
		t.Fatal("expected escalation on generator failure")
	}
}

func TestTriageRefusalEscalates(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook")}
	g := &scriptedGenerator{responses: []string{"I cannot assist with that request."}}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if !res.Escalated() {
		t.Fatal("expected escalation on refusal")
	}
	if !strings.Contains(res.Decision.EscalationReason, "refused") {
		t.Errorf("reason = %q", res.Decision.EscalationReason)
	}
	if len(g.prompts) != 1 {
		t.Errorf("refusal must not trigger a reprompt, generator called %d times", len(g.prompts))
	}
}

func TestTriageDecodeExhaustionEscalates(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook")}
	g := &scriptedGenerator{responses: []string{"{{{ not json", "{{{ still not json"}}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if !res.Escalated() {
		t.Fatal("expected escalation after exhausting decode attempts")
	}
	if len(res.Attempts) == 0 {
		t.Error("attempt trail must survive into the result")
	}
	// Initial generate plus one bounded reprompt.
	if len(g.prompts) != 2 {
		t.Errorf("generator called %d times, want 2", len(g.prompts))
	}
	if !strings.Contains(g.prompts[1], "not valid JSON") {
		t.Errorf("reprompt must carry the strict-JSON reminder, got %q", g.prompts[1][:40])
	}
}

// #endregion escalation-paths

// #region reprompt-recovery

func TestTriageRepromptRecovers(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook")}
	g := &scriptedGenerator{responses: []string{"here are my thoughts, no json though %%", validOptions}}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if res.Escalated() {
		t.Fatalf("expected recovery via reprompt, got escalation: %s", res.Decision.EscalationReason)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("attempt trail length = %d, want 2", len(res.Attempts))
	}
}

// #endregion reprompt-recovery

// #region concurrency

func TestTriageConcurrentRuns(t *testing.T) {
	r := staticRetriever{result: contextWith("handbook")}
	g := &staticGenerator{response: validOptions}
	p, st, _ := newTestPipeline(t, r, g)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	ids := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet in unit 4B")
			if err != nil {
				errs <- err
				return
			}
			if res.Escalated() {
				errs <- errors.New("unexpected escalation: " + res.Decision.EscalationReason)
				return
			}
			ids <- res.Issue.IssueID
		}()
	}
	wg.Wait()
	close(errs)
	close(ids)

	for err := range errs {
		t.Errorf("concurrent Triage: %v", err)
	}
	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != workers {
		t.Fatalf("distinct issues = %d, want %d", len(seen), workers)
	}

	decisions, err := st.ListDecisions(workers * 2)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(decisions) != workers {
		t.Errorf("persisted decisions = %d, want %d", len(decisions), workers)
	}
}

// #endregion concurrency

// #region config

func TestTriageInvalidPolicyIsAnError(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook")}
	g := &scriptedGenerator{responses: []string{validOptions}}
	p, _, _ := newTestPipeline(t, r, g)
	p.SetPolicy(decision.PolicyWeights{Urgency: 1, Cost: 1, Time: 1, Satisfaction: 1}, decision.DefaultConfiguration())

	_, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	var invalid *decision.InvalidWeightsError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidWeightsError, got %v", err)
	}
}

func TestTriageRuleRetrievalFailureIsNonFatal(t *testing.T) {
	r := &fakeRetriever{result: contextWith("handbook"), rulesErr: errors.New("timeout")}
	g := &scriptedGenerator{responses: []string{validOptions}}
	p, _, _ := newTestPipeline(t, r, g)

	res, err := p.Triage(context.Background(), "bldg-7", "leaking faucet")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if res.Escalated() {
		t.Fatal("rule lookup failure must not escalate")
	}
	if len(res.RuleSources) != 0 {
		t.Errorf("rule sources = %v, want none", res.RuleSources)
	}
}

// #endregion config
