package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/havenops/issue-triage/internal/audit"
	"github.com/havenops/issue-triage/internal/index"
	"github.com/havenops/issue-triage/internal/llm"
	"github.com/havenops/issue-triage/internal/retrieval"
	"github.com/havenops/issue-triage/internal/store"
	"github.com/havenops/issue-triage/internal/triage"
)

// #region main
func main() {
	dbPath := envOr("TRIAGE_DB", "triage.db")
	qdrantAddr := envOr("QDRANT_ADDR", "localhost:6334")
	ollamaHost := envOr("OLLAMA_HOST", "http://localhost:11434")
	genModel := envOr("TRIAGE_GEN_MODEL", "llama3.1")
	embedModel := envOr("TRIAGE_EMBED_MODEL", "nomic-embed-text")
	collection := envOr("TRIAGE_COLLECTION", "property_docs")
	scopeID := envOr("TRIAGE_SCOPE", "default")

	st, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	trail, err := audit.NewTrail(st.DB())
	if err != nil {
		log.Fatalf("failed to init audit trail: %v", err)
	}

	embedder, err := index.NewOllamaEmbedder(ollamaHost, embedModel)
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}
	gateway := index.NewGateway(qdrantAddr, collection, embedder)
	defer gateway.Close()

	generator, err := llm.NewOllamaGenerator(ollamaHost, genModel)
	if err != nil {
		log.Fatalf("failed to create generator: %v", err)
	}

	engine := retrieval.NewEngine(gateway)
	pipeline := triage.NewPipeline(engine, generator, st, trail)

	header := color.New(color.FgCyan, color.Bold)
	header.Println("Issue Triage Pipeline ready.")
	fmt.Printf("  DB: %s | Qdrant: %s | Ollama: %s (%s)\n", dbPath, qdrantAddr, ollamaHost, genModel)
	fmt.Println("Describe an issue (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		report := strings.TrimSpace(scanner.Text())
		if report == "" {
			continue
		}
		if report == "quit" || report == "exit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		res, err := pipeline.Triage(ctx, scopeID, report)
		cancel()
		if err != nil {
			log.Printf("triage error: %v", err)
			continue
		}

		printResult(res)
	}
}

// #endregion main

// #region output

func printResult(res triage.Result) {
	fmt.Println()
	if res.Escalated() {
		warn := color.New(color.FgYellow, color.Bold)
		warn.Printf("ESCALATED: %s\n", res.Decision.EscalationReason)
	} else {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Printf("DECISION: %s (%s)\n", res.Decision.ChosenAction, res.Decision.ChosenOptionID)
		for id, score := range res.Decision.PolicyScores {
			fmt.Printf("  %-12s %.3f\n", id, score)
		}
	}
	for _, line := range res.Decision.Reasoning {
		fmt.Printf("  - %s\n", line)
	}
	fmt.Printf("[%s] category=%s urgency=%s retrieved=%d attempts=%d\n\n",
		res.Issue.IssueID[:8], res.Classification.Category, res.Classification.Urgency,
		res.Context.TotalRetrieved, len(res.Attempts))
}

// #endregion output

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
