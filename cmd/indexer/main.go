package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/havenops/issue-triage/internal/index"
)

// #region config

const (
	chunkSize    = 1200 // characters per chunk
	chunkOverlap = 200
)

// #endregion config

// #region main
func main() {
	qdrantAddr := envOr("QDRANT_ADDR", "localhost:6334")
	ollamaHost := envOr("OLLAMA_HOST", "http://localhost:11434")
	embedModel := envOr("TRIAGE_EMBED_MODEL", "nomic-embed-text")
	collection := envOr("TRIAGE_COLLECTION", "property_docs")
	scopeID := envOr("TRIAGE_SCOPE", index.GlobalScope)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: indexer path/to/docs [doc_type] [category]")
		os.Exit(2)
	}
	docsDir := os.Args[1]
	docType := "policy"
	if len(os.Args) > 2 {
		docType = os.Args[2]
	}
	category := ""
	if len(os.Args) > 3 {
		category = os.Args[3]
	}

	fmt.Println("=== Document Indexer ===")
	fmt.Printf("  Qdrant: %s | Collection: %s | Scope: %s\n", qdrantAddr, collection, scopeID)
	fmt.Printf("  Docs: %s | Type: %s\n", docsDir, docType)

	embedder, err := index.NewOllamaEmbedder(ollamaHost, embedModel)
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}
	gateway := index.NewGateway(qdrantAddr, collection, embedder)
	defer gateway.Close()

	// Probe the embedding dimension with a throwaway call, then make sure
	// the collection exists before any upsert.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	probe, err := embedder.Embed(ctx, "dimension probe")
	cancel()
	if err != nil {
		log.Fatalf("embed probe: %v", err)
	}
	ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
	err = gateway.EnsureCollection(ctx, uint64(len(probe)))
	cancel()
	if err != nil {
		log.Fatalf("ensure collection: %v", err)
	}

	files, err := listDocFiles(docsDir)
	if err != nil {
		log.Fatalf("list docs: %v", err)
	}
	if len(files) == 0 {
		fmt.Println("No documents found. Done.")
		return
	}

	totalChunks := 0
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("read %s: %v", path, err)
			continue
		}

		docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		chunks := chunkText(string(data))

		docs := make([]index.IndexedDocument, 0, len(chunks))
		for ci, chunk := range chunks {
			docs = append(docs, index.IndexedDocument{
				DocID: docID,
				Text:  chunk,
				Metadata: index.Metadata{
					DocType:     docType,
					Category:    category,
					ScopeID:     scopeID,
					ChunkIndex:  ci,
					TotalChunks: len(chunks),
				},
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		err = gateway.Upsert(ctx, docs)
		cancel()
		if err != nil {
			log.Printf("upsert %s: %v", docID, err)
			continue
		}
		totalChunks += len(chunks)
		fmt.Printf("  [%d/%d] %s: %d chunks\n", i+1, len(files), docID, len(chunks))
	}

	fmt.Printf("\n=== Indexing Complete ===\n")
	fmt.Printf("  Files: %d | Chunks: %d\n", len(files), totalChunks)
}

// #endregion main

// #region files

func listDocFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// #endregion files

// #region chunking

// chunkText splits a document into overlapping character windows, breaking on
// paragraph boundaries where one falls inside the window.
func chunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		// Prefer a paragraph break in the back half of the window.
		cut := end
		if idx := strings.LastIndex(text[start:end], "\n\n"); idx > chunkSize/2 {
			cut = start + idx
		}
		chunks = append(chunks, strings.TrimSpace(text[start:cut]))

		// Overlap must never stall the window.
		next := cut - chunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// #endregion chunking

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
