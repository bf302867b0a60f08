package index

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// #endregion

// #region errors

// ErrIndexUnavailable signals that the vector index backend is not reachable
// or not initialized. Callers treat this as "feature disabled", never as
// zero results.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// #endregion errors

// #region types

// Metadata is the indexed-document metadata stored alongside each vector.
type Metadata struct {
	DocType       string
	Category      string
	ScopeID       string
	Version       string
	EffectiveDate string
	ChunkIndex    int
	TotalChunks   int
}

// Match is a single index hit. Score is already converted to a [0,1]
// similarity; Vector is returned so the caller can run diversity re-ranking.
type Match struct {
	DocID    string
	Text     string
	Score    float64
	Vector   []float32
	Metadata Metadata
}

// IndexedDocument is one chunk to upsert. Immutable once indexed.
type IndexedDocument struct {
	DocID    string
	Text     string
	Vector   []float32
	Metadata Metadata
}

// #endregion types

// #region gateway

// Gateway wraps the embedding capability and the qdrant vector index behind
// one similarity-search surface. The grpc handle is created lazily at most
// once per process and treated as read-only afterwards; initialization is
// mutex-guarded so concurrent first callers don't duplicate the dial.
type Gateway struct {
	addr       string
	collection string
	embedder   Embedder

	mu          sync.Mutex
	conn        *grpc.ClientConn
	points      qdrantclient.PointsClient
	collections qdrantclient.CollectionsClient
}

// NewGateway creates a gateway for the given qdrant address and collection.
// No connection is made until the first call.
func NewGateway(addr, collection string, embedder Embedder) *Gateway {
	return &Gateway{
		addr:       addr,
		collection: collection,
		embedder:   embedder,
	}
}

// NewGatewayWithClients creates a gateway with injected qdrant clients.
// Used for testing without a real grpc connection.
func NewGatewayWithClients(
	points qdrantclient.PointsClient,
	collections qdrantclient.CollectionsClient,
	embedder Embedder,
	collection string,
) *Gateway {
	return &Gateway{
		points:      points,
		collections: collections,
		embedder:    embedder,
		collection:  collection,
	}
}

// Close shuts down the grpc connection if one was opened.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

// #endregion gateway

// #region ensure

// ensure dials qdrant on first use. Subsequent calls are cheap.
func (g *Gateway) ensure() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.points != nil {
		return nil
	}

	conn, err := grpc.NewClient(g.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrIndexUnavailable, g.addr, err)
	}
	g.conn = conn
	g.points = qdrantclient.NewPointsClient(conn)
	g.collections = qdrantclient.NewCollectionsClient(conn)
	return nil
}

// #endregion ensure

// #region search

// Search embeds the query text and fetches the fetchK nearest neighbors under
// the filter, with payloads and vectors. Backend failures surface as
// ErrIndexUnavailable-wrapped errors.
func (g *Gateway) Search(ctx context.Context, queryText string, fetchK int, filter *qdrantclient.Filter) ([]Match, error) {
	if err := g.ensure(); err != nil {
		return nil, err
	}

	vector, err := g.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrIndexUnavailable, err)
	}

	resp, err := g.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: g.collection,
		Vector:         vector,
		Limit:          uint64(fetchK),
		Filter:         filter,
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &qdrantclient.WithVectorsSelector{
			SelectorOptions: &qdrantclient.WithVectorsSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrIndexUnavailable, err)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, point := range resp.Result {
		matches = append(matches, matchFromPoint(point))
	}
	return matches, nil
}

// #endregion search

// #region upsert

// Upsert writes document chunks into the index, embedding any chunk that
// arrives without a vector.
func (g *Gateway) Upsert(ctx context.Context, docs []IndexedDocument) error {
	if err := g.ensure(); err != nil {
		return err
	}

	points := make([]*qdrantclient.PointStruct, 0, len(docs))
	for _, doc := range docs {
		vector := doc.Vector
		if vector == nil {
			embedded, err := g.embedder.Embed(ctx, doc.Text)
			if err != nil {
				return fmt.Errorf("embed %s: %w", doc.DocID, err)
			}
			vector = embedded
		}

		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: uuid.New().String()},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: vector},
				},
			},
			Payload: payloadFromDoc(doc),
		})
	}

	_, err := g.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: g.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrIndexUnavailable, err)
	}
	return nil
}

// #endregion upsert

// #region ensure-collection

// EnsureCollection creates the cosine-distance collection if it is missing.
func (g *Gateway) EnsureCollection(ctx context.Context, dimension uint64) error {
	if err := g.ensure(); err != nil {
		return err
	}

	existing, err := g.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %v", ErrIndexUnavailable, err)
	}
	for _, col := range existing.GetCollections() {
		if col.GetName() == g.collection {
			return nil
		}
	}

	_, err = g.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: g.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     dimension,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", ErrIndexUnavailable, err)
	}
	return nil
}

// #endregion ensure-collection

// #region conversion

// similarityFromScore converts a qdrant cosine score in [-1,1] to a [0,1]
// similarity: sim = (1+cos)/2, equivalently 1 - distance/2 for cosine
// distance. One convention, applied everywhere.
func similarityFromScore(score float32) float64 {
	sim := (1.0 + float64(score)) / 2.0
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func matchFromPoint(point *qdrantclient.ScoredPoint) Match {
	m := Match{
		Score:  similarityFromScore(point.GetScore()),
		Vector: point.GetVectors().GetVector().GetData(),
	}

	payload := point.GetPayload()
	m.DocID = payload["doc_id"].GetStringValue()
	m.Text = payload["text"].GetStringValue()
	m.Metadata = Metadata{
		DocType:       payload["doc_type"].GetStringValue(),
		Category:      payload["category"].GetStringValue(),
		ScopeID:       payload["scope_id"].GetStringValue(),
		Version:       payload["version"].GetStringValue(),
		EffectiveDate: payload["effective_date"].GetStringValue(),
		ChunkIndex:    int(payload["chunk_index"].GetIntegerValue()),
		TotalChunks:   int(payload["total_chunks"].GetIntegerValue()),
	}
	return m
}

func payloadFromDoc(doc IndexedDocument) map[string]*qdrantclient.Value {
	return map[string]*qdrantclient.Value{
		"doc_id":         stringValue(doc.DocID),
		"text":           stringValue(doc.Text),
		"doc_type":       stringValue(doc.Metadata.DocType),
		"category":       stringValue(doc.Metadata.Category),
		"scope_id":       stringValue(doc.Metadata.ScopeID),
		"version":        stringValue(doc.Metadata.Version),
		"effective_date": stringValue(doc.Metadata.EffectiveDate),
		"chunk_index":    integerValue(doc.Metadata.ChunkIndex),
		"total_chunks":   integerValue(doc.Metadata.TotalChunks),
	}
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}

func integerValue(i int) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(i)}}
}

// #endregion conversion
