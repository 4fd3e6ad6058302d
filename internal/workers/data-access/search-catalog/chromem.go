// internal/workers/data-access/search-catalog/chromem.go
package searchcatalog

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"

	"leadbot/internal/models"
)

const collectionName = "catalog"

// ChromemBackend keeps the catalog in an in-process vector collection.
type ChromemBackend struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

func NewChromemBackend(embed chromem.EmbeddingFunc) (*ChromemBackend, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemBackend{db: db, collection: col, embedFunc: embed}, nil
}

func (b *ChromemBackend) Name() string { return "chromem" }

// Index replaces the documents of every kind present in docs.
func (b *ChromemBackend) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	kinds := map[models.EntityKind]bool{}
	out := make([]chromem.Document, len(docs))
	for i, d := range docs {
		kinds[d.Kind] = true
		out[i] = chromem.Document{
			ID:      d.Key(),
			Content: strings.TrimSpace(d.Name + " " + d.SecondaryName),
			Metadata: map[string]string{
				"kind":      string(d.Kind),
				"id":        d.ID,
				"name":      d.Name,
				"parent_id": d.ParentID,
			},
		}
	}
	if b.collection.Count() > 0 {
		for kind := range kinds {
			if err := b.collection.Delete(ctx, map[string]string{"kind": string(kind)}, nil); err != nil {
				return fmt.Errorf("clear %s documents: %w", kind, err)
			}
		}
	}
	return b.collection.AddDocuments(ctx, out, 1)
}

func (b *ChromemBackend) Search(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
	// chromem-go requires nResults <= collection size.
	count := b.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	var where map[string]string
	if kind != "" {
		where = map[string]string{"kind": string(kind)}
	}
	results, err := b.collection.Query(ctx, query, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	out := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if score < threshold {
			continue
		}
		out = append(out, models.SearchHit{
			Kind:  models.EntityKind(r.Metadata["kind"]),
			ID:    r.Metadata["id"],
			Name:  r.Metadata["name"],
			Score: score,
		})
	}
	return out, nil
}

func (b *ChromemBackend) Count() int {
	return b.collection.Count()
}

func (b *ChromemBackend) Persist(path string) error {
	return b.db.ExportToFile(path, true, "")
}

func (b *ChromemBackend) Load(path string) error {
	if err := b.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}
	col := b.db.GetCollection(collectionName, b.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	b.collection = col
	return nil
}

// NewOpenAIEmbeddingFunc embeds one text per call with the OpenAI
// embeddings endpoint.
func NewOpenAIEmbeddingFunc(client *openai.Client, model string) chromem.EmbeddingFunc {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedding request failed: %w", err)
		}
		if len(resp.Data) != 1 {
			return nil, fmt.Errorf("openai returned %d embeddings, expected 1", len(resp.Data))
		}
		return resp.Data[0].Embedding, nil
	}
}
