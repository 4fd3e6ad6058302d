// internal/workers/data-access/search-catalog/elasticsearch.go
package searchcatalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"leadbot/internal/models"
)

const catalogMapping = `{
	"mappings": {
		"properties": {
			"kind":      {"type": "keyword"},
			"id":        {"type": "keyword"},
			"name":      {"type": "text"},
			"name_ar":   {"type": "text", "analyzer": "arabic"},
			"parent_id": {"type": "keyword"}
		}
	}
}`

// ElasticsearchBackend ranks catalog names with a fuzzy multi_match query.
// Raw scores are divided by the best score of the response so thresholds
// stay comparable with the vector backend.
type ElasticsearchBackend struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchBackend(client *elasticsearch.Client, index string) *ElasticsearchBackend {
	if index == "" {
		index = "catalog"
	}
	return &ElasticsearchBackend{client: client, index: index}
}

func (b *ElasticsearchBackend) Name() string { return "elasticsearch" }

// Mapping is the index mapping Index expects.
func (b *ElasticsearchBackend) Mapping() string { return catalogMapping }

func (b *ElasticsearchBackend) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, d := range docs {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": b.index, "_id": d.Key()}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(d); err != nil {
			return err
		}
	}

	res, err := esapi.BulkRequest{
		Body:    &body,
		Refresh: "true",
	}.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.Status())
	}

	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if parsed.Errors {
		return fmt.Errorf("bulk index: some documents were rejected")
	}
	return nil
}

func (b *ElasticsearchBackend) Search(ctx context.Context, query string, kind models.EntityKind, topK int, threshold float64) ([]models.SearchHit, error) {
	body, _ := json.Marshal(buildSearchQuery(query, kind))
	res, err := esapi.SearchRequest{
		Index: []string{b.index},
		Body:  strings.NewReader(string(body)),
		Size:  &topK,
	}.Do(ctx, b.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", b.index, res.Status())
	}

	var parsed struct {
		Hits struct {
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	max := parsed.Hits.MaxScore
	out := make([]models.SearchHit, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if max <= 0 {
			break
		}
		score := hit.Score / max
		if score < threshold {
			continue
		}
		out = append(out, models.SearchHit{
			Kind:  hit.Source.Kind,
			ID:    hit.Source.ID,
			Name:  hit.Source.Name,
			Score: score,
		})
	}
	return out, nil
}

func buildSearchQuery(query string, kind models.EntityKind) map[string]interface{} {
	match := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"name^2", "name_ar^2"},
			"fuzziness": "AUTO",
			"type":      "best_fields",
		},
	}
	if kind == "" {
		return map[string]interface{}{"query": match}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   match,
				"filter": []interface{}{map[string]interface{}{"term": map[string]interface{}{"kind": string(kind)}}},
			},
		},
	}
}
