package azure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// vectorQuery is a vector clause of a search request.
type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
	Weight float64   `json:"weight,omitempty"`
}

// searchRequest is the docs/search payload.
type searchRequest struct {
	Search                string        `json:"search,omitempty"`
	VectorQueries         []vectorQuery `json:"vectorQueries"`
	Top                   int           `json:"top"`
	Select                string        `json:"select"`
	QueryType             string        `json:"queryType,omitempty"`
	SemanticConfiguration string        `json:"semanticConfiguration,omitempty"`
}

// searchResponse is the docs/search result set, ranking order preserved.
type searchResponse struct {
	Value []struct {
		Score         float64  `json:"@search.score"`
		RerankerScore *float64 `json:"@search.rerankerScore"`
		ID            string   `json:"id"`
		Content       string   `json:"content"`
		Title         string   `json:"title"`
		SourceFile    string   `json:"source_file"`
		PageNumber    int      `json:"page_number"`
		ChunkID       int      `json:"chunk_id"`
	} `json:"value"`
}

// Query issues a hybrid (or vector-only) search and returns results in
// the service's ranking order. Results scoring below opts.MinScore are
// dropped; the reranker score is used for the cut when reranking ran.
func (c *Client) Query(ctx context.Context, text string, vector []float32, opts domain.QueryOptions) ([]domain.RetrievalResult, error) {
	if len(vector) == 0 {
		return nil, domain.ErrInvalidInput
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}

	req := searchRequest{
		VectorQueries: []vectorQuery{
			{
				Kind:   "vector",
				Vector: vector,
				Fields: contentVectorField,
				K:      topK,
				Weight: opts.VectorWeight,
			},
		},
		Top:    topK,
		Select: "id,content,title,source_file,page_number,chunk_id",
	}

	if opts.Hybrid {
		req.Search = text
		if opts.SemanticRanking {
			req.QueryType = "semantic"
			req.SemanticConfiguration = semanticConfigName
		}
	}

	var resp searchResponse
	if _, err := c.do(ctx, http.MethodPost, "/indexes/"+c.indexName+"/docs/search", req, &resp); err != nil {
		return nil, fmt.Errorf("query index %q: %w", c.indexName, err)
	}

	results := make([]domain.RetrievalResult, 0, len(resp.Value))
	for _, doc := range resp.Value {
		effective := doc.Score
		if doc.RerankerScore != nil {
			effective = *doc.RerankerScore
		}
		if opts.MinScore > 0 && effective < opts.MinScore {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Key:           doc.ID,
			Content:       doc.Content,
			Title:         doc.Title,
			SourceFile:    doc.SourceFile,
			PageNumber:    doc.PageNumber,
			ChunkPosition: doc.ChunkID,
			Score:         doc.Score,
			RerankerScore: doc.RerankerScore,
		})
	}

	return results, nil
}
