package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// uploadDocument is one action in an index batch.
type uploadDocument struct {
	Action        string    `json:"@search.action"`
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	ContentVector []float32 `json:"content_vector"`
	Title         string    `json:"title"`
	SourceFile    string    `json:"source_file"`
	PageNumber    int       `json:"page_number"`
	ChunkID       int       `json:"chunk_id"`
	CreatedAt     string    `json:"created_at"`
}

// uploadBatch is the index request payload.
type uploadBatch struct {
	Value []uploadDocument `json:"value"`
}

// uploadResponse reports per-document status. The service returns 207
// when some documents fail.
type uploadResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

// Upload pushes records in batches bounded by the service limits
// (1000 actions, 16 MB payload). A failed batch contributes its keys
// to FailedKeys; earlier batches are never rolled back.
func (c *Client) Upload(ctx context.Context, records []domain.IndexRecord) (*driven.UploadResult, error) {
	result := &driven.UploadResult{}
	if len(records) == 0 {
		return result, nil
	}

	var batch []uploadDocument
	var batchBytes int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		uploaded, failed, err := c.uploadBatch(ctx, batch)
		result.Uploaded += uploaded
		result.FailedKeys = append(result.FailedKeys, failed...)
		batch = nil
		batchBytes = 0
		return err
	}

	for _, record := range records {
		doc := toUploadDocument(record)

		size, err := documentSize(doc)
		if err != nil {
			return result, err
		}

		if len(batch) >= maxBatchActions || (batchBytes+size > maxBatchBytes && len(batch) > 0) {
			if err := flush(); err != nil {
				return result, err
			}
		}

		batch = append(batch, doc)
		batchBytes += size
	}

	if err := flush(); err != nil {
		return result, err
	}
	return result, nil
}

// uploadBatch sends one batch and splits the response into accepted
// and failed keys.
func (c *Client) uploadBatch(ctx context.Context, docs []uploadDocument) (int, []string, error) {
	var resp uploadResponse
	status, err := c.do(ctx, http.MethodPost, "/indexes/"+c.indexName+"/docs/index", uploadBatch{Value: docs}, &resp)
	if err != nil && status != http.StatusMultiStatus {
		keys := make([]string, len(docs))
		for i, doc := range docs {
			keys[i] = doc.ID
		}
		return 0, keys, fmt.Errorf("upload batch of %d: %w", len(docs), err)
	}

	uploaded := 0
	var failed []string
	for _, item := range resp.Value {
		if item.Status {
			uploaded++
			continue
		}
		failed = append(failed, item.Key)
		logger.Warn("index rejected document %s: %s", item.Key, item.ErrorMessage)
	}

	// An empty per-document report on a 200 means the whole batch
	// was accepted.
	if len(resp.Value) == 0 {
		uploaded = len(docs)
	}

	return uploaded, failed, nil
}

func toUploadDocument(record domain.IndexRecord) uploadDocument {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return uploadDocument{
		Action:        "mergeOrUpload",
		ID:            record.Key,
		Content:       record.Content,
		ContentVector: record.ContentVector,
		Title:         record.Title,
		SourceFile:    record.SourceFile,
		PageNumber:    record.PageNumber,
		ChunkID:       record.ChunkPosition,
		CreatedAt:     createdAt.UTC().Format(time.RFC3339),
	}
}

// documentSize estimates the serialized size of one action for the
// payload limit.
func documentSize(doc uploadDocument) (int, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("search: marshal document %s: %w", doc.ID, err)
	}
	return len(payload) + 1, nil
}
