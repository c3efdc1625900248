package azure

import (
	"context"
	"fmt"
	"net/http"
)

// Schema configuration names, shared between index creation and queries.
const (
	vectorProfileName  = "vector-profile"
	hnswAlgorithmName  = "hnsw-algorithm"
	semanticConfigName = "semantic-config"
	contentVectorField = "content_vector"
)

// indexField is one field definition in the index schema.
type indexField struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Filterable          bool   `json:"filterable"`
	Sortable            bool   `json:"sortable"`
	Facetable           bool   `json:"facetable"`
	Retrievable         bool   `json:"retrievable"`
	Analyzer            string `json:"analyzer,omitempty"`
	VectorDimensions    int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

// indexSchema is the create-index request payload.
type indexSchema struct {
	Name         string       `json:"name"`
	Fields       []indexField `json:"fields"`
	VectorSearch struct {
		Algorithms []struct {
			Name       string         `json:"name"`
			Kind       string         `json:"kind"`
			Parameters map[string]any `json:"hnswParameters"`
		} `json:"algorithms"`
		Profiles []struct {
			Name      string `json:"name"`
			Algorithm string `json:"algorithm"`
		} `json:"profiles"`
	} `json:"vectorSearch"`
	Semantic struct {
		Configurations []semanticConfiguration `json:"configurations"`
	} `json:"semantic"`
}

type semanticConfiguration struct {
	Name              string `json:"name"`
	PrioritizedFields struct {
		TitleField struct {
			FieldName string `json:"fieldName"`
		} `json:"titleField"`
		ContentFields []struct {
			FieldName string `json:"fieldName"`
		} `json:"prioritizedContentFields"`
	} `json:"prioritizedFields"`
}

// buildSchema assembles the index definition: keyword-searchable
// content, an HNSW cosine vector field and a semantic configuration
// prioritising title and content.
func buildSchema(name string, dimension int) indexSchema {
	schema := indexSchema{
		Name: name,
		Fields: []indexField{
			{Name: "id", Type: "Edm.String", Key: true, Filterable: true, Retrievable: true},
			{Name: "content", Type: "Edm.String", Searchable: true, Retrievable: true, Analyzer: "en.microsoft"},
			{
				Name:                contentVectorField,
				Type:                "Collection(Edm.Single)",
				Searchable:          true,
				VectorDimensions:    dimension,
				VectorSearchProfile: vectorProfileName,
			},
			{Name: "title", Type: "Edm.String", Searchable: true, Filterable: true, Retrievable: true},
			{Name: "source_file", Type: "Edm.String", Filterable: true, Facetable: true, Retrievable: true},
			{Name: "page_number", Type: "Edm.Int32", Filterable: true, Retrievable: true},
			{Name: "chunk_id", Type: "Edm.Int32", Filterable: true, Retrievable: true},
			{Name: "created_at", Type: "Edm.DateTimeOffset", Filterable: true, Sortable: true, Retrievable: true},
		},
	}

	schema.VectorSearch.Algorithms = []struct {
		Name       string         `json:"name"`
		Kind       string         `json:"kind"`
		Parameters map[string]any `json:"hnswParameters"`
	}{
		{
			Name: hnswAlgorithmName,
			Kind: "hnsw",
			Parameters: map[string]any{
				"m":              4,
				"efConstruction": 400,
				"efSearch":       500,
				"metric":         "cosine",
			},
		},
	}
	schema.VectorSearch.Profiles = []struct {
		Name      string `json:"name"`
		Algorithm string `json:"algorithm"`
	}{
		{Name: vectorProfileName, Algorithm: hnswAlgorithmName},
	}

	var semantic semanticConfiguration
	semantic.Name = semanticConfigName
	semantic.PrioritizedFields.TitleField.FieldName = "title"
	semantic.PrioritizedFields.ContentFields = []struct {
		FieldName string `json:"fieldName"`
	}{
		{FieldName: "content"},
	}
	schema.Semantic.Configurations = []semanticConfiguration{semantic}

	return schema
}

// EnsureIndex creates the index schema if it does not exist.
func (c *Client) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("search: invalid embedding dimension %d", dimension)
	}

	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	schema := buildSchema(c.indexName, dimension)
	if _, err := c.do(ctx, http.MethodPost, "/indexes", schema, nil); err != nil {
		return fmt.Errorf("create index %q: %w", c.indexName, err)
	}
	return nil
}

// DeleteIndex drops the index. A missing index is not an error.
func (c *Client) DeleteIndex(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodDelete, "/indexes/"+c.indexName, nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete index %q: %w", c.indexName, err)
	}
	return nil
}

// Exists reports whether the index is present.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	status, err := c.do(ctx, http.MethodGet, "/indexes/"+c.indexName, nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("check index %q: %w", c.indexName, err)
	}
	return true, nil
}

// DocumentCount returns the number of records in the index.
func (c *Client) DocumentCount(ctx context.Context) (int64, error) {
	var stats struct {
		DocumentCount int64 `json:"documentCount"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/indexes/"+c.indexName+"/stats", nil, &stats); err != nil {
		return 0, fmt.Errorf("index stats %q: %w", c.indexName, err)
	}
	return stats.DocumentCount, nil
}
