package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fadedpez/rpsarena/pkg/entities"
)

// ElasticsearchConfig holds configuration options for the Elasticsearch repository
type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
	Transport   http.RoundTripper // optional, used by tests
}

// DefaultElasticsearchConfig returns a default configuration for Elasticsearch
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:         "http://localhost:9200",
		IndexPrefix: "rpsarena",
	}
}

const matchMapping = `{
	"mappings": {
		"properties": {
			"session_id": { "type": "keyword" },
			"tournament_id": { "type": "keyword" },
			"round": { "type": "integer" },
			"player_a": { "type": "keyword" },
			"player_b": { "type": "keyword" },
			"move_a": { "type": "keyword" },
			"move_b": { "type": "keyword" },
			"stake": { "type": "long" },
			"winner_id": { "type": "keyword" },
			"prize": { "type": "long" },
			"state": { "type": "keyword" },
			"created_at": { "type": "date" },
			"completed_at": { "type": "date" }
		}
	}
}`

// ElasticsearchRepository stores results in a base repository and indexes
// them into monthly Elasticsearch indices for history search
type ElasticsearchRepository struct {
	baseRepo    Repository
	client      *elasticsearch.Client
	indexPrefix string
	now         func() time.Time

	mu      sync.Mutex
	indices map[string]bool // indices known to exist
}

// NewElasticsearchRepository creates a new Elasticsearch-backed match repository
func NewElasticsearchRepository(baseRepo Repository, config *ElasticsearchConfig) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
		Transport: config.Transport,
	}

	// Add authentication if provided
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if config.IndexPrefix == "" {
		config.IndexPrefix = "rpsarena"
	}

	return &ElasticsearchRepository{
		baseRepo:    baseRepo,
		client:      client,
		indexPrefix: config.IndexPrefix,
		now:         time.Now,
		indices:     make(map[string]bool),
	}, nil
}

// currentIndex returns the monthly index name results are written to
func (r *ElasticsearchRepository) currentIndex() string {
	return r.indexPrefix + "_matches_" + r.now().Format("2006-01")
}

// ensureIndex creates the index with the match mapping if it doesn't exist
func (r *ElasticsearchRepository) ensureIndex(ctx context.Context, index string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indices[index] {
		return nil
	}

	res, err := r.client.Indices.Exists([]string{index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		req := esapi.IndicesCreateRequest{
			Index: index,
			Body:  strings.NewReader(matchMapping),
		}

		res, err := req.Do(ctx, r.client)
		if err != nil {
			return fmt.Errorf("error creating index %s: %w", index, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("error creating index %s: %s", index, res.String())
		}
		log.Printf("[ELASTICSEARCH] Created index %s", index)
	}

	r.indices[index] = true
	return nil
}

// IndexResult writes a result document into the current monthly index
func (r *ElasticsearchRepository) IndexResult(ctx context.Context, result *entities.MatchResult) error {
	index := r.currentIndex()
	if err := r.ensureIndex(ctx, index); err != nil {
		return err
	}

	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("error marshaling match result: %w", err)
	}

	res, err := r.client.Index(
		index,
		bytes.NewReader(jsonData),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(result.SessionID),
		r.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error indexing match result: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing match result: %s", res.String())
	}

	return nil
}

// SaveResult saves a result to the base repository and indexes it in Elasticsearch
func (r *ElasticsearchRepository) SaveResult(ctx context.Context, result *entities.MatchResult) error {
	if err := r.baseRepo.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("error saving match result to base repository: %w", err)
	}
	return r.IndexResult(ctx, result)
}

// GetResult reads from the base repository
func (r *ElasticsearchRepository) GetResult(ctx context.Context, sessionID string) (*entities.MatchResult, error) {
	return r.baseRepo.GetResult(ctx, sessionID)
}

// GetTournamentResults reads from the base repository
func (r *ElasticsearchRepository) GetTournamentResults(ctx context.Context, tournamentID string) ([]*entities.MatchResult, error) {
	return r.baseRepo.GetTournamentResults(ctx, tournamentID)
}

// GetPlayerResults searches every monthly index for the player's results, newest first
func (r *ElasticsearchRepository) GetPlayerResults(ctx context.Context, playerID string, limit int) ([]*entities.MatchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"term": map[string]any{"player_a": playerID}},
					map[string]any{"term": map[string]any{"player_b": playerID}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []any{
			map[string]any{"completed_at": map[string]any{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error building player results query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.indexPrefix+"_matches_*"),
		r.client.Search.WithBody(bytes.NewReader(body)),
		r.client.Search.WithSize(limit),
		r.client.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("error searching for player results: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching for player results: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source entities.MatchResult `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error parsing player results: %w", err)
	}

	results := make([]*entities.MatchResult, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		result := hit.Source
		results = append(results, &result)
	}
	return results, nil
}

// GetIndices returns the names of the monthly match indices
func (r *ElasticsearchRepository) GetIndices(ctx context.Context) ([]string, error) {
	res, err := r.client.Indices.Get(
		[]string{r.indexPrefix + "_matches_*"},
		r.client.Indices.Get.WithContext(ctx),
		r.client.Indices.Get.WithExpandWildcards("open"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error getting indices: %s", res.String())
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("error parsing indices response: %w", err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// PruneIndices deletes monthly indices older than keepMonths, counting the
// current month. Returns how many were deleted.
func (r *ElasticsearchRepository) PruneIndices(ctx context.Context, keepMonths int) (int, error) {
	if keepMonths <= 0 {
		return 0, nil
	}

	names, err := r.GetIndices(ctx)
	if err != nil {
		return 0, err
	}

	now := r.now().UTC()
	cutoff := time.Date(now.Year(), now.Month()-time.Month(keepMonths-1), 1, 0, 0, 0, 0, time.UTC)
	prefix := r.indexPrefix + "_matches_"

	deleted := 0
	for _, name := range names {
		month, err := time.Parse("2006-01", strings.TrimPrefix(name, prefix))
		if err != nil {
			log.Printf("[ELASTICSEARCH] Skipping index %s: %v", name, err)
			continue
		}
		if !month.Before(cutoff) {
			continue
		}

		req := esapi.IndicesDeleteRequest{Index: []string{name}}
		res, err := req.Do(ctx, r.client)
		if err != nil {
			log.Printf("[ELASTICSEARCH] Error deleting index %s: %v", name, err)
			continue
		}
		res.Body.Close()
		if res.IsError() {
			log.Printf("[ELASTICSEARCH] Error deleting index %s: %s", name, res.String())
			continue
		}

		r.mu.Lock()
		delete(r.indices, name)
		r.mu.Unlock()

		log.Printf("[ELASTICSEARCH] Deleted index %s (older than %d months)", name, keepMonths)
		deleted++
	}
	return deleted, nil
}

// Close closes the base repository
func (r *ElasticsearchRepository) Close() error {
	return r.baseRepo.Close()
}
