package match

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeElasticsearch records the requests a repository makes
type fakeElasticsearch struct {
	mu        sync.Mutex
	created   []string
	indexed   map[string][]byte // path -> body
	searchHit []entities.MatchResult
	failIndex bool
	existing  []string
	deleted   []string
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusNotFound)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]any, 0, len(f.searchHit))
		for _, result := range f.searchHit {
			hits = append(hits, map[string]any{"_source": result})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": len(hits)},
				"hits":  hits,
			},
		})
	case strings.Contains(r.URL.Path, "/_doc/"):
		if f.failIndex {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
		f.indexed[r.URL.Path] = body
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodGet:
		indices := make(map[string]any, len(f.existing))
		for _, name := range f.existing {
			indices[name] = map[string]any{}
		}
		json.NewEncoder(w).Encode(indices)
	case r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/"))
		w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut:
		f.created = append(f.created, strings.TrimPrefix(r.URL.Path, "/"))
		w.Write([]byte(`{"acknowledged":true}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestElasticsearchRepository(t *testing.T, fake *fakeElasticsearch) (*ElasticsearchRepository, *MemoryRepository) {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	base := NewMemoryRepository()
	repo, err := NewElasticsearchRepository(base, &ElasticsearchConfig{
		URL:         server.URL,
		IndexPrefix: "test",
	})
	require.NoError(t, err)
	repo.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return repo, base
}

func TestSaveResultIndexesDocument(t *testing.T) {
	// Setup
	fake := &fakeElasticsearch{indexed: make(map[string][]byte)}
	repo, base := newTestElasticsearchRepository(t, fake)
	result := testResult("session-1", "alice", "bob", time.Now().UTC())

	// Execute
	err := repo.SaveResult(context.Background(), result)

	// Assert
	require.NoError(t, err)

	stored, err := base.GetResult(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.WinnerID)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"test_matches_2025-03"}, fake.created)

	doc, ok := fake.indexed["/test_matches_2025-03/_doc/session-1"]
	require.True(t, ok, "document should be indexed under its session ID")

	var indexed entities.MatchResult
	require.NoError(t, json.Unmarshal(doc, &indexed))
	assert.Equal(t, "session-1", indexed.SessionID)
	assert.Equal(t, int64(180), indexed.Prize)
}

func TestIndexCreatedOncePerMonth(t *testing.T) {
	fake := &fakeElasticsearch{indexed: make(map[string][]byte)}
	repo, _ := newTestElasticsearchRepository(t, fake)
	ctx := context.Background()

	require.NoError(t, repo.SaveResult(ctx, testResult("s1", "alice", "bob", time.Now())))
	require.NoError(t, repo.SaveResult(ctx, testResult("s2", "alice", "bob", time.Now())))

	repo.now = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, repo.SaveResult(ctx, testResult("s3", "alice", "bob", time.Now())))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"test_matches_2025-03", "test_matches_2025-04"}, fake.created)
	assert.Len(t, fake.indexed, 3)
}

func TestIndexFailureIsReported(t *testing.T) {
	fake := &fakeElasticsearch{indexed: make(map[string][]byte), failIndex: true}
	repo, base := newTestElasticsearchRepository(t, fake)

	err := repo.SaveResult(context.Background(), testResult("s1", "alice", "bob", time.Now()))
	assert.Error(t, err)

	// The base copy is kept even when indexing fails
	_, err = base.GetResult(context.Background(), "s1")
	assert.NoError(t, err)
}

func TestGetPlayerResultsFromSearch(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	fake := &fakeElasticsearch{
		indexed: make(map[string][]byte),
		searchHit: []entities.MatchResult{
			*testResult("s2", "carol", "alice", now),
			*testResult("s1", "alice", "bob", now.Add(-time.Hour)),
		},
	}
	repo, _ := newTestElasticsearchRepository(t, fake)

	results, err := repo.GetPlayerResults(context.Background(), "alice", 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "s2", results[0].SessionID)
	assert.Equal(t, "s1", results[1].SessionID)
	assert.True(t, now.Equal(results[0].CompletedAt))
}

func TestPruneIndicesKeepsRecentMonths(t *testing.T) {
	// Setup: now is March 2025
	fake := &fakeElasticsearch{
		indexed: make(map[string][]byte),
		existing: []string{
			"test_matches_2024-12",
			"test_matches_2025-01",
			"test_matches_2025-02",
			"test_matches_2025-03",
			"test_matches_latest",
		},
	}
	repo, _ := newTestElasticsearchRepository(t, fake)

	// Execute
	deleted, err := repo.PruneIndices(context.Background(), 2)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"test_matches_2024-12", "test_matches_2025-01"}, fake.deleted)
}

func TestPruneIndicesDisabled(t *testing.T) {
	fake := &fakeElasticsearch{indexed: make(map[string][]byte), existing: []string{"test_matches_2020-01"}}
	repo, _ := newTestElasticsearchRepository(t, fake)

	deleted, err := repo.PruneIndices(context.Background(), 0)

	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, fake.deleted)
}
