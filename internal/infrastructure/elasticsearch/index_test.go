package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/domain/repository"
)

type recorded struct {
	method, path string
	query        url.Values
	raw          string
	body         map[string]any
}

// fakeES answers like a cluster. Every response carries the product header the client checks for.
func fakeES(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*Index, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			rec.raw = string(b)
			_ = json.Unmarshal(b, &rec.body)
		}
		mu.Lock()
		reqs = append(reqs, rec)
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := es.NewClient(es.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndex(client, "posts", "users"), &reqs
}

func TestIndex_IndexPost(t *testing.T) {
	t.Parallel()
	idx, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	p := &entity.Post{ID: "p1", Title: "Hike", Tags: []string{"hiking"}, CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, idx.IndexPost(context.Background(), p))

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/posts/_doc/p1", got.path)
	assert.Equal(t, "wait_for", got.query.Get("refresh"))
	assert.Equal(t, "Hike", got.body["title"])
	doc, ok := got.body["doc"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p1", doc["id"])
}

func TestIndex_SearchPosts(t *testing.T) {
	t.Parallel()
	idx, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"title":"Yoga","doc":{"id":"p2","title":"Yoga","userId":"u1"}}},
			{"_source":{"title":"Old","doc":{"id":"p1","title":"Old","userId":"u1"}}}
		]}}`))
	})

	posts, err := idx.SearchPosts(context.Background(), "YO*GA")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, "u1", posts[0].UserID)

	require.Len(t, *reqs, 1)
	assert.True(t, strings.HasSuffix((*reqs)[0].path, "/posts/_search"))
	body, err := json.Marshal((*reqs)[0].body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"value":"*yo\\*ga*"`)
	assert.Contains(t, string(body), `"case_insensitive":true`)
	assert.Contains(t, string(body), `"tags"`)
}

func TestIndex_SearchReportsTruncation(t *testing.T) {
	t.Parallel()
	idx, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		hits := make([]string, maxHits)
		for i := range hits {
			hits[i] = fmt.Sprintf(`{"_source":{"doc":{"id":"p%d"}}}`, i)
		}
		_, _ = fmt.Fprintf(w, `{"hits":{"hits":[%s]}}`, strings.Join(hits, ","))
	})

	_, err := idx.SearchPosts(context.Background(), "a")
	assert.ErrorIs(t, err, repository.ErrIndexTruncated)
}

func TestIndex_BulkWritesEveryDocument(t *testing.T) {
	t.Parallel()
	idx, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	})

	posts := []*entity.Post{{ID: "p1", Title: "Yoga"}, {ID: "p2", Title: "Hike"}}
	users := []*entity.User{{ID: "u1", Name: "Maya"}}
	require.NoError(t, idx.Bulk(context.Background(), posts, users))

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, "/_bulk", got.path)
	assert.Equal(t, "wait_for", got.query.Get("refresh"))
	lines := strings.Split(strings.TrimSpace(got.raw), "\n")
	require.Len(t, lines, 6)
	assert.JSONEq(t, `{"index":{"_index":"posts","_id":"p1"}}`, lines[0])
	assert.JSONEq(t, `{"index":{"_index":"users","_id":"u1"}}`, lines[4])
	assert.Contains(t, lines[5], `"name":"Maya"`)
}

func TestIndex_BulkItemFailure(t *testing.T) {
	t.Parallel()
	idx, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"_id":"p1","status":201}},
			{"index":{"_id":"p2","status":429}}
		]}`))
	})

	err := idx.Bulk(context.Background(), []*entity.Post{{ID: "p1"}, {ID: "p2"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p2")
}

func TestIndex_BulkNothingToWrite(t *testing.T) {
	t.Parallel()
	idx, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {})

	require.NoError(t, idx.Bulk(context.Background(), nil, nil))
	assert.Empty(t, *reqs)
}

func TestIndex_SearchError(t *testing.T) {
	t.Parallel()
	idx, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"cluster_block"}`))
	})

	_, err := idx.SearchUsers(context.Background(), "maya")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestIndex_EnsureIndicesCreatesMissing(t *testing.T) {
	t.Parallel()
	idx, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/posts":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	require.NoError(t, idx.EnsureIndices(context.Background()))

	var created []string
	for _, r := range *reqs {
		if r.method == http.MethodPut {
			created = append(created, r.path)
		}
	}
	assert.Equal(t, []string{"/users"}, created)
}

func TestSearchBody(t *testing.T) {
	t.Parallel()
	body := searchBody(`a?b\c`, []string{"name"}, "joined_at")
	b, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"value":"*a\\?b\\\\c*"`)
	assert.Contains(t, string(b), `"minimum_should_match":1`)
}
