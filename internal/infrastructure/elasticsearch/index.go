package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/domain/repository"
)

const (
	// maxHits bounds a single search. A search that fills it reports ErrIndexTruncated.
	maxHits = 1000
	// bulkBatch is the number of documents per _bulk request.
	bulkBatch = 500
)

// Index mirrors posts and profiles into Elasticsearch. Searchable fields are
// wildcard-typed so a case-insensitive "*q*" query gives substring semantics.
// The full document is kept unindexed under "doc".
type Index struct {
	es         *es.Client
	postsIndex string
	usersIndex string
	timeout    time.Duration
}

func NewIndex(client *es.Client, postsIndex, usersIndex string) *Index {
	return &Index{es: client, postsIndex: postsIndex, usersIndex: usersIndex, timeout: 3 * time.Second}
}

type postDoc struct {
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Location  string       `json:"location"`
	Tags      []string     `json:"tags"`
	CreatedAt time.Time    `json:"created_at"`
	Doc       *entity.Post `json:"doc"`
}

type userDoc struct {
	Name      string       `json:"name"`
	Bio       string       `json:"bio"`
	Interests []string     `json:"interests"`
	JoinedAt  time.Time    `json:"joined_at"`
	Doc       *entity.User `json:"doc"`
}

var postsMapping = `{
  "mappings": {
    "properties": {
      "title":      {"type": "wildcard"},
      "content":    {"type": "wildcard"},
      "location":   {"type": "wildcard"},
      "tags":       {"type": "wildcard"},
      "created_at": {"type": "date"},
      "doc":        {"type": "object", "enabled": false}
    }
  }
}`

var usersMapping = `{
  "mappings": {
    "properties": {
      "name":      {"type": "wildcard"},
      "bio":       {"type": "wildcard"},
      "interests": {"type": "wildcard"},
      "joined_at": {"type": "date"},
      "doc":       {"type": "object", "enabled": false}
    }
  }
}`

// EnsureIndices creates the posts and users indices when missing.
func (i *Index) EnsureIndices(ctx context.Context) error {
	for name, mapping := range map[string]string{i.postsIndex: postsMapping, i.usersIndex: usersMapping} {
		res, err := esapi.IndicesExistsRequest{Index: []string{name}}.Do(ctx, i.es)
		if err != nil {
			return err
		}
		_ = res.Body.Close()
		if res.StatusCode == http.StatusOK {
			continue
		}
		res, err = esapi.IndicesCreateRequest{Index: name, Body: strings.NewReader(mapping)}.Do(ctx, i.es)
		if err != nil {
			return err
		}
		err = responseErr(res)
		_ = res.Body.Close()
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

func newPostDoc(p *entity.Post) postDoc {
	return postDoc{Title: p.Title, Content: p.Content, Location: p.Location, Tags: p.Tags, CreatedAt: p.CreatedAt, Doc: p}
}

func newUserDoc(u *entity.User) userDoc {
	return userDoc{Name: u.Name, Bio: u.Bio, Interests: u.Interests, JoinedAt: u.JoinedAt, Doc: u}
}

func (i *Index) IndexPost(ctx context.Context, p *entity.Post) error {
	return i.put(ctx, i.postsIndex, p.ID, newPostDoc(p))
}

func (i *Index) IndexUser(ctx context.Context, u *entity.User) error {
	return i.put(ctx, i.usersIndex, u.ID, newUserDoc(u))
}

func (i *Index) put(ctx context.Context, index, id string, doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	res, err := esapi.IndexRequest{Index: index, DocumentID: id, Body: bytes.NewReader(b), Refresh: "wait_for"}.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	return responseErr(res)
}

// Bulk upserts posts and users in batches. Each batch waits for a refresh.
func (i *Index) Bulk(ctx context.Context, posts []*entity.Post, users []*entity.User) error {
	var (
		buf bytes.Buffer
		n   int
	)
	add := func(index, id string, doc any) error {
		meta, err := json.Marshal(map[string]any{"index": map[string]string{"_index": index, "_id": id}})
		if err != nil {
			return err
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(b)
		buf.WriteByte('\n')
		n++
		if n < bulkBatch {
			return nil
		}
		return i.flush(ctx, &buf, &n)
	}
	for _, p := range posts {
		if err := add(i.postsIndex, p.ID, newPostDoc(p)); err != nil {
			return err
		}
	}
	for _, u := range users {
		if err := add(i.usersIndex, u.ID, newUserDoc(u)); err != nil {
			return err
		}
	}
	return i.flush(ctx, &buf, &n)
}

func (i *Index) flush(ctx context.Context, buf *bytes.Buffer, n *int) error {
	if *n == 0 {
		return nil
	}
	defer func() {
		buf.Reset()
		*n = 0
	}()
	res, err := esapi.BulkRequest{Body: bytes.NewReader(buf.Bytes()), Refresh: "wait_for"}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if err := responseErr(res); err != nil {
		return err
	}
	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}
	if !parsed.Errors {
		return nil
	}
	for _, item := range parsed.Items {
		for _, r := range item {
			if r.Status >= http.StatusMultipleChoices {
				return fmt.Errorf("elasticsearch: bulk item %s: status %d", r.ID, r.Status)
			}
		}
	}
	return errors.New("elasticsearch: bulk request reported errors")
}

func (i *Index) SearchPosts(ctx context.Context, q string) ([]*entity.Post, error) {
	var hits []postDoc
	if err := i.search(ctx, i.postsIndex, q, []string{"title", "content", "location", "tags"}, "created_at", &hits); err != nil {
		return nil, err
	}
	out := make([]*entity.Post, 0, len(hits))
	for _, h := range hits {
		if h.Doc != nil {
			out = append(out, h.Doc)
		}
	}
	return out, nil
}

func (i *Index) SearchUsers(ctx context.Context, q string) ([]*entity.User, error) {
	var hits []userDoc
	if err := i.search(ctx, i.usersIndex, q, []string{"name", "bio", "interests"}, "joined_at", &hits); err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(hits))
	for _, h := range hits {
		if h.Doc != nil {
			out = append(out, h.Doc)
		}
	}
	return out, nil
}

// wildcardEscaper escapes the wildcard query metacharacters.
var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func searchBody(q string, fields []string, sortField string) map[string]any {
	pattern := "*" + wildcardEscaper.Replace(strings.ToLower(q)) + "*"
	should := make([]any, 0, len(fields))
	for _, f := range fields {
		should = append(should, map[string]any{
			"wildcard": map[string]any{
				f: map[string]any{"value": pattern, "case_insensitive": true},
			},
		})
	}
	return map[string]any{
		"size": maxHits,
		"query": map[string]any{
			"bool": map[string]any{"should": should, "minimum_should_match": 1},
		},
		"sort": []any{map[string]any{sortField: map[string]any{"order": "desc"}}},
	}
}

func (i *Index) search(ctx context.Context, index, q string, fields []string, sortField string, dest any) error {
	b, err := json.Marshal(searchBody(q, fields, sortField))
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	res, err := i.es.Search(
		i.es.Search.WithContext(c),
		i.es.Search.WithIndex(index),
		i.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if err := responseErr(res); err != nil {
		return err
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}
	if len(parsed.Hits.Hits) >= maxHits {
		return repository.ErrIndexTruncated
	}
	sources := make([]json.RawMessage, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		sources = append(sources, h.Source)
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func responseErr(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("elasticsearch: %s: %s", res.Status(), strings.TrimSpace(string(body)))
}

var _ repository.SearchIndex = (*Index)(nil)
