package datalayer_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tablecache/cache"
	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/pkg/testsupport"
	"github.com/goliatone/go-tablecache/query"
)

func seeded(t *testing.T, opts ...datalayer.Option) *testsupport.Harness {
	t.Helper()
	h := testsupport.NewHarness(t, opts...)
	h.Seed(t, testsupport.LoadSeed(t, testsupport.FixturePath("seed.json")))
	return h
}

func titles(records []datalayer.Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r["title"]
	}
	return out
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	post, ok := h.Layer.FindByID(ctx, "posts", "p2")
	require.True(t, ok)
	assert.Equal(t, "Beta Notes", post["title"])
	assert.Equal(t, int64(1700000002000), post["createdAt"])
	assert.Equal(t, map[string]any{"repo": "https://example.com/beta"}, post["links"])
	assert.Equal(t, float64(3), post["stats"].(map[string]any)["like"])
	assert.Equal(t, []any{}, post["whatnews"])
	assert.NotContains(t, post, "created_at")

	_, ok = h.Layer.FindByID(ctx, "posts", "missing")
	assert.False(t, ok)
}

func TestFindByID_AbsentNotCached(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	h.Layer.FindByID(ctx, "posts", "missing")
	h.Layer.FindByID(ctx, "posts", "missing")
	assert.Equal(t, 2, h.DB.Calls())
}

func TestCreate_CachesWithoutRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	created, err := h.Layer.Create(ctx, "posts", map[string]any{
		"id":        "p9",
		"title":     "Gamma",
		"createdAt": int64(5),
		"stats":     map[string]any{"like": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", created["title"])
	assert.Equal(t, map[string]any{"like": float64(1)}, created["stats"])

	h.DB.Reset()
	got, ok := h.Layer.FindByID(ctx, "posts", "p9")
	require.True(t, ok)
	assert.Equal(t, created, got)
	assert.Equal(t, 0, h.DB.Calls())
}

func TestUpdate_CachesWithoutRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	updated, found, err := h.Layer.Update(ctx, "posts", "p1", map[string]any{"title": "Alpha Final"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alpha Final", updated["title"])
	assert.Equal(t, "first public build", updated["description"])

	h.DB.Reset()
	got, ok := h.Layer.FindByID(ctx, "posts", "p1")
	require.True(t, ok)
	assert.Equal(t, "Alpha Final", got["title"])
	assert.Equal(t, "first public build", got["description"])
	assert.Equal(t, 0, h.DB.Calls())
}

func TestUpdate_EmptyDataIsFindByID(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	want, ok := h.Layer.FindByID(ctx, "posts", "p1")
	require.True(t, ok)

	for _, data := range []map[string]any{nil, {}, {"id": "other"}} {
		got, found, err := h.Layer.Update(ctx, "posts", "p1", data)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, want, got)
	}

	got, found, err := h.Layer.Update(ctx, "posts", "missing", map[string]any{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestUpdate_IgnoresID(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	got, found, err := h.Layer.Update(ctx, "posts", "p1", map[string]any{"id": "hijack", "title": "T"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "p1", got["id"])

	_, ok := h.Layer.FindByID(ctx, "posts", "hijack")
	assert.False(t, ok)
}

func TestUpdate_MissingRow(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	got, found, err := h.Layer.Update(ctx, "posts", "missing", map[string]any{"title": "x"})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestCreate_StringInStructuredColumnRoundTrips(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	_, err := h.Layer.Create(ctx, "posts", map[string]any{
		"id": "p3", "title": "Gamma", "createdAt": 3, "links": "https://x",
	})
	require.NoError(t, err)

	h.Clock.Advance(time.Minute)
	post, ok := h.Layer.FindByID(ctx, "posts", "p3")
	require.True(t, ok)
	assert.Equal(t, "https://x", post["links"])
}

func TestUpdate_SnakeAndCamelKeys(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	got, _, err := h.Layer.Update(ctx, "users", "u1", map[string]any{"display_name": "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", got["displayName"])

	got, _, err = h.Layer.Update(ctx, "users", "u1", map[string]any{"displayName": "B", "favorites": []string{"p2"}})
	require.NoError(t, err)
	assert.Equal(t, "B", got["displayName"])
	assert.Equal(t, []any{"p2"}, got["favorites"])
}

func TestFindAll_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	require.Equal(t, 1, h.DB.Calls())

	h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Equal(t, 1, h.DB.Calls())

	h.Clock.Advance(time.Minute - time.Millisecond)
	h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Equal(t, 1, h.DB.Calls())

	h.Clock.Advance(time.Millisecond)
	h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Equal(t, 2, h.DB.Calls())
}

// onListSet runs hook once, right after the first list entry of table is
// stored.
type onListSet struct {
	cache.CacheService
	prefix string
	once   sync.Once
	hook   func()
}

func (c *onListSet) Set(ctx context.Context, key string, value any) {
	c.CacheService.Set(ctx, key, value)
	if strings.HasPrefix(key, c.prefix) {
		c.once.Do(c.hook)
	}
}

func TestFindAll_WriteAfterListStoredInvalidatesIt(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	var layer *datalayer.Layer
	svc := &onListSet{
		CacheService: h.Cache,
		prefix:       cache.ListPrefix("posts"),
	}
	svc.hook = func() {
		_, err := layer.Create(ctx, "posts", map[string]any{"id": "p3", "title": "Gamma", "createdAt": 3})
		require.NoError(t, err)
	}
	layer = datalayer.New(h.DB, h.Store.Dialect(), svc, cache.NewDefaultKeySerializer())

	first := layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Len(t, first, 2)

	second := layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Len(t, second, 3)
}

func TestFindByID_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	h.Clock.Advance(time.Minute)
	_, ok := h.Layer.FindByID(ctx, "posts", "p1")
	require.True(t, ok)
	assert.Equal(t, 1, h.DB.Calls())

	_, ok = h.Layer.FindByID(ctx, "posts", "p1")
	require.True(t, ok)
	assert.Equal(t, 1, h.DB.Calls())
}

func TestWritesInvalidateEveryListOfTable(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	lists := []datalayer.Filters{nil, {"title": "alpha"}, {"author": "u2"}}
	for _, f := range lists {
		h.Layer.FindAll(ctx, "posts", f, datalayer.Sort{})
	}
	h.Layer.FindAll(ctx, "users", nil, datalayer.Sort{})
	require.Equal(t, 4, h.DB.Calls())

	writes := []func(t *testing.T){
		func(t *testing.T) {
			_, err := h.Layer.Create(ctx, "posts", map[string]any{"id": "p3", "title": "Alpha Two", "createdAt": 3})
			require.NoError(t, err)
		},
		func(t *testing.T) {
			_, _, err := h.Layer.Update(ctx, "posts", "p3", map[string]any{"author": "u2"})
			require.NoError(t, err)
		},
		func(t *testing.T) { require.True(t, h.Layer.Delete(ctx, "posts", "p3")) },
		func(t *testing.T) {
			require.True(t, h.Layer.DeleteWhere(ctx, "posts", map[string]any{"author": "nobody"}))
		},
	}

	for i, write := range writes {
		t.Run(fmt.Sprintf("write %d", i), func(t *testing.T) {
			write(t)
			h.DB.Reset()

			for _, f := range lists {
				h.Layer.FindAll(ctx, "posts", f, datalayer.Sort{})
			}
			assert.Equal(t, len(lists), h.DB.Calls(), "every posts list should be reloaded")

			h.Layer.FindAll(ctx, "users", nil, datalayer.Sort{})
			assert.Equal(t, len(lists), h.DB.Calls(), "users list should stay cached")
		})
	}
}

func TestCreateThenFindAllSeesRecord(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	before := h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": "gamma"}, datalayer.Sort{})
	require.Empty(t, before)

	_, err := h.Layer.Create(ctx, "posts", map[string]any{"id": "p3", "title": "Gamma", "createdAt": 3})
	require.NoError(t, err)

	after := h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": "gamma"}, datalayer.Sort{})
	require.Len(t, after, 1)
	assert.Equal(t, "p3", after[0]["id"])
}

func TestFindAll_FuzzyFilter(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	got := h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": "alpha"}, datalayer.Sort{})
	assert.Equal(t, []any{"Alpha Release"}, titles(got))

	got = h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": "zzz"}, datalayer.Sort{})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = h.Layer.FindAll(ctx, "posts", datalayer.Filters{"description": "ALPHA"}, datalayer.Sort{})
	assert.Equal(t, []any{"Beta Notes"}, titles(got))

	got = h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": "a", "author": "u1"}, datalayer.Sort{})
	assert.Equal(t, []any{"Alpha Release"}, titles(got))

	got = h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": nil}, datalayer.Sort{})
	assert.Len(t, got, 2)
}

func TestFindAll_Sort(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	got := h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Equal(t, []any{"Beta Notes", "Alpha Release"}, titles(got))

	got = h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{Field: "title"})
	assert.Equal(t, []any{"Alpha Release", "Beta Notes"}, titles(got))

	comments := h.Layer.FindAll(ctx, "comments", datalayer.Filters{"postId": "p1"}, datalayer.Sort{})
	require.Len(t, comments, 2)
	assert.Equal(t, "c2", comments[0]["id"])
	assert.Equal(t, "c1", comments[1]["id"])
}

func TestFindAll_UnknownIdentifiers(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	got := h.Layer.FindAll(ctx, "posts", datalayer.Filters{"password": "x"}, datalayer.Sort{})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = h.Layer.FindAll(ctx, "secrets", nil, datalayer.Sort{})
	assert.Empty(t, got)

	got = h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{Field: "1; DROP TABLE posts"})
	assert.Empty(t, got)

	assert.Equal(t, 0, h.DB.Calls())
}

func TestFindAll_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	first := h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	first[0]["title"] = "mutated"

	second := h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{})
	assert.Equal(t, "Beta Notes", second[0]["title"])
}

func TestStoreFailureDegradesReads(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)
	h.Clock.Advance(time.Minute)
	h.DB.FailWith(errors.New("connection reset"))

	assert.Empty(t, h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{}))
	_, ok := h.Layer.FindByID(ctx, "posts", "p1")
	assert.False(t, ok)

	result := h.Layer.Search(ctx, "alpha", datalayer.SearchAll)
	assert.Empty(t, result.Posts)
	assert.Empty(t, result.Users)

	var warnings int
	for _, entry := range h.Logs.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
			assert.Contains(t, entry.Data, "op")
			assert.Contains(t, entry.Data, "table")
		}
	}
	assert.Equal(t, 4, warnings)

	h.DB.FailWith(nil)
	assert.Len(t, h.Layer.FindAll(ctx, "posts", nil, datalayer.Sort{}), 2, "failed reads must not be cached")
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	assert.True(t, h.Layer.Delete(ctx, "posts", "p1"))
	assert.True(t, h.Layer.Delete(ctx, "posts", "p1"))

	_, ok := h.Layer.FindByID(ctx, "posts", "p1")
	assert.False(t, ok)
}

func TestDelete_StoreFailure(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	h.DB.FailWith(errors.New("down"))
	assert.False(t, h.Layer.Delete(ctx, "posts", "p1"))
	assert.False(t, h.Layer.Delete(ctx, "secrets", "p1"))
	h.DB.FailWith(nil)

	h.DB.Reset()
	_, ok := h.Layer.FindByID(ctx, "posts", "p1")
	assert.True(t, ok)
	assert.Equal(t, 1, h.DB.Calls(), "record entry should be dropped even when the delete fails")
}

func TestDeleteWhere_InvalidatesDeletedRecords(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	_, ok := h.Layer.FindByID(ctx, "comments", "c1")
	require.True(t, ok)

	assert.True(t, h.Layer.DeleteWhere(ctx, "comments", map[string]any{"post_id": "p1"}))

	_, ok = h.Layer.FindByID(ctx, "comments", "c1")
	assert.False(t, ok)
	_, ok = h.Layer.FindByID(ctx, "comments", "c2")
	assert.False(t, ok)
	_, ok = h.Layer.FindByID(ctx, "comments", "c3")
	assert.True(t, ok)

	remaining := h.Layer.FindAll(ctx, "comments", nil, datalayer.Sort{})
	require.Len(t, remaining, 1)
	assert.Equal(t, "c3", remaining[0]["id"])
}

func TestDeleteWhere_ExactMatch(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	assert.True(t, h.Layer.DeleteWhere(ctx, "comments", map[string]any{"postId": "p"}))
	assert.Len(t, h.Layer.FindAll(ctx, "comments", nil, datalayer.Sort{}), 3)
}

func TestDeleteWhere_Rejected(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	assert.False(t, h.Layer.DeleteWhere(ctx, "comments", nil))
	assert.False(t, h.Layer.DeleteWhere(ctx, "comments", map[string]any{"nope": 1}))
	assert.Equal(t, 0, h.DB.Calls())
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	_, err := h.Layer.Create(ctx, "users", map[string]any{
		"id": "u3", "username": "alice", "email": "other@example.com", "createdAt": 1,
	})
	require.Error(t, err)
	var we *datalayer.WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, datalayer.KindConstraint, we.Kind)
	assert.Equal(t, "create", we.Op)
	assert.Equal(t, "users", we.Table)
	assert.Equal(t, "u3", we.ID)

	_, err = h.Layer.Create(ctx, "users", map[string]any{"username": "x"})
	assert.True(t, datalayer.IsKind(err, datalayer.KindInvalid))
	assert.True(t, errors.Is(err, datalayer.ErrMissingID))

	_, err = h.Layer.Create(ctx, "users", map[string]any{"id": "u4", "password": "x"})
	assert.True(t, datalayer.IsKind(err, datalayer.KindInvalid))
	assert.True(t, errors.Is(err, query.ErrUnknownField))

	_, err = h.Layer.Create(ctx, "secrets", map[string]any{"id": "s"})
	assert.True(t, errors.Is(err, query.ErrUnknownTable))

	_, err = h.Layer.Create(ctx, "posts", map[string]any{"id": "p5", "createdAt": 1})
	assert.True(t, datalayer.IsKind(err, datalayer.KindConstraint), "missing title violates NOT NULL: %v", err)

	_, ok := h.Layer.FindByID(ctx, "users", "u3")
	assert.False(t, ok)
}

func TestUpdate_Errors(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	_, _, err := h.Layer.Update(ctx, "users", "u2", map[string]any{"username": "alice"})
	assert.True(t, datalayer.IsKind(err, datalayer.KindConstraint))

	_, _, err = h.Layer.Update(ctx, "users", "u2", map[string]any{"nope": 1})
	assert.True(t, datalayer.IsKind(err, datalayer.KindInvalid))

	h.DB.FailWith(errors.New("down"))
	_, _, err = h.Layer.Update(ctx, "users", "u2", map[string]any{"bio": "x"})
	assert.True(t, datalayer.IsKind(err, datalayer.KindStore))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	result := h.Layer.Search(ctx, "ALPHA", datalayer.SearchAll)
	assert.ElementsMatch(t, []any{"Alpha Release", "Beta Notes"}, titles(result.Posts))
	assert.Empty(t, result.Users)

	result = h.Layer.Search(ctx, "liddell", datalayer.SearchAll)
	require.Len(t, result.Users, 1)
	assert.Equal(t, "u1", result.Users[0]["id"])

	result = h.Layer.Search(ctx, "u2", datalayer.SearchUsers)
	assert.Empty(t, result.Posts)
	require.Len(t, result.Users, 1)
	assert.Equal(t, "bob", result.Users[0]["username"])

	result = h.Layer.Search(ctx, "u2", datalayer.SearchPosts)
	assert.Equal(t, []any{"Beta Notes"}, titles(result.Posts))
	assert.Empty(t, result.Users)

	result = h.Layer.Search(ctx, "alpha", datalayer.SearchType("comments"))
	assert.Equal(t, 0, result.Total())
}

func TestSearch_NotCached(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	h.Layer.Search(ctx, "alpha", datalayer.SearchPosts)
	h.Layer.Search(ctx, "alpha", datalayer.SearchPosts)
	assert.Equal(t, 2, h.DB.Calls())
}

func TestSearch_CappedPerTable(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	for i := 0; i < 60; i++ {
		_, err := h.Layer.Create(ctx, "posts", map[string]any{
			"id": fmt.Sprintf("m%d", i), "title": fmt.Sprintf("Match %d", i), "createdAt": i,
		})
		require.NoError(t, err)
		_, err = h.Layer.Create(ctx, "users", map[string]any{
			"id": fmt.Sprintf("mu%d", i), "username": fmt.Sprintf("match%d", i),
			"email": fmt.Sprintf("m%d@example.com", i), "createdAt": i,
		})
		require.NoError(t, err)
	}

	result := h.Layer.Search(ctx, "match", datalayer.SearchAll)
	assert.Len(t, result.Posts, datalayer.DefaultSearchLimit)
	assert.Len(t, result.Users, datalayer.DefaultSearchLimit)
	assert.Len(t, result.Merged(), 2*datalayer.DefaultSearchLimit)

	h2 := seeded(t, datalayer.WithSearchLimit(5))
	for i := 0; i < 10; i++ {
		_, err := h2.Layer.Create(ctx, "posts", map[string]any{
			"id": fmt.Sprintf("m%d", i), "title": "Match", "createdAt": i,
		})
		require.NoError(t, err)
	}
	assert.Len(t, h2.Layer.Search(ctx, "match", datalayer.SearchPosts).Posts, 5)
}

func TestSearchResult_Merged(t *testing.T) {
	r := datalayer.SearchResult{
		Posts: []datalayer.Record{{"id": "p1"}},
		Users: []datalayer.Record{{"id": "u1"}, {"id": "u2"}},
	}
	merged := r.Merged()
	require.Len(t, merged, 3)
	assert.Equal(t, "p1", merged[0]["id"])
	assert.Equal(t, "u2", merged[2]["id"])
	assert.Equal(t, 3, r.Total())
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	h := seeded(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				switch i % 4 {
				case 0:
					h.Layer.FindAll(ctx, "posts", datalayer.Filters{"title": "a"}, datalayer.Sort{})
				case 1:
					h.Layer.FindByID(ctx, "posts", "p1")
				case 2:
					h.Layer.Update(ctx, "posts", "p1", map[string]any{"description": fmt.Sprintf("g%d-%d", g, i)})
				case 3:
					h.Layer.Search(ctx, "alpha", datalayer.SearchPosts)
				}
			}
		}(g)
	}
	wg.Wait()

	got, ok := h.Layer.FindByID(ctx, "posts", "p1")
	require.True(t, ok)
	assert.Equal(t, "Alpha Release", got["title"])
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{25, 0, 3},
		{-1, 12, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, datalayer.PageCount(tt.total, tt.size), "PageCount(%d, %d)", tt.total, tt.size)
	}
}
