package community

import (
	"context"
	"math/rand/v2"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/model"
	"github.com/goliatone/go-tablecache/query"
	"github.com/goliatone/go-tablecache/rowcodec"
)

// MaxSuggestions caps the posts returned by Suggestions.
const MaxSuggestions = 12

// ListOptions narrows and orders a post listing. Field and Value form a
// single fuzzy filter when both are set. Without SortBy posts are listed
// newest first; with SortBy the order defaults to ascending.
type ListOptions struct {
	Field  string
	Value  string
	SortBy string
	Order  string
}

// PostPage is a post listing with its page count.
type PostPage struct {
	LimitsPages int                `json:"limits_pages"`
	Posts       []datalayer.Record `json:"posts"`
}

// ListPosts lists posts with one optional fuzzy filter.
func (s *Service) ListPosts(ctx context.Context, opts ListOptions) PostPage {
	var filters datalayer.Filters
	if opts.Field != "" && opts.Value != "" {
		filters = datalayer.Filters{opts.Field: opts.Value}
	}

	sort := datalayer.Sort{Field: "created_at", Order: query.OrderDesc}
	if opts.SortBy != "" {
		sort = datalayer.Sort{Field: opts.SortBy, Order: query.ParseOrder(opts.Order)}
	}

	posts := s.records.FindAll(ctx, query.TablePosts, filters, sort)
	return PostPage{
		LimitsPages: datalayer.PageCount(len(posts), datalayer.DefaultPageSize),
		Posts:       posts,
	}
}

// GetPost returns the post or ErrPostNotFound.
func (s *Service) GetPost(ctx context.Context, id string) (datalayer.Record, error) {
	post, ok := s.records.FindByID(ctx, query.TablePosts, id)
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// CreatePost stores a new post, filling defaults for omitted fields.
func (s *Service) CreatePost(ctx context.Context, in model.PostInput) (datalayer.Record, error) {
	data, err := rowcodec.FromStruct(model.NewPost(s.newID(), in, s.now()))
	if err != nil {
		return nil, err
	}
	return s.records.Create(ctx, query.TablePosts, data)
}

// UpdatePost applies changes to a post. The id, creation time and embedded
// comments are never written.
func (s *Service) UpdatePost(ctx context.Context, id string, changes map[string]any) (datalayer.Record, error) {
	if _, ok := s.records.FindByID(ctx, query.TablePosts, id); !ok {
		return nil, ErrPostNotFound
	}

	updates := without(changes, "id", "createdAt", "created_at", "comments")
	post, found, err := s.records.Update(ctx, query.TablePosts, id, updates)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// DeletePost removes a post and every comment attached to it.
func (s *Service) DeletePost(ctx context.Context, id string) error {
	if _, ok := s.records.FindByID(ctx, query.TablePosts, id); !ok {
		return ErrPostNotFound
	}

	if !s.records.DeleteWhere(ctx, query.TableComments, map[string]any{"post_id": id}) {
		s.log("delete_post", query.TablePosts, id).Warn("comments not removed")
	}
	if !s.records.Delete(ctx, query.TablePosts, id) {
		return errors.Wrapf(ErrDeleteFailed, "post %s", id)
	}
	return nil
}

// Suggestions returns up to MaxSuggestions other posts in random order.
func (s *Service) Suggestions(ctx context.Context, postID string) ([]datalayer.Record, error) {
	if _, ok := s.records.FindByID(ctx, query.TablePosts, postID); !ok {
		return nil, ErrPostNotFound
	}

	all := s.records.FindAll(ctx, query.TablePosts, nil, datalayer.Sort{})
	others := make([]datalayer.Record, 0, len(all))
	for _, p := range all {
		if p.ID() != postID {
			others = append(others, p)
		}
	}

	rand.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})
	if len(others) > MaxSuggestions {
		others = others[:MaxSuggestions]
	}
	return others, nil
}
