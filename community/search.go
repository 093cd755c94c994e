package community

import (
	"context"

	"github.com/goliatone/go-tablecache/datalayer"
)

// SearchPage is a merged search result with its page count.
type SearchPage struct {
	LimitsPages  int                  `json:"limits_pages"`
	FilterSearch datalayer.SearchType `json:"filter_search"`
	Search       []datalayer.Record   `json:"search"`
}

// Search looks term up in posts, users or both. With field set, only
// records holding a non-empty value for it are kept, reduced to
// {id, field}.
func (s *Service) Search(ctx context.Context, term string, typ datalayer.SearchType, field string) (SearchPage, error) {
	if term == "" {
		return SearchPage{}, ErrQueryRequired
	}
	if typ == "" {
		typ = datalayer.SearchAll
	}

	result := s.records.Search(ctx, term, typ)
	if field != "" {
		result.Posts = projectAll(result.Posts, field)
		result.Users = projectAll(result.Users, field)
	}

	return SearchPage{
		LimitsPages:  datalayer.PageCount(result.Total(), datalayer.DefaultPageSize),
		FilterSearch: typ,
		Search:       result.Merged(),
	}, nil
}
