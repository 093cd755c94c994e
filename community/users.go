package community

import (
	"context"

	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/model"
	"github.com/goliatone/go-tablecache/query"
	"github.com/goliatone/go-tablecache/rowcodec"
)

// GetUser returns the user or ErrUserNotFound.
func (s *Service) GetUser(ctx context.Context, id string) (datalayer.Record, error) {
	user, ok := s.records.FindByID(ctx, query.TableUsers, id)
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Login returns the user registered with in.Email, creating one when none
// exists. created reports which of the two happened.
func (s *Service) Login(ctx context.Context, in model.UserInput) (user datalayer.Record, created bool, err error) {
	if in.Username == "" || in.Email == "" {
		return nil, false, ErrCredentialsRequired
	}

	// the email filter is a substring match, so confirm equality here.
	for _, u := range s.records.FindAll(ctx, query.TableUsers, datalayer.Filters{"email": in.Email}, datalayer.Sort{}) {
		if u["email"] == in.Email {
			return u, false, nil
		}
	}

	data, err := rowcodec.FromStruct(model.NewUser(s.newID(), in, s.now()))
	if err != nil {
		return nil, false, err
	}
	user, err = s.records.Create(ctx, query.TableUsers, data)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// FavoriteState is the outcome of SetFavorite.
type FavoriteState struct {
	UserID     string   `json:"userId"`
	PostID     string   `json:"postId"`
	IsFavorite bool     `json:"isFavorite"`
	Favorites  []string `json:"favorites"`
}

// IsFavorite reports whether postID is in the favorites of userID.
func (s *Service) IsFavorite(ctx context.Context, userID, postID string) (bool, error) {
	user, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	return contains(stringSet(user["favorites"]), postID), nil
}

// SetFavorite adds or removes postID from the favorites of userID. A nil
// favorite toggles the current state.
func (s *Service) SetFavorite(ctx context.Context, userID, postID string, favorite *bool) (FavoriteState, error) {
	user, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return FavoriteState{}, err
	}

	favorites := stringSet(user["favorites"])
	current := contains(favorites, postID)
	want := !current
	if favorite != nil {
		want = *favorite
	}

	switch {
	case want && !current:
		favorites = append(favorites, postID)
	case !want && current:
		kept := favorites[:0]
		for _, id := range favorites {
			if id != postID {
				kept = append(kept, id)
			}
		}
		favorites = kept
	}

	if _, found, err := s.records.Update(ctx, query.TableUsers, userID, map[string]any{"favorites": favorites}); err != nil {
		return FavoriteState{}, err
	} else if !found {
		return FavoriteState{}, ErrUserNotFound
	}

	return FavoriteState{UserID: userID, PostID: postID, IsFavorite: want, Favorites: favorites}, nil
}

func (s *Service) userAndPost(ctx context.Context, userID, postID string) (datalayer.Record, error) {
	user, ok := s.records.FindByID(ctx, query.TableUsers, userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	if _, ok := s.records.FindByID(ctx, query.TablePosts, postID); !ok {
		return nil, ErrPostNotFound
	}
	return user, nil
}

func stringSet(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func contains(set []string, v string) bool {
	for _, e := range set {
		if e == v {
			return true
		}
	}
	return false
}
