package model

import "time"

// PostInput carries the caller supplied fields of a new post. Empty fields
// fall back to defaults.
type PostInput struct {
	Title       string         `json:"title"`
	Icon        string         `json:"icon"`
	Thumbnail   string         `json:"thumbnail"`
	WhatsNew    []WhatsNew     `json:"whatnews"`
	Description string         `json:"description"`
	Author      string         `json:"author"`
	Links       map[string]any `json:"links"`
}

// UserInput carries the caller supplied fields of a new user.
type UserInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Bio         string `json:"bio"`
}

// CommentInput carries the caller supplied fields of a new comment.
type CommentInput struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

const placeholderURL = "_url"

// NewPost builds a complete post with zeroed stats.
func NewPost(id string, in PostInput, now time.Time) Post {
	p := Post{
		ID:          id,
		Title:       orDefault(in.Title, "Post"),
		Icon:        orDefault(in.Icon, placeholderURL),
		Thumbnail:   orDefault(in.Thumbnail, placeholderURL),
		WhatsNew:    in.WhatsNew,
		Description: in.Description,
		Author:      orDefault(in.Author, "id"),
		CreatedAt:   Millis(now),
		Links:       in.Links,
	}
	if len(p.WhatsNew) == 0 {
		p.WhatsNew = []WhatsNew{{Version: 0, Title: "First version", Description: "- First version"}}
	}
	return p
}

// NewUser builds a complete user with empty social sets.
func NewUser(id string, in UserInput, now time.Time) User {
	return User{
		ID:          id,
		Username:    orDefault(in.Username, "user"),
		Email:       in.Email,
		DisplayName: orDefault(in.DisplayName, "User"),
		Avatar:      orDefault(in.Avatar, placeholderURL),
		Bio:         in.Bio,
		CreatedAt:   Millis(now),
		Favorites:   []string{},
		Following:   []string{},
		Followers:   []string{},
	}
}

// NewComment builds a complete comment. Anonymous comments get the
// "anonymous" user id.
func NewComment(id string, in CommentInput, now time.Time) Comment {
	return Comment{
		ID:        id,
		PostID:    in.PostID,
		UserID:    orDefault(in.UserID, "anonymous"),
		Text:      in.Text,
		Timestamp: Millis(now),
		Replies:   []any{},
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
