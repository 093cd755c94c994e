package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WhatsNew is one changelog entry of a post.
type WhatsNew struct {
	Version     int    `json:"version"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Stats holds the reaction counters of a post.
type Stats struct {
	Like    int `json:"like"`
	Dislike int `json:"dislike"`
	Share   int `json:"share"`
	Star    int `json:"star"`
}

// Post is a row of the posts table.
type Post struct {
	bun.BaseModel `bun:"table:posts" json:"-"`

	ID          string         `bun:"id,pk" json:"id"`
	Title       string         `bun:"title,notnull" json:"title"`
	Icon        string         `bun:"icon" json:"icon"`
	Thumbnail   string         `bun:"thumbnail" json:"thumbnail"`
	Star        int            `bun:"star,default:0" json:"star"`
	WhatsNew    []WhatsNew     `bun:"whatnews,type:jsonb" json:"whatnews"`
	Description string         `bun:"description" json:"description"`
	Author      string         `bun:"author" json:"author"`
	CreatedAt   int64          `bun:"created_at,notnull" json:"createdAt"`
	Links       map[string]any `bun:"links,type:jsonb" json:"links"`
	Stats       Stats          `bun:"stats,type:jsonb" json:"stats"`
}

// User is a row of the users table.
type User struct {
	bun.BaseModel `bun:"table:users" json:"-"`

	ID          string   `bun:"id,pk" json:"id"`
	Username    string   `bun:"username,notnull,unique" json:"username"`
	Email       string   `bun:"email,notnull,unique" json:"email"`
	DisplayName string   `bun:"display_name" json:"displayName"`
	Avatar      string   `bun:"avatar" json:"avatar"`
	Bio         string   `bun:"bio" json:"bio"`
	CreatedAt   int64    `bun:"created_at,notnull" json:"createdAt"`
	Favorites   []string `bun:"favorites,type:jsonb" json:"favorites"`
	Following   []string `bun:"following,type:jsonb" json:"following"`
	Followers   []string `bun:"followers,type:jsonb" json:"followers"`
}

// Comment is a row of the comments table.
type Comment struct {
	bun.BaseModel `bun:"table:comments" json:"-"`

	ID        string `bun:"id,pk" json:"id"`
	PostID    string `bun:"post_id,notnull" json:"postId"`
	UserID    string `bun:"user_id" json:"userId"`
	Text      string `bun:"text,notnull" json:"text"`
	Timestamp int64  `bun:"timestamp,notnull" json:"timestamp"`
	Likes     int    `bun:"likes,default:0" json:"likes"`
	Dislikes  int    `bun:"dislikes,default:0" json:"dislikes"`
	Replies   []any  `bun:"replies,type:jsonb" json:"replies"`
}

// FileRecord is the metadata row of a blob held in an external object store.
type FileRecord struct {
	bun.BaseModel `bun:"table:files" json:"-"`

	ID           string `bun:"id,pk" json:"id"`
	Filename     string `bun:"filename,notnull" json:"filename"`
	OriginalName string `bun:"original_name" json:"originalName"`
	BlobURL      string `bun:"blob_url,notnull" json:"blobUrl"`
	Mimetype     string `bun:"mimetype" json:"mimetype"`
	Size         int64  `bun:"size" json:"size"`
	UploadedAt   int64  `bun:"uploaded_at,notnull" json:"uploadedAt"`
	ExpiredAt    *int64 `bun:"expired_at" json:"expiredAt,omitempty"`
	UpdatedAt    *int64 `bun:"updated_at" json:"updatedAt,omitempty"`
}

// Models returns every table model in bootstrap order.
func Models() []any {
	return []any{
		(*Post)(nil),
		(*User)(nil),
		(*Comment)(nil),
		(*FileRecord)(nil),
	}
}

// NewID returns a random record id.
func NewID() string {
	return uuid.NewString()
}

// Millis returns t as epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
