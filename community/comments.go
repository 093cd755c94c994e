package community

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/model"
	"github.com/goliatone/go-tablecache/query"
	"github.com/goliatone/go-tablecache/rowcodec"
)

// ListComments returns the comments of a post, newest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]datalayer.Record, error) {
	if _, ok := s.records.FindByID(ctx, query.TablePosts, postID); !ok {
		return nil, ErrPostNotFound
	}
	return s.records.FindAll(ctx, query.TableComments,
		datalayer.Filters{"post_id": postID},
		datalayer.Sort{Field: "timestamp", Order: query.OrderDesc},
	), nil
}

// CreateComment adds a comment to postID. Text is required.
func (s *Service) CreateComment(ctx context.Context, postID string, in model.CommentInput) (datalayer.Record, error) {
	if _, ok := s.records.FindByID(ctx, query.TablePosts, postID); !ok {
		return nil, ErrPostNotFound
	}
	if in.Text == "" {
		return nil, ErrTextRequired
	}

	in.PostID = postID
	data, err := rowcodec.FromStruct(model.NewComment(s.newID(), in, s.now()))
	if err != nil {
		return nil, err
	}
	return s.records.Create(ctx, query.TableComments, data)
}

// GetComment returns a comment only if it belongs to postID.
func (s *Service) GetComment(ctx context.Context, postID, commentID string) (datalayer.Record, error) {
	comment, ok := s.records.FindByID(ctx, query.TableComments, commentID)
	if !ok || comment["postId"] != postID {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

// UpdateComment applies changes to a comment of postID. The id, owning post
// and timestamp are never written.
func (s *Service) UpdateComment(ctx context.Context, postID, commentID string, changes map[string]any) (datalayer.Record, error) {
	if _, err := s.GetComment(ctx, postID, commentID); err != nil {
		return nil, err
	}

	updates := without(changes, "id", "postId", "post_id", "timestamp")
	comment, found, err := s.records.Update(ctx, query.TableComments, commentID, updates)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

// DeleteComment removes a comment of postID.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID string) error {
	if _, err := s.GetComment(ctx, postID, commentID); err != nil {
		return err
	}
	if !s.records.Delete(ctx, query.TableComments, commentID) {
		return errors.Wrapf(ErrDeleteFailed, "comment %s", commentID)
	}
	return nil
}
