package community

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/model"
)

var (
	// ErrPostNotFound is returned when no post has the given id.
	ErrPostNotFound = errors.New("community: post not found")
	// ErrCommentNotFound is returned when the comment is absent or belongs
	// to another post.
	ErrCommentNotFound = errors.New("community: comment not found")
	// ErrUserNotFound is returned when no user has the given id.
	ErrUserNotFound = errors.New("community: user not found")
	// ErrFieldNotFound is returned by Project for a field the record lacks.
	ErrFieldNotFound = errors.New("community: field not found")
	// ErrTextRequired is returned when a comment has no text.
	ErrTextRequired = errors.New("community: text required")
	// ErrCredentialsRequired is returned by Login without username or email.
	ErrCredentialsRequired = errors.New("community: username and email required")
	// ErrQueryRequired is returned by Search for an empty term.
	ErrQueryRequired = errors.New("community: search query required")
	// ErrDeleteFailed is returned when the store did not complete a delete.
	ErrDeleteFailed = errors.New("community: delete failed")
)

// Records is the part of the data layer the service needs.
type Records interface {
	FindAll(ctx context.Context, table string, filters datalayer.Filters, sort datalayer.Sort) []datalayer.Record
	FindByID(ctx context.Context, table, id string) (datalayer.Record, bool)
	Create(ctx context.Context, table string, data map[string]any) (datalayer.Record, error)
	Update(ctx context.Context, table, id string, data map[string]any) (datalayer.Record, bool, error)
	Delete(ctx context.Context, table, id string) bool
	DeleteWhere(ctx context.Context, table string, conditions map[string]any) bool
	Search(ctx context.Context, term string, typ datalayer.SearchType) datalayer.SearchResult
}

// Service implements posts, comments, users and search on top of Records.
type Service struct {
	records Records
	logger  logrus.FieldLogger
	now     func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces model.NewID for new records.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService returns a Service backed by records.
func NewService(records Records, opts ...Option) *Service {
	s := &Service{
		records: records,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
		newID:   model.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) log(op, table, id string) logrus.FieldLogger {
	return s.logger.WithFields(logrus.Fields{"op": op, "table": table, "id": id})
}

// without returns a copy of data minus the given keys.
func without(data map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
