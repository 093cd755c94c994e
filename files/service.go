package files

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/model"
	"github.com/goliatone/go-tablecache/query"
)

var (
	// ErrNotFound is returned when no file record has the given id.
	ErrNotFound = errors.New("files: file not found")
	// ErrExpired is returned by Get for a record past its expiry. The
	// record and its blob are gone once this is returned.
	ErrExpired = errors.New("files: file expired")
	// ErrDeleteFailed is returned when the record could not be removed.
	ErrDeleteFailed = errors.New("files: delete failed")
)

// Records is the part of the data layer the service needs.
type Records interface {
	FindByID(ctx context.Context, table, id string) (datalayer.Record, bool)
	FindAll(ctx context.Context, table string, filters datalayer.Filters, sort datalayer.Sort) []datalayer.Record
	Create(ctx context.Context, table string, data map[string]any) (datalayer.Record, error)
	Update(ctx context.Context, table, id string, data map[string]any) (datalayer.Record, bool, error)
	Delete(ctx context.Context, table, id string) bool
}

// Upload describes a blob that was stored externally and needs a record.
type Upload struct {
	Filename string
	BlobURL  string
	Mimetype string
	Size     int64
	// ExpiredAt is the expiry in epoch milliseconds. Nil never expires.
	ExpiredAt *int64
}

// Service manages file metadata rows and their blobs.
type Service struct {
	records Records
	blobs   BlobDeleter
	logger  logrus.FieldLogger
	now     func() time.Time
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

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns a Service. A nil deleter is replaced by NopDeleter.
func NewService(records Records, blobs BlobDeleter, opts ...Option) *Service {
	if blobs == nil {
		blobs = NopDeleter{}
	}
	s := &Service{
		records: records,
		blobs:   blobs,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the record of a freshly uploaded blob.
func (s *Service) Register(ctx context.Context, up Upload) (datalayer.Record, error) {
	data := map[string]any{
		"id":           model.NewID(),
		"filename":     up.Filename,
		"originalName": up.Filename,
		"blobUrl":      up.BlobURL,
		"mimetype":     up.Mimetype,
		"size":         up.Size,
		"uploadedAt":   model.Millis(s.now()),
	}
	if up.ExpiredAt != nil {
		data["expiredAt"] = *up.ExpiredAt
	}
	return s.records.Create(ctx, query.TableFiles, data)
}

// Get returns the record. An expired record is removed together with its
// blob and ErrExpired is returned.
func (s *Service) Get(ctx context.Context, id string) (datalayer.Record, error) {
	record, ok := s.records.FindByID(ctx, query.TableFiles, id)
	if !ok {
		return nil, ErrNotFound
	}

	if s.expired(record) {
		s.expire(ctx, record)
		return nil, ErrExpired
	}
	return record, nil
}

// Delete removes the blob and then the record. A blob that cannot be
// deleted keeps the record in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	record, ok := s.records.FindByID(ctx, query.TableFiles, id)
	if !ok {
		return ErrNotFound
	}

	if err := s.blobs.DeleteBlob(ctx, blobURL(record)); err != nil {
		return errors.Wrapf(err, "files: delete blob of %s", id)
	}
	if !s.records.Delete(ctx, query.TableFiles, id) {
		return errors.Wrapf(ErrDeleteFailed, "%s", id)
	}
	return nil
}

// Replace points the record at a new blob after deleting the previous one.
func (s *Service) Replace(ctx context.Context, id string, up Upload) (datalayer.Record, error) {
	record, ok := s.records.FindByID(ctx, query.TableFiles, id)
	if !ok {
		return nil, ErrNotFound
	}

	if err := s.blobs.DeleteBlob(ctx, blobURL(record)); err != nil {
		return nil, errors.Wrapf(err, "files: delete previous blob of %s", id)
	}

	updated, found, err := s.records.Update(ctx, query.TableFiles, id, map[string]any{
		"filename":     up.Filename,
		"originalName": up.Filename,
		"blobUrl":      up.BlobURL,
		"mimetype":     up.Mimetype,
		"size":         up.Size,
		"updatedAt":    model.Millis(s.now()),
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return updated, nil
}

// SweepExpired removes every expired record and its blob. It returns the
// number of records removed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, record := range s.records.FindAll(ctx, query.TableFiles, nil, datalayer.Sort{}) {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if s.expired(record) && s.expire(ctx, record) {
			removed++
		}
	}
	return removed, nil
}

func (s *Service) expired(record datalayer.Record) bool {
	at, ok := millis(record["expiredAt"])
	return ok && model.Millis(s.now()) > at
}

// expire deletes the blob best effort and then the record.
func (s *Service) expire(ctx context.Context, record datalayer.Record) bool {
	id := record.ID()
	log := s.logger.WithFields(logrus.Fields{"op": "expire", "table": query.TableFiles, "id": id})

	if err := s.blobs.DeleteBlob(ctx, blobURL(record)); err != nil {
		log.WithError(err).Warn("blob delete failed")
	}
	if !s.records.Delete(ctx, query.TableFiles, id) {
		log.Warn("record delete failed")
		return false
	}
	log.Debug("file expired")
	return true
}

func blobURL(record datalayer.Record) string {
	v, _ := record["blobUrl"].(string)
	return v
}

func millis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
