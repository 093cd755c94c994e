package sqlstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tablecache/model"
)

type index struct {
	name   string
	model  any
	column string
}

var indexes = []index{
	{name: "idx_posts_author", model: (*model.Post)(nil), column: "author"},
	{name: "idx_posts_created", model: (*model.Post)(nil), column: "created_at DESC"},
	{name: "idx_comments_post", model: (*model.Comment)(nil), column: "post_id"},
	{name: "idx_users_email", model: (*model.User)(nil), column: "email"},
}

// Bootstrap creates every table and index that does not exist yet.
func Bootstrap(ctx context.Context, db bun.IDB) error {
	for _, m := range model.Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrapf(err, "sqlstore: create table for %T", m)
		}
	}

	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			ColumnExpr(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return errors.Wrapf(err, "sqlstore: create index %s", idx.name)
		}
	}

	return nil
}
