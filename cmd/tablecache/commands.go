package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-tablecache/community"
	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/query"
)

var errNotFound = errors.New("record not found")

// seedOrder inserts parents before the rows referencing them.
var seedOrder = []string{query.TableUsers, query.TablePosts, query.TableComments, query.TableFiles}

func (a *app) bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Creates the tables and indexes if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.container.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			return a.print(map[string]any{"schema": "ready"})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Prints one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, ok := a.container.Layer().FindByID(cmd.Context(), args[0], args[1])
			if !ok {
				return errors.Wrapf(errNotFound, "%s/%s", args[0], args[1])
			}
			if field != "" {
				projected, err := community.Project(record, field)
				if err != nil {
					return err
				}
				return a.print(projected)
			}
			return a.print(record)
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "print only this field")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		filters []string
		sortBy  string
		order   string
	)
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "Lists records matching fuzzy filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}
			var sort datalayer.Sort
			if sortBy != "" {
				sort = datalayer.Sort{Field: sortBy, Order: query.ParseOrder(order)}
			}

			records := a.container.Layer().FindAll(cmd.Context(), args[0], parsed, sort)
			return a.print(map[string]any{
				"limits_pages": datalayer.PageCount(len(records), datalayer.DefaultPageSize),
				"records":      records,
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field=value substring filter, repeatable")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort field (default: table default)")
	cmd.Flags().StringVar(&order, "order", "asc", "asc or desc")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		typ   string
		field string
	)
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Searches posts and users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.container.Community().Search(cmd.Context(), args[0], datalayer.SearchType(typ), field)
			if err != nil {
				return err
			}
			return a.print(page)
		},
	}
	cmd.Flags().StringVar(&typ, "type", string(datalayer.SearchAll), "all, posts or users")
	cmd.Flags().StringVar(&field, "field", "", "reduce matches to {id, field}")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Deletes one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(map[string]any{
				"deleted": a.container.Layer().Delete(cmd.Context(), args[0], args[1]),
			})
		},
	}
}

func (a *app) expireFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-files",
		Short: "Removes expired file records and their blobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := a.container.Files().SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(map[string]any{"removed": removed})
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Inserts the rows of a {table: [rows]} JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "read %s", args[0])
			}
			var seed map[string][]map[string]any
			if err := json.Unmarshal(data, &seed); err != nil {
				return errors.Wrapf(err, "decode %s", args[0])
			}

			created := map[string]int{}
			for _, table := range seedOrder {
				for _, row := range seed[table] {
					if _, err := a.container.Layer().Create(cmd.Context(), table, row); err != nil {
						return err
					}
					created[table]++
				}
			}
			return a.print(map[string]any{"created": created})
		},
	}
}

// parseFilters turns field=value pairs into filters. A value may contain
// '='; the first one separates it from the field.
func parseFilters(pairs []string) (datalayer.Filters, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(datalayer.Filters, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, errors.Newf("invalid filter %q, want field=value", pair)
		}
		filters[field] = value
	}
	return filters, nil
}
