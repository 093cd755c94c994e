package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-tablecache/config"
	"github.com/goliatone/go-tablecache/pkg/di"
)

// app carries the state shared by every subcommand.
type app struct {
	out        io.Writer
	configPath string
	container  *di.Container
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{out: out}

	root := &cobra.Command{
		Use:          "tablecache",
		Short:        "Cached table access for posts, users, comments and files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (falls back to $TABLECACHE_CONFIG)")

	root.AddCommand(
		a.bootstrapCmd(),
		a.getCmd(),
		a.listCmd(),
		a.searchCmd(),
		a.deleteCmd(),
		a.expireFilesCmd(),
		a.seedCmd(),
	)
	return root, a
}

// run executes args and releases the container whatever the outcome.
func run(ctx context.Context, out io.Writer, args []string) error {
	root, a := newRootCmd(out)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	path := a.configPath
	if path == "" {
		path = os.Getenv("TABLECACHE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	a.container = container
	return nil
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
