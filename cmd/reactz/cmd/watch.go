package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zoobzio/reactz"
	"github.com/zoobzio/reactz/config"
	"github.com/zoobzio/reactz/watch"
)

type watchOptions struct {
	recursive bool
	ignore    []string
}

var watchOpts watchOptions

// watchCmd prints file changes grouped by quiet period.
var watchCmd = &cobra.Command{
	Use:   "watch <path>...",
	Short: "Print file changes grouped by debounce.duration",
	Long: `Watch files or directories and print the changed paths once every
debounce.duration, each path listed once per group.

Examples:
  reactz watch ./config
  reactz watch --recursive --ignore .git --ignore node_modules .`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runWatch(ctx, cfg, watchOpts, args, cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().BoolVarP(&watchOpts.recursive, "recursive", "r", false, "watch directories recursively")
	watchCmd.Flags().StringSliceVar(&watchOpts.ignore, "ignore", nil, "directory name patterns to skip when recursive")
}

func runWatch(ctx context.Context, cfg *config.Config, opts watchOptions, paths []string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clock := reactz.RealClock

	var streams []*reactz.Channel[fsnotify.Event]
	for _, p := range paths {
		var (
			ch  *reactz.Channel[fsnotify.Event]
			err error
		)
		if opts.recursive {
			ch, err = watch.Tree(ctx, clock, p, opts.ignore...)
		} else {
			ch, err = watch.Files(ctx, clock, p)
		}
		if err != nil {
			for _, s := range streams {
				s.Cancel()
			}
			return err
		}
		streams = append(streams, ch)
	}

	log.Info().Strs("paths", paths).Dur("debounce", cfg.Debounce.Duration).Msg("watching")

	events := reactz.Merge(ctx, streams...)
	groups := reactz.NewBatchByTime[fsnotify.Event](cfg.Debounce.Duration, clock).Process(ctx, events)

	results, err := groups.Results(ctx)
	if err != nil {
		return err
	}
	for res := range results {
		if res.IsError() {
			if ctx.Err() != nil {
				return nil
			}
			return res.Err()
		}
		if err := printChanges(w, res.Value()); err != nil {
			return err
		}
	}
	return nil
}

// printChanges writes each changed path once with the union of its ops.
func printChanges(w io.Writer, batch []fsnotify.Event) error {
	ops := make(map[string]fsnotify.Op)
	for _, ev := range batch {
		ops[ev.Name] |= ev.Op
	}
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s %s\n", ops[name], name); err != nil {
			return err
		}
	}
	return nil
}
