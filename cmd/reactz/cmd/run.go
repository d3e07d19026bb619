package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zoobzio/reactz"
	"github.com/zoobzio/reactz/config"
)

// pipelineOptions selects the optional stages of the run pipeline.
type pipelineOptions struct {
	distinct bool
	debounce bool
	throttle bool
	batch    bool
}

var runOpts pipelineOptions

// runCmd streams stdin lines through the configured operators.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream stdin lines through a pipeline",
	Long: `Read lines from stdin, trim them, drop empty ones and pass them through
the selected operators. Durations and sizes come from the configuration.

Examples:
  tail -f app.log | reactz run --distinct
  tail -f app.log | reactz run --throttle
  cat ids.txt | reactz run --batch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runPipeline(ctx, cfg, runOpts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.distinct, "distinct", false, "drop lines seen within dedupe.ttl")
	runCmd.Flags().BoolVar(&runOpts.debounce, "debounce", false, "emit a line only after debounce.duration of quiet")
	runCmd.Flags().BoolVar(&runOpts.throttle, "throttle", false, "emit at most one line per throttle.duration")
	runCmd.Flags().BoolVar(&runOpts.batch, "batch", false, "group lines by batch.max_size and batch.max_latency")
}

// lines feeds r into a channel until EOF or ctx ends.
func lines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("reading input")
		}
	}()
	return out
}

func runPipeline(ctx context.Context, cfg *config.Config, opts pipelineOptions, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clock := reactz.RealClock

	stream := reactz.FromChan(ctx, lines(ctx, r))
	stream = reactz.NewMapper(strings.TrimSpace).WithName("trim").Process(ctx, stream)
	stream = reactz.NewFilter(func(s string) bool { return s != "" }).WithName("non-empty").Process(ctx, stream)

	if opts.distinct {
		stream = config.NewDedupe(cfg, func(s string) string { return s }, clock).Process(ctx, stream)
	}
	if opts.throttle {
		stream = config.NewThrottle[string](cfg).Process(ctx, stream)
	}
	if opts.debounce {
		stream = config.NewDebounce[string](cfg, clock).Process(ctx, stream)
	}
	stream = config.NewBackpressureBuffer[string](cfg).Process(ctx, stream)

	if opts.batch {
		batches := config.NewBatcher[string](cfg, clock).Process(ctx, stream)
		stream = reactz.NewMapper(func(batch []string) string {
			return strings.Join(batch, ", ")
		}).WithName("join").Process(ctx, batches)
	}

	results, err := stream.Results(ctx)
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
		if _, err := fmt.Fprintln(w, res.Value()); err != nil {
			return err
		}
	}
	return nil
}
