package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yashagw/selopt/internal/config"
	"github.com/yashagw/selopt/internal/logging"
	"github.com/yashagw/selopt/internal/metrics"
	"github.com/yashagw/selopt/internal/optimizer"
	"github.com/yashagw/selopt/internal/query"
	"github.com/yashagw/selopt/internal/render"
)

type options struct {
	output      string
	explain     string
	workers     int
	noPrune     bool
	metricsFile string
	logLevel    string
	seqURL      string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "selopt QUERY_FILE CONFIG_FILE",
		Short: "selopt plans the evaluation of conjunctive selection conditions.",
		Long: "selopt reads one query per line from QUERY_FILE, each a list of predicate selectivities, " +
			"and prints the cheapest scan loop for each under the machine parameters in CONFIG_FILE.\n\n" +
			"Plans mix short-circuiting && branches with branch-free & terms, choosing by the cost " +
			"of evaluation, branch misprediction and answer writes.",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.explain {
			case "", "table", "dot":
				return nil
			default:
				return errors.Newf("unknown --explain format %q, want table or dot", opts.explain)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "write reports to this file instead of stdout")
	flags.StringVar(&opts.explain, "explain", "", "also print each plan tree as a table or dot graph")
	flags.IntVar(&opts.workers, "workers", 0, "queries optimized in parallel (0 means one per CPU)")
	flags.BoolVar(&opts.noPrune, "no-prune", false, "cost every split instead of skipping dominated ones")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.seqURL, "seq-url", "", "also send logs to the Seq server at this URL")
	config.RegisterFlags(flags)
	return cmd
}

func run(cmd *cobra.Command, opts *options, queryFile, configFile string) error {
	logger, closeLog, err := logging.Setup(logging.Options{
		Level:  opts.logLevel,
		SeqURL: opts.seqURL,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	queries, err := query.ReadFile(queryFile)
	if err != nil {
		return err
	}

	m := metrics.New()
	optimizerOpts := []optimizer.Option{
		optimizer.WithLogger(logger),
		optimizer.WithRecorder(m),
		optimizer.WithMaxPredicates(cfg.MaxPredicates),
	}
	if opts.noPrune {
		optimizerOpts = append(optimizerOpts, optimizer.WithoutPruning())
	}
	o := optimizer.New(model, optimizerOpts...)

	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	}

	start := time.Now()
	results, err := o.OptimizeBatch(cmd.Context(), query.Selectivities(queries), opts.workers)
	if err != nil {
		return err
	}

	var failed, splits, pruned int
	for i, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("query not optimized", "line", queries[i].Line, "query", queries[i].String(), "err", r.Err)
			continue
		}
		splits += r.Result.Stats.Splits
		pruned += r.Result.Stats.Pruned()
		if err := writePlan(w, opts.explain, r.Result); err != nil {
			return errors.Wrap(err, "writing report")
		}
	}

	logger.Info("optimized queries",
		"queries", humanize.Comma(int64(len(queries))),
		"failed", failed,
		"splits", humanize.Comma(int64(splits)),
		"pruned", humanize.Comma(int64(pruned)),
		"elapsed", time.Since(start),
	)

	if opts.metricsFile != "" {
		if err := m.WriteTextfile(opts.metricsFile); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d queries could not be optimized", failed, len(queries))
	}
	return nil
}

func writePlan(w io.Writer, explain string, res *optimizer.Result) error {
	if _, err := io.WriteString(w, render.Report(res.Selectivities, res.Space, res.Root)); err != nil {
		return err
	}
	switch explain {
	case "table":
		return render.Explain(w, res.Space, res.Root)
	case "dot":
		_, err := fmt.Fprintln(w, render.DOT(res.Space, res.Root))
		return err
	}
	return nil
}
