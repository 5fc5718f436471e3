// Command play runs quiz rounds in the terminal against a catalog file.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/kunstquiz/internal/adapters/repository"
	"github.com/okian/kunstquiz/internal/adapters/source"
	"github.com/okian/kunstquiz/internal/config"
	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/internal/domain/rating"
	"github.com/okian/kunstquiz/internal/domain/selection"
	"github.com/okian/kunstquiz/internal/engine"
	"github.com/okian/kunstquiz/pkg/logger"
)

type playOptions struct {
	catalogPath string
	format      string
	lookupPath  string
	filterID    string
	player      string
	dsn         string
	rounds      int
	seed        int64
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:          "kunstquiz-play",
		Short:        "Play quiz rounds in the terminal",
		Long:         "Plays rounds of the art quiz on stdin/stdout. Settings default to the QUIZ_* configuration.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("catalog") {
				opts.catalogPath = cfg.CatalogPath
			}
			if !flags.Changed("format") {
				opts.format = cfg.CatalogFormat
			}
			if !flags.Changed("lookup") {
				opts.lookupPath = cfg.LookupPath
			}
			if !flags.Changed("seed") {
				opts.seed = cfg.Seed
			}
			if !flags.Changed("db") && cfg.StoreDriver == config.StoreSQLite {
				opts.dsn = cfg.StoreDSN
			}
			if opts.catalogPath == "" {
				return errors.New("no catalog: pass --catalog or set QUIZ_CATALOG_PATH")
			}

			log := logger.Nop()
			if opts.verbose {
				if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
					return err
				}
				_ = logger.SetLevelString("debug")
				log = logger.Get()
			}
			return play(cmd.Context(), cfg, opts, log, in, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.catalogPath, "catalog", "", "catalog JSON file (default QUIZ_CATALOG_PATH)")
	f.StringVar(&opts.format, "format", source.FormatPaintings, "catalog format: paintings or holdings")
	f.StringVar(&opts.lookupPath, "lookup", "", "artist lookup JSON file")
	f.StringVar(&opts.filterID, "filter", filter.AllID, "category filter id")
	f.StringVar(&opts.player, "player", "", "player id; persists the rating between runs")
	f.StringVar(&opts.dsn, "db", "", "sqlite file for ratings (default in-memory)")
	f.IntVar(&opts.rounds, "rounds", 1, "rounds to play")
	f.Int64Var(&opts.seed, "seed", 0, "random seed; 0 picks one")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

func play(ctx context.Context, cfg *config.Config, opts playOptions, log logger.Logger, in io.Reader, out io.Writer) error {
	items, lookup, err := source.LoadFile(ctx, log.Named("source"), opts.format, opts.catalogPath, opts.lookupPath)
	if err != nil {
		return err
	}

	registry, err := filter.NewRegistry(filter.Defaults()...)
	if err != nil {
		return err
	}
	for _, spec := range cfg.FilterSpecs() {
		if err := registry.Register(spec); err != nil {
			return fmt.Errorf("register filter %q: %w", spec.ID, err)
		}
	}
	cat := catalog.New(registry,
		catalog.WithDimensions(cfg.Dimensions...),
		catalog.WithLookup(lookup),
		catalog.WithLogger(log.Named("catalog")))
	stats, err := cat.Load(ctx, items)
	if err != nil {
		return err
	}

	var store repository.Store = repository.NewMemoryStore()
	if opts.dsn != "" {
		if store, err = repository.NewSQLiteStore(ctx, opts.dsn); err != nil {
			return err
		}
	}
	defer func() { _ = store.Close() }()
	ratings := repository.NewRatings(store)

	engineOpts := []engine.Option{
		engine.WithDimensions(cfg.Dimensions...),
		engine.WithRoundLength(cfg.RoundLength),
		engine.WithMaxRebuilds(cfg.MaxRebuilds),
		engine.WithSelectorOptions(
			selection.WithRecencySize(cfg.RecencySize),
			selection.WithWeighting(cfg.WeightCap, cfg.RareBonus)),
		engine.WithRatingOptions(
			rating.WithInitial(cfg.InitialRating),
			rating.WithKFactors(cfg.KCorrect, cfg.KIncorrect),
			rating.WithBaseline(cfg.Baseline)),
		engine.WithLogger(log.Named("engine")),
	}
	if opts.seed != 0 {
		engineOpts = append(engineOpts, engine.WithSeed(opts.seed))
	}
	if opts.player != "" {
		engineOpts = append(engineOpts, engine.WithRatingListener(func(ctx context.Context, s rating.Snapshot) {
			if err := ratings.Save(ctx, opts.player, s); err != nil {
				log.Error(ctx, "failed to persist rating", logger.Error(err))
			}
		}))
	}
	eng := engine.New(cat, engineOpts...)
	defer eng.Dispose(ctx)

	if opts.player != "" {
		snap, err := ratings.Load(ctx, opts.player)
		switch {
		case err == nil:
			if err := eng.RestoreRating(snap); err != nil {
				return err
			}
		case !errors.Is(err, repository.ErrNotFound):
			log.Warn(ctx, "stored rating ignored", logger.Error(err))
		}
	}

	fmt.Fprintf(out, "%d items loaded (%d rejected). Rating %d. Answer with a number or the name, q quits.\n",
		stats.Usable, stats.Rejected, eng.Rating())

	lines := bufio.NewScanner(in)
	for r := 0; r < opts.rounds; r++ {
		q, err := eng.StartRound(ctx, opts.filterID)
		if err != nil {
			return err
		}
		for q != nil {
			printQuestion(out, q)
			if !lines.Scan() {
				fmt.Fprintln(out, "\nBye.")
				return lines.Err()
			}
			line := strings.TrimSpace(lines.Text())
			if strings.EqualFold(line, "q") {
				fmt.Fprintln(out, "Bye.")
				return nil
			}

			ans, err := eng.SubmitAnswer(ctx, pickOption(line, q.Options))
			if ans.CorrectValue != "" {
				printAnswer(out, ans)
			}
			if err != nil {
				return err
			}
			q = ans.Next
		}
	}
	return nil
}

func printQuestion(out io.Writer, q *engine.Question) {
	prompt := "Which " + strings.ReplaceAll(q.Dimension, "_", " ") + "?"
	if q.Dimension == model.DimensionGroup {
		prompt = "Who made this?"
	}
	fmt.Fprintf(out, "\n[%d/%d] %s\n%s\n", q.Number, q.Total, q.Subject, prompt)
	for i, o := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o)
	}
	fmt.Fprint(out, "> ")
}

func printAnswer(out io.Writer, a engine.Answer) {
	if a.IsCorrect {
		fmt.Fprintf(out, "Correct! %+d -> %d\n", a.RatingDelta, a.Rating)
	} else {
		fmt.Fprintf(out, "Wrong, it was %s. %+d -> %d\n", a.CorrectValue, a.RatingDelta, a.Rating)
	}
	if s := a.Summary; s != nil {
		verdict := "Round complete"
		if s.Perfect {
			verdict = "Perfect round"
		}
		fmt.Fprintf(out, "\n%s: %d correct, %d wrong, %d artists.\n", verdict, s.Correct, s.Incorrect, len(s.Keys))
	}
}

// pickOption maps "2" to the second option; anything else is taken as typed.
func pickOption(line string, options []string) string {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return line
}
