package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkoosis/recommender/internal/analysis"
	"github.com/dkoosis/recommender/internal/config"
	"github.com/dkoosis/recommender/internal/console"
	"github.com/dkoosis/recommender/internal/logging"
	"github.com/dkoosis/recommender/internal/trip"
	"github.com/dkoosis/recommender/internal/tui"
	"github.com/dkoosis/recommender/internal/version"
	"github.com/dkoosis/recommender/internal/web"
	"github.com/dkoosis/recommender/pkg/markup"
)

type planFlags struct {
	category  string
	budget    string
	headcount string
	tripType  string
	month     string
	noTUI     bool
}

func newPlanCmd(d deps, g *globalFlags) *cobra.Command {
	var f planFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Recommend a destination for one trip",
		Example: "  recommender plan --category Beaches --budget 5000 --headcount 2 --type Couples --month June\n" +
			"  recommender plan --category \"road trip\" --month oct --no-tui",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, d, g, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.category, "category", string(trip.Mountains), "Mountains, Beaches, Heritage, Pilgrimage or Road Trip")
	fl.StringVar(&f.budget, "budget", fmt.Sprint(trip.MinBudget), fmt.Sprintf("net budget in rupees (at least %d)", trip.MinBudget))
	fl.StringVar(&f.headcount, "headcount", "1", "number of people travelling")
	fl.StringVar(&f.tripType, "type", string(trip.Family), "Family, Friends, Couples or Solo")
	fl.StringVar(&f.month, "month", time.January.String(), "month of travel")
	fl.BoolVar(&f.noTUI, "no-tui", false, "stream to the terminal instead of the full-screen display")
	return cmd
}

func runPlan(cmd *cobra.Command, d deps, g *globalFlags, f planFlags) error {
	p, err := trip.Parse(f.category, f.budget, f.headcount, f.tripType, f.month)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, d, g)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Debug, defaultLogFile(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	a, err := d.newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	interactive := d.isTTY(stdout)
	renderer := markup.Plain
	if interactive && !cfg.NoColor {
		renderer = markup.ANSI(markup.ThemeByName(cfg.Theme))
	}

	if interactive && !f.noTUI {
		opts := tui.Options{Renderer: renderer, Mono: cfg.NoColor, Input: cmd.InOrStdin(), Output: stdout}
		return tui.Run(ctx, p, opts, func(ctx context.Context, disp *tui.Display) error {
			_, err := a.runner.Run(ctx, p, disp)
			return err
		})
	}

	width, height := d.size(stdout)
	md := markup.RawMarkdown
	if interactive {
		md = markup.TerminalMarkdown(width, cfg.NoColor)
	}
	c := console.New(stdout, stderr, console.Options{
		Renderer:    renderer,
		Markdown:    md,
		Interactive: interactive,
		Width:       width,
		Height:      height,
	})
	c.Start(p)
	if _, err := a.runner.Run(ctx, p, c); err != nil {
		c.Stop()
		return err
	}
	return nil
}

func newServeCmd(d deps, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trip form in a browser",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, d, g)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Debug, cfg.LogFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := d.newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			srv := web.New(a.runner, web.WithLogger(log))
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", cfg.Addr)
			return web.ListenAndServe(cmd.Context(), cfg.Addr, srv, log)
		},
	}
	cmd.Flags().StringVar(&g.addr, "addr", "", "listen address (default "+config.DefaultAddr+")")
	return cmd
}

func newHistoryCmd(d deps, g *globalFlags) *cobra.Command {
	var (
		limit int
		stats bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent recommendations",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return usageError{fmt.Errorf("--limit must be at least 1, got %d", limit)}
			}
			cfg, err := loadConfig(cmd, d, g)
			if err != nil {
				return err
			}
			if cfg.NoHistory {
				return errors.New("history is disabled")
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			recs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tSTATUS\tELAPSED\tTRIP")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%.2fs\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Elapsed.Seconds(), r.Params)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !stats {
				return nil
			}

			counts, err := store.CategoryCounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, c := range trip.Categories {
				if n := counts[c]; n > 0 {
					fmt.Fprintf(out, "%-12s %d\n", c, n)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "also show run counts per category")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), version.Get())
			return err
		},
	}
}

// compile-time checks that both terminal displays satisfy the runner.
var (
	_ analysis.Display = (*console.Console)(nil)
	_ analysis.Display = (*tui.Display)(nil)
)
