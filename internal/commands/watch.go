package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/accounts"
	"github.com/cleared-dev/libro/internal/classifier"
	"github.com/cleared-dev/libro/internal/dashboard"
	"github.com/cleared-dev/libro/internal/rules"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var interval time.Duration
	var once bool

	cmd := &cobra.Command{
		Use:   "watch [YYYY-MM]",
		Short: "Print the current month's totals whenever the journal is polled",
		Long: `Polls the journal file without taking the data directory lock, so it can
run next to other commands. With --once, prints one summary of the given
month and exits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, logger, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = cfg.Dashboard.Interval
			}

			cl := classifier.New(
				accounts.Load(cfg.AccountsPath(root), logger),
				rules.Load(cfg.RulesPath(root), logger),
			)
			p := &dashboard.Poller{
				Path:        cfg.JournalPath(root),
				Interval:    interval,
				RetryDelay:  dashboard.DefaultRetryDelay,
				Categorizer: cl,
				Logger:      logger,
			}
			out := cmd.OutOrStdout()

			if once {
				month, year, err := monthArg(args, time.Now())
				if err != nil {
					return err
				}
				t, err := p.Read(month, year)
				if err != nil {
					return err
				}
				printTotals(out, t)
				return nil
			}
			if len(args) > 0 {
				return fmt.Errorf("a month can only be given with --once")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			err = p.Watch(ctx, func(t dashboard.Totals, err error) {
				if err == nil {
					printTotals(out, t)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default from config)")
	cmd.Flags().BoolVar(&once, "once", false, "print one summary and exit")

	return cmd
}

func printTotals(w io.Writer, t dashboard.Totals) {
	fmt.Fprintf(w, "%04d-%02d  ingresos %s  gastos %s  neto %s  pendientes %d (%s)\n",
		t.Year, t.Month, money(t.Ingresos), money(t.Gastos), money(t.Net()), t.Pending, money(t.PendingAmount))
	var parts []string
	for _, c := range t.Categories() {
		parts = append(parts, fmt.Sprintf("%s %s", c, money(t.GastosBy[c])))
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, ", "))
	}
}
