package commands

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/id"
	"github.com/cleared-dev/libro/internal/report"
	"github.com/cleared-dev/libro/internal/store"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	var bank, orientation, out string
	var asTable bool

	cmd := &cobra.Command{
		Use:   "export [YYYY-MM]",
		Short: "Export a month's report as CSV (requires password)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, year, err := monthArg(args, time.Now())
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if orientation == "" {
				orientation = s.cfg.Report.Orientation
			}
			o, err := report.ParseOrientation(orientation)
			if err != nil {
				return err
			}

			tok, err := s.authorize("export report")
			if err != nil {
				return err
			}

			rep, err := report.Build(report.Sources{
				Journal:    s.journal,
				Accounts:   s.chart,
				Classifier: s.classifier,
				Balances:   s.ledger,
			}, report.Params{Month: month, Year: year, Bank: bank, Orientation: o})
			if err != nil {
				return err
			}

			if asTable {
				s.printf("%s\n", report.Render(rep))
				return nil
			}

			if err := writeReport(s.out, out, rep); err != nil {
				return err
			}

			dest := out
			if dest == "" {
				dest = "stdout"
			}
			s.audit(tok, auditlog.ActionExport, fmt.Sprintf("%s %s %s -> %s", id.FormatMonthKey(year, month), bank, o, dest), "")
			return nil
		},
	}
	cmd.Flags().StringVar(&bank, "bank", "", "only this bank (default all)")
	cmd.Flags().StringVar(&orientation, "orientation", "", "strict or flow (default from config)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write CSV to this file instead of stdout")
	cmd.Flags().BoolVar(&asTable, "table", false, "render a terminal table instead of CSV")

	return cmd
}

// writeReport writes the CSV to w, or atomically to path when set. Nothing
// reaches path unless the whole report was written and the file closed.
func writeReport(w io.Writer, path string, rep report.Report) error {
	if path == "" {
		if err := report.WriteCSV(w, rep); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return nil
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := store.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("exporting to %s: %w", path, err)
	}
	return nil
}
