package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/id"
	"github.com/cleared-dev/libro/internal/ledger"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/report"
)

func newMonthCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Monthly balance operations",
	}
	cmd.AddCommand(
		newMonthShowCommand(opts),
		newMonthCloseCommand(opts),
		newMonthReopenCommand(opts),
		newMonthOpeningCommand(opts),
		newMonthSetCommand(opts),
		newMonthUnsetCommand(opts),
		newMonthBanksCommand(opts),
	)
	return cmd
}

func newMonthShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [YYYY-MM]",
		Short: "Show a month's balances",
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

			sum, ok := s.ledger.SummaryOfMonth(month, year)
			if !ok {
				s.printf("No balances recorded for %s\n", id.FormatMonthKey(year, month))
				return nil
			}
			state := "abierto"
			if sum.Closed {
				state = "cerrado " + sum.FechaCierre
			}
			s.printf("%s (%s)\n", sum.Key, state)
			if sum.Firma != "" {
				s.printf("Firma: %s\n", sum.Firma)
			}

			var rows [][]string
			for _, b := range sum.Banks {
				rows = append(rows, []string{b.Bank, nullMoney(b.Opening), nullMoney(b.Ingresos), nullMoney(b.Gastos), nullMoney(b.Closing)})
			}
			rows = append(rows, []string{"Total", money(sum.Opening), money(sum.Ingresos), money(sum.Gastos), money(sum.Closing)})
			s.printf("%s\n", report.Table([]string{"Banco", "Inicial", "Ingresos", "Gastos", "Final"}, rows))
			return nil
		},
	}
}

func newMonthCloseCommand(opts *globalOptions) *cobra.Command {
	var signatory string

	cmd := &cobra.Command{
		Use:   "close [YYYY-MM]",
		Short: "Close a month from the journal's movements (requires password)",
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

			tok, err := s.authorize("close month")
			if err != nil {
				return err
			}
			snap := s.ledger.BuildSnapshot(s.journal.Movements(), month, year, signatory)
			if err := s.ledger.Close(tok, month, year, snap); err != nil {
				return err
			}

			key := id.FormatMonthKey(year, month)
			s.audit(tok, auditlog.ActionCloseMonth, fmt.Sprintf("%s: %d banks", key, len(snap)), "")
			for _, bank := range snap.Banks() {
				closing, _ := s.ledger.Closing(month, year, bank)
				s.printf("%s %s: %s\n", key, bank, money(closing))
			}
			s.printf("Closed %s\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&signatory, "firma", "", "signatory name")

	return cmd
}

func newMonthReopenCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <YYYY-MM>",
		Short: "Reopen a closed month (requires password)",
		Args:  cobra.ExactArgs(1),
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

			tok, err := s.authorize("reopen month")
			if err != nil {
				return err
			}
			if err := s.ledger.Reopen(tok, month, year); err != nil {
				return err
			}
			key := id.FormatMonthKey(year, month)
			s.audit(tok, auditlog.ActionReopenMonth, key, "")
			s.printf("Reopened %s\n", key)
			return nil
		},
	}
}

func newMonthOpeningCommand(opts *globalOptions) *cobra.Command {
	var bank string

	cmd := &cobra.Command{
		Use:   "opening [YYYY-MM]",
		Short: "Show opening balances, carrying forward the previous close",
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

			banks := s.ledger.BanksSeen()
			if bank != "" {
				banks = []string{bank}
			}
			total := decimal.Zero
			var rows [][]string
			for _, b := range banks {
				o := s.ledger.Opening(month, year, b)
				total = total.Add(o)
				rows = append(rows, []string{b, money(o)})
			}
			if bank == "" {
				rows = append(rows, []string{"Total", money(total)})
			}
			s.printf("%s\n", report.Table([]string{"Banco", "Inicial"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&bank, "bank", "", "only this bank")

	return cmd
}

func newMonthSetCommand(opts *globalOptions) *cobra.Command {
	var opening, ingresos, gastos, closing string

	cmd := &cobra.Command{
		Use:   "set <YYYY-MM> <bank>",
		Short: "Set balance values of a bank in a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, year, err := monthArg(args[:1], time.Now())
			if err != nil {
				return err
			}

			var p ledger.SlotPatch
			for _, v := range []struct {
				name string
				raw  string
				dst  **decimal.Decimal
			}{
				{"inicial", opening, &p.Opening},
				{"ingresos", ingresos, &p.Ingresos},
				{"gastos", gastos, &p.Gastos},
				{"final", closing, &p.Closing},
			} {
				if !cmd.Flags().Changed(v.name) {
					continue
				}
				d, err := model.ParseAmount(v.raw)
				if err != nil {
					return fmt.Errorf("invalid %s %q: %w", v.name, v.raw, err)
				}
				*v.dst = &d
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ledger.EditSlot(month, year, args[1], p); err != nil {
				return err
			}
			s.printf("Updated %s %s\n", id.FormatMonthKey(year, month), args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&opening, "inicial", "", "opening balance")
	cmd.Flags().StringVar(&ingresos, "ingresos", "", "income total")
	cmd.Flags().StringVar(&gastos, "gastos", "", "expense total")
	cmd.Flags().StringVar(&closing, "final", "", "closing balance")

	return cmd
}

func newMonthUnsetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <YYYY-MM> <bank>",
		Short: "Remove a bank's balances from a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, year, err := monthArg(args[:1], time.Now())
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ledger.DeleteSlot(month, year, args[1]); err != nil {
				return err
			}
			s.printf("Removed %s %s\n", id.FormatMonthKey(year, month), args[1])
			return nil
		},
	}
}

func newMonthBanksCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List banks with recorded balances, and months on file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, b := range s.ledger.BanksSeen() {
				s.printf("%s\n", b)
			}
			for _, key := range s.ledger.Months() {
				closed := ""
				if y, m, err := id.ParseMonthKey(key); err == nil && s.ledger.IsClosed(m, y) {
					closed = " (cerrado)"
				}
				s.printf("%s%s\n", key, closed)
			}
			return nil
		},
	}
}
