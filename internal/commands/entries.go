package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/config"
	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/report"
)

// movementFlags are the movement fields shared by add and edit.
type movementFlags struct {
	fecha     string
	documento string
	concepto  string
	cuenta    string
	debe      string
	haber     string
	moneda    string
	estado    string
	banco     string
}

func (f *movementFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fecha, "fecha", "", "date dd/mm/yyyy (default today)")
	cmd.Flags().StringVar(&f.documento, "doc", "", "document identifier (generated when blank)")
	cmd.Flags().StringVar(&f.concepto, "concepto", "", "concept")
	cmd.Flags().StringVar(&f.cuenta, "cuenta", "", "account code")
	cmd.Flags().StringVar(&f.debe, "debe", "", "debit amount")
	cmd.Flags().StringVar(&f.haber, "haber", "", "credit amount")
	cmd.Flags().StringVar(&f.moneda, "moneda", "", "currency (default from config)")
	cmd.Flags().StringVar(&f.estado, "estado", "", "pagado or pendiente (default pagado)")
	cmd.Flags().StringVar(&f.banco, "banco", "", "bank (default from config)")
}

func (f *movementFlags) candidate(cfg *config.Config, now time.Time) (journal.Candidate, error) {
	c := journal.Candidate{
		Fecha:     f.fecha,
		Documento: f.documento,
		Concepto:  f.concepto,
		Cuenta:    f.cuenta,
		Moneda:    f.moneda,
		Banco:     f.banco,
	}
	if c.Fecha == "" {
		c.Fecha = model.FormatDate(now)
	}
	if c.Moneda == "" {
		c.Moneda = cfg.Currency
	}
	if c.Banco == "" {
		c.Banco = cfg.Bank
	}

	var err error
	if c.Debe, err = optionalAmount("debe", f.debe); err != nil {
		return c, err
	}
	if c.Haber, err = optionalAmount("haber", f.haber); err != nil {
		return c, err
	}
	if f.estado != "" {
		st, ok := model.ParseStatus(f.estado)
		if !ok {
			return c, fmt.Errorf("invalid estado %q", f.estado)
		}
		c.Estado = st
	}
	return c, nil
}

// patch returns a Patch holding only the flags given on the command line.
func (f *movementFlags) patch(cmd *cobra.Command) (journal.Patch, error) {
	var p journal.Patch
	changed := cmd.Flags().Changed
	str := func(name, v string) *string {
		if !changed(name) {
			return nil
		}
		return &v
	}
	p.Fecha = str("fecha", f.fecha)
	p.Documento = str("doc", f.documento)
	p.Concepto = str("concepto", f.concepto)
	p.Cuenta = str("cuenta", f.cuenta)
	p.Moneda = str("moneda", f.moneda)
	p.Banco = str("banco", f.banco)

	for _, a := range []struct {
		name string
		raw  string
		dst  **decimal.Decimal
	}{{"debe", f.debe, &p.Debe}, {"haber", f.haber, &p.Haber}} {
		if !changed(a.name) {
			continue
		}
		d, err := optionalAmount(a.name, a.raw)
		if err != nil {
			return p, err
		}
		*a.dst = &d
	}
	if changed("estado") {
		st, ok := model.ParseStatus(f.estado)
		if !ok {
			return p, fmt.Errorf("invalid estado %q", f.estado)
		}
		p.Estado = &st
	}
	return p, nil
}

func optionalAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := model.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return d, nil
}

// conceptHint points the user at --aprender when a concept was rejected.
func conceptHint(err error) error {
	if errors.Is(err, apperr.ErrConceptNotRecognized) {
		return fmt.Errorf("%w (use --aprender to accept and learn it)", err)
	}
	return err
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var f movementFlags
	var learn bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a movement to the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := f.candidate(s.cfg, time.Now())
			if err != nil {
				return err
			}
			novel := !s.classifier.Validate(c.Cuenta, c.Concepto)

			e, err := s.journal.Append(c, journal.AppendOptions{AcceptAndLearn: learn})
			if err != nil {
				return conceptHint(err)
			}
			if learn && novel {
				s.audit(noToken, auditlog.ActionLearn, c.Cuenta+": "+c.Concepto, e.Movement.Documento)
			}
			s.printf("Added #%d %s %s %s\n", e.Index, e.Movement.Documento, e.Movement.Cuenta, e.Movement.Concepto)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&learn, "aprender", false, "accept an unrecognized concept and learn it for the account")
	_ = cmd.MarkFlagRequired("concepto")
	_ = cmd.MarkFlagRequired("cuenta")

	return cmd
}

func newEditCommand(opts *globalOptions) *cobra.Command {
	var f movementFlags
	var learn bool

	cmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Edit a journal movement (requires password)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := indexArg(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := f.patch(cmd)
			if err != nil {
				return err
			}
			tok, err := s.authorize("edit movement")
			if err != nil {
				return err
			}
			e, err := s.journal.Edit(tok, index, p, journal.AppendOptions{AcceptAndLearn: learn})
			if err != nil {
				return conceptHint(err)
			}
			s.audit(tok, auditlog.ActionEdit, "#"+strconv.Itoa(index), e.Movement.Documento)
			s.printf("Edited #%d %s\n", e.Index, e.Movement.Documento)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&learn, "aprender", false, "accept an unrecognized concept and learn it for the account")

	return cmd
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a journal movement (requires password)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := indexArg(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			tok, err := s.authorize("delete movement")
			if err != nil {
				return err
			}
			removed, err := s.journal.Delete(tok, index)
			if err != nil {
				return err
			}
			s.audit(tok, auditlog.ActionDelete, "#"+strconv.Itoa(index)+" "+removed.Concepto, removed.Documento)
			s.printf("Deleted #%d %s\n", index, removed.Documento)
			return nil
		},
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var month, date, account string
	var year int
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal movements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var entries []journal.Entry
			switch {
			case month != "":
				m, y, err := monthArg([]string{month}, time.Now())
				if err != nil {
					return err
				}
				entries = s.journal.ByMonth(m, y)
			case date != "":
				d, ok := model.ParseDate(date)
				if !ok {
					return fmt.Errorf("invalid date %q", date)
				}
				entries = s.journal.ByDate(d)
			case account != "":
				entries = s.journal.ByAccount(account)
			case year != 0:
				entries = s.journal.ByYear(year)
			case pending:
				entries = s.journal.Pending()
			default:
				entries = s.journal.All()
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				m := e.Movement
				rows = append(rows, []string{
					strconv.Itoa(e.Index), m.Fecha, m.Documento, m.Concepto, m.Cuenta,
					money(m.Debe), money(m.Haber), m.Banco, string(m.Estado),
				})
			}
			s.printf("%s\n", report.Table([]string{"#", "Fecha", "Documento", "Concepto", "Cuenta", "Debe", "Haber", "Banco", "Estado"}, rows))
			s.printf("%d movements\n", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "only month YYYY-MM")
	cmd.Flags().StringVar(&date, "date", "", "only date dd/mm/yyyy")
	cmd.Flags().StringVar(&account, "account", "", "only account code")
	cmd.Flags().IntVar(&year, "year", 0, "only year")
	cmd.Flags().BoolVar(&pending, "pending", false, "only pending movements")
	cmd.MarkFlagsMutuallyExclusive("month", "date", "account", "year", "pending")

	return cmd
}

func newTopCommand(opts *globalOptions) *cobra.Command {
	var year, limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the accounts with the largest debit totals of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if year == 0 {
				year = time.Now().Year()
			}
			var rows [][]string
			for _, t := range s.journal.TopAccountsOfYear(year, limit) {
				rows = append(rows, []string{t.Cuenta, s.chart.NameOf(t.Cuenta), money(t.Total)})
			}
			s.printf("%s\n", report.Table([]string{"Cuenta", "Nombre", "Total"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of accounts, 0 for all")

	return cmd
}
