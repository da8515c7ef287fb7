package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/importer"
	"github.com/cleared-dev/libro/internal/journal"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var format string
	var learn, dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank CSV exports from the data directory's import/ folder",
		Long: `Each CSV in <data>/import is parsed with the format named by --format, or
the format whose name prefixes the file name. Movements whose document is
already in the journal are skipped. Fully imported files move to
import/processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			formats, err := importer.LoadFormats(s.cfg.FormatsPath(s.root))
			if err != nil {
				return err
			}
			reg, err := importer.NewRegistryFromFormats(formats)
			if err != nil {
				return err
			}
			if format != "" && reg.Get(format) == nil {
				return fmt.Errorf("unknown format %q (have %s)", format, strings.Join(reg.Names(), ", "))
			}

			files, err := importer.Scan(s.dataDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				s.printf("Nothing to import\n")
				return nil
			}

			defaults := importer.AccountDefaults{Gasto: s.cfg.Import.GastoAccount, Ingreso: s.cfg.Import.IngresoAccount}
			for _, f := range files {
				p := parserFor(reg, format, f.Name)
				if p == nil {
					s.logger.Warn("no import format matches file", "file", f.Name)
					continue
				}
				res, err := importFile(s, p, f, defaults, journal.AppendOptions{AcceptAndLearn: learn}, dryRun)
				if err != nil {
					return err
				}
				s.printf("%s (%s): %d added, %d skipped, %d failed\n", f.Name, p.Format(), res.added, res.skipped, res.failed)
				if dryRun || res.failed > 0 {
					continue
				}
				if err := importer.MarkProcessed(s.dataDir, f.Name); err != nil {
					return err
				}
				s.audit(noToken, auditlog.ActionImport, fmt.Sprintf("%s: %d added, %d skipped", f.Name, res.added, res.skipped), "")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "import format name (default: match file name)")
	cmd.Flags().BoolVar(&learn, "aprender", false, "accept unrecognized concepts and learn them")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and print without changing the journal")

	return cmd
}

// parserFor picks the named parser, or the one whose name prefixes fileName.
func parserFor(reg *importer.Registry, name, fileName string) importer.Parser {
	if name != "" {
		return reg.Get(name)
	}
	lower := strings.ToLower(fileName)
	for _, n := range reg.Names() {
		if strings.HasPrefix(lower, strings.ToLower(n)) {
			return reg.Get(n)
		}
	}
	return nil
}

type importResult struct {
	added   int
	skipped int
	failed  int
}

func importFile(s *session, p importer.Parser, f importer.FileInfo, defaults importer.AccountDefaults, opts journal.AppendOptions, dryRun bool) (importResult, error) {
	var res importResult

	file, err := os.Open(f.Path)
	if err != nil {
		return res, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer file.Close()

	txns, err := p.Parse(file)
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", f.Name, err)
	}

	for _, txn := range txns {
		c, err := importer.ToCandidate(txn, s.chart.All(), defaults)
		if err != nil {
			s.logger.Warn("skipping bank transaction", "file", f.Name, "err", err)
			res.skipped++
			continue
		}
		if c.Documento != "" {
			if _, exists := s.journal.FindDocument(c.Documento); exists {
				res.skipped++
				continue
			}
		}
		if dryRun {
			s.printf("  %s %s %s debe=%s haber=%s\n", c.Fecha, c.Cuenta, c.Concepto, money(c.Debe), money(c.Haber))
			res.added++
			continue
		}
		if _, err := s.journal.Append(c, opts); err != nil {
			if !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrConceptNotRecognized) {
				return res, err
			}
			s.logger.Warn("movement not imported", "file", f.Name, "fecha", c.Fecha, "concepto", c.Concepto, "err", err)
			res.failed++
			continue
		}
		res.added++
	}
	return res, nil
}
