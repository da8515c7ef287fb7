package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/report"
)

// repairDir holds revert files inside the data directory.
const repairDir = "reparaciones"

func newRepairCommand(opts *globalOptions) *cobra.Command {
	var apply bool
	var revert string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Find movements with debe and haber swapped, and fix or revert them",
		Long: `Without flags, lists expense or investment movements recorded on the
credit side. --apply swaps them (requires password) and writes a revert file;
--revert <file> undoes such a repair.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			switch {
			case revert != "":
				return runRevert(s, revert)
			case apply:
				return runRepair(s)
			}

			candidates := s.journal.RepairCandidates()
			if len(candidates) == 0 {
				s.printf("No repair candidates\n")
				return nil
			}
			rows := make([][]string, 0, len(candidates))
			for _, e := range candidates {
				m := e.Movement
				rows = append(rows, []string{strconv.Itoa(e.Index), m.Fecha, m.Documento, m.Concepto, m.Cuenta, money(m.Debe), money(m.Haber)})
			}
			s.printf("%s\n", report.Table([]string{"#", "Fecha", "Documento", "Concepto", "Cuenta", "Debe", "Haber"}, rows))
			s.printf("%v\n", s.journal.Diagnose())
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "swap debe and haber on every candidate")
	cmd.Flags().StringVar(&revert, "revert", "", "undo the repair recorded in this revert file")
	cmd.MarkFlagsMutuallyExclusive("apply", "revert")

	return cmd
}

func runRepair(s *session) error {
	tok, err := s.authorize("repair journal")
	if err != nil {
		return err
	}
	changes, err := s.journal.Repair(tok)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		s.printf("No repair candidates\n")
		return nil
	}

	path := filepath.Join(s.dataDir, repairDir, fmt.Sprintf("reparacion-%s.json", time.Now().Format("20060102-150405")))
	if err := s.journal.WriteRevertFile(path, changes); err != nil {
		return fmt.Errorf("repaired %d movements but could not write revert file: %w", len(changes), err)
	}
	s.audit(tok, auditlog.ActionRepair, fmt.Sprintf("%d movements, revert file %s", len(changes), filepath.Base(path)), "")
	s.printf("Repaired %d movements\nRevert with: libro repair --revert %s\n", len(changes), path)
	return nil
}

func runRevert(s *session, path string) error {
	tok, err := s.authorize("revert repair")
	if err != nil {
		return err
	}
	changes, err := journal.ReadRevertFile(path)
	if err != nil {
		return err
	}
	n, err := s.journal.RevertRepair(tok, changes)
	if err != nil {
		return err
	}
	s.audit(tok, auditlog.ActionRevertRepair, fmt.Sprintf("%d of %d movements from %s", n, len(changes), filepath.Base(path)), "")
	s.printf("Reverted %d of %d movements\n", n, len(changes))
	return nil
}
