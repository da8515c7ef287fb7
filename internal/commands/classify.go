package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/report"
)

func newClassifyCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <account> <concept>",
		Short: "Check a concept against an account and show its category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			code, concept := args[0], args[1]
			s.printf("Cuenta: %s %s\n", code, s.chart.NameOf(code))
			s.printf("Categoría: %s\n", s.classifier.Categorize(code))
			if s.classifier.Validate(code, concept) {
				s.printf("Concepto reconocido\n")
				return nil
			}
			s.printf("Concepto no reconocido\n")
			if sugg := s.classifier.Suggest(code, concept, 3); len(sugg) > 0 {
				s.printf("Sugerencias: %s\n", strings.Join(sugg, ", "))
			}
			return nil
		},
	}
}

func newAccountsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts operations",
	}
	cmd.AddCommand(newAccountsListCommand(opts), newAccountsCreateCommand(opts), newAccountsLearnCommand(opts))
	return cmd
}

func newAccountsListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their permitted concepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var rows [][]string
			for _, a := range s.chart.All() {
				rows = append(rows, []string{
					a.Code, a.Name, string(s.classifier.Categorize(a.Code)), strings.Join(a.Permitted, ", "),
				})
			}
			s.printf("%s\n", report.Table([]string{"Cuenta", "Nombre", "Categoría", "Conceptos"}, rows))
			s.printf("%d accounts\n", s.chart.Len())
			return nil
		},
	}
}

func newAccountsCreateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <code> <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.chart.CreateAccount(args[0], args[1]); err != nil {
				return err
			}
			s.printf("Created account %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func newAccountsLearnCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <code> <concept>",
		Short: "Add a permitted concept to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			code, concept := args[0], args[1]
			if !s.chart.Exists(code) {
				return apperr.New(apperr.KindValidation, "learning concept", fmt.Sprintf("account %s does not exist", code))
			}
			if err := s.classifier.Learn(code, concept); err != nil {
				return err
			}
			s.audit(noToken, auditlog.ActionLearn, code+": "+concept, "")
			s.printf("Learned %q for %s\n", model.NormalizePhrase(concept), code)
			return nil
		},
	}
}
