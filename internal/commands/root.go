package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/buildinfo"
)

// PasswordEnv supplies --password when the flag is not given.
const PasswordEnv = "LIBRO_PASSWORD"

type globalOptions struct {
	dir      string
	password string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "libro",
		Short:   "Libro diario: journal, chart of accounts and monthly balances",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "project directory (holds config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.password, "password", os.Getenv(PasswordEnv), "password for privileged operations (default $"+PasswordEnv+")")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAddCommand(opts),
		newEditCommand(opts),
		newDeleteCommand(opts),
		newListCommand(opts),
		newTopCommand(opts),
		newClassifyCommand(opts),
		newAccountsCommand(opts),
		newMonthCommand(opts),
		newRepairCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newWatchCommand(opts),
		newPasswdCommand(opts),
	)

	return rootCmd
}
