package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/config"
)

func newPasswdCommand(opts *globalOptions) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "passwd <new-password>",
		Short: "Set the password for privileged operations",
		Long: `Stores a bcrypt hash of the new password as auth.secret in config.yaml.
When a password is already configured, --password must match it. With
--print the hash is printed instead, for use in LIBRO_AUTH_SECRET.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			if cfg.Auth.Secret != "" {
				if _, err := auth.New(cfg.Auth.Secret).Authorize(opts.password); err != nil {
					return fmt.Errorf("changing password: %w", err)
				}
			}

			hash, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			if printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			}

			cfg.Auth.Secret = hash
			if err := config.Save(config.Path(root), cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated in %s\n", filepath.Base(config.Path(root)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the hash instead of saving it")

	return cmd
}
