package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/accounts"
	"github.com/cleared-dev/libro/internal/config"
	"github.com/cleared-dev/libro/internal/importer"
	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/ledger"
	"github.com/cleared-dev/libro/internal/rules"
)

func newInitCommand(opts *globalOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new libro project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized libro project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "community or business name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(dir, name string) error {
	if _, err := os.Stat(config.Path(dir)); err == nil {
		return fmt.Errorf("%s already exists", config.Path(dir))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default(name)
	dataDir := cfg.DataDir(dir)
	for _, d := range []string{
		dataDir,
		filepath.Join(dataDir, "logs"),
		filepath.Join(dataDir, "import"),
		filepath.Join(dataDir, "import", "processed"),
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write config.yaml.
	if err := config.Save(config.Path(dir), cfg); err != nil {
		return err
	}

	// Seed the chart of accounts and the rulebook.
	if err := accounts.New(cfg.AccountsPath(dir), accounts.DefaultChart(), nil).Save(); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	if err := rules.New(cfg.RulesPath(dir), rules.DefaultRules(), nil).Save(); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	// Empty journal and balance files.
	j := journal.New(cfg.JournalPath(dir), nil, nil, nil)
	if err := j.Load(); err != nil {
		return fmt.Errorf("loading journal: %w", err)
	}
	if err := j.Save(); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	if err := ledger.New(cfg.BalancesPath(dir), nil).Save(); err != nil {
		return fmt.Errorf("writing balances: %w", err)
	}

	// Write the default import formats.
	if _, err := importer.LoadFormats(cfg.FormatsPath(dir)); err != nil {
		return fmt.Errorf("writing import formats: %w", err)
	}

	gitignore := ".env\n" + filepath.Join(cfg.Data.Dir, "*.corrupt-*") + "\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
