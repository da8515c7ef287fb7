package commands

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/libro/internal/accounts"
	"github.com/cleared-dev/libro/internal/auditlog"
	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/classifier"
	"github.com/cleared-dev/libro/internal/config"
	"github.com/cleared-dev/libro/internal/id"
	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/ledger"
	"github.com/cleared-dev/libro/internal/rules"
	"github.com/cleared-dev/libro/internal/store"
)

// noToken marks audit entries written by unprivileged commands.
var noToken auth.Token

// session is one command's view of a project: config, the loaded state
// files and the data directory lock.
type session struct {
	root     string
	dataDir  string
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	lock     *store.Lock
	password string
	auth     *auth.Authorizer

	chart      *accounts.Chart
	rules      *rules.Store
	classifier *classifier.Classifier
	journal    *journal.Journal
	ledger     *ledger.Ledger
}

func loadConfig(cmd *cobra.Command, opts *globalOptions) (string, *config.Config, *slog.Logger, error) {
	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return "", nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return "", nil, nil, err
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return "", nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
	return root, cfg, logger, nil
}

// openSession loads every state file under the data directory lock. The
// caller must Close the session.
func openSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	root, cfg, logger, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir(root)
	lock, err := store.AcquireLock(dataDir)
	if err != nil {
		return nil, err
	}

	chart := accounts.Load(cfg.AccountsPath(root), logger)
	rb := rules.Load(cfg.RulesPath(root), logger)
	cl := classifier.New(chart, rb)

	j := journal.New(cfg.JournalPath(root), chart, cl, logger)
	if err := j.Load(); err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("loading journal: %w", err)
	}

	return &session{
		root:       root,
		dataDir:    dataDir,
		cfg:        cfg,
		logger:     logger,
		out:        cmd.OutOrStdout(),
		lock:       lock,
		password:   opts.password,
		auth:       auth.New(cfg.Auth.Secret),
		chart:      chart,
		rules:      rb,
		classifier: cl,
		journal:    j,
		ledger:     ledger.Load(cfg.BalancesPath(root), logger),
	}, nil
}

func (s *session) Close() error {
	return s.lock.Release()
}

// authorize returns the process token, presenting --password on first use.
func (s *session) authorize(op string) (auth.Token, error) {
	if tok, ok := s.auth.Current(); ok {
		return tok, nil
	}
	if s.password == "" {
		return auth.Token{}, auth.Require(auth.Token{}, op)
	}
	tok, err := s.auth.Authorize(s.password)
	if err != nil {
		return auth.Token{}, fmt.Errorf("%s: %w", op, err)
	}
	return tok, nil
}

// audit appends one entry to the audit log. Failures are logged, not returned:
// the operation itself already succeeded.
func (s *session) audit(tok auth.Token, action, details, doc string) {
	entry := auditlog.Entry{
		Timestamp: time.Now(),
		Session:   tok.Session(),
		Action:    action,
		Details:   details,
		Documento: doc,
	}
	if err := auditlog.Append(s.dataDir, []auditlog.Entry{entry}); err != nil {
		s.logger.Warn("failed to write audit log", "action", action, "err", err)
	}
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// monthArg parses an optional YYYY-MM argument, defaulting to the current month.
func monthArg(args []string, now time.Time) (month, year int, err error) {
	if len(args) == 0 || args[0] == "" {
		return int(now.Month()), now.Year(), nil
	}
	year, month, err = id.ParseMonthKey(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("month %q: %w", args[0], err)
	}
	return month, year, nil
}

func indexArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return n, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}
