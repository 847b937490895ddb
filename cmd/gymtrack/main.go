// Package main provides the CLI entrypoint for gymtrack.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/gymtrack/internal/config"
	"github.com/verte-zerg/gymtrack/internal/export"
	"github.com/verte-zerg/gymtrack/internal/logging"
	"github.com/verte-zerg/gymtrack/internal/stats"
	"github.com/verte-zerg/gymtrack/internal/statsui"
	"github.com/verte-zerg/gymtrack/internal/store"
	"github.com/verte-zerg/gymtrack/internal/tui"
	"github.com/verte-zerg/gymtrack/internal/wizard"
)

const (
	defaultLogLevel      = "info"
	defaultTickMs        = 100
	defaultPenaltyBaseMs = int64(120000)
)

var (
	dbPath   string
	logLevel string

	runTickMs        int
	runPenaltyBaseMs int64
	runRedisAddr     string
	runRedisChannel  string

	resultsActivity string
	resultsSubject  string
	resultsSince    string
	resultsPlain    bool

	exportFormat string
	exportOut    string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gymtrack",
		Short:         "Live timing and observation for PE classes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// loadFileConfig merges the config file into flags the user did not set.
func loadFileConfig(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	s := fileCfg.Session
	applyStringConfig(cmd, "db", &dbPath, s.DB)
	applyStringConfig(cmd, "log-level", &logLevel, s.LogLevel)
	applyIntConfig(cmd, "tick-ms", &runTickMs, s.TickMs)
	applyInt64Config(cmd, "penalty-base-ms", &runPenaltyBaseMs, s.PenaltyBaseMs)
	applyStringConfig(cmd, "redis-addr", &runRedisAddr, s.RedisAddr)
	applyStringConfig(cmd, "redis-channel", &runRedisChannel, s.RedisChannel)
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return err
	}
	if runTickMs <= 0 {
		return fmt.Errorf("--tick-ms must be > 0")
	}
	if runPenaltyBaseMs < 0 {
		return fmt.Errorf("--penalty-base-ms must be >= 0")
	}
	return nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <activity.toml>",
		Short: "Track an activity live",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunCmd,
	}
	cmd.Flags().IntVar(&runTickMs, "tick-ms", defaultTickMs, "clock refresh interval in milliseconds")
	cmd.Flags().Int64Var(&runPenaltyBaseMs, "penalty-base-ms", defaultPenaltyBaseMs, "search time allowed per checkpoint tier")
	cmd.Flags().StringVar(&runRedisAddr, "redis-addr", "", "publish results to this redis server")
	cmd.Flags().StringVar(&runRedisChannel, "redis-channel", export.DefaultRedisChannel, "redis channel for result announcements")
	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	if err := loadFileConfig(cmd); err != nil {
		return err
	}
	def, err := config.LoadActivity(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, logFile, err := logging.OpenFile(config.DefaultLogPath(), logging.Options{Level: logLevel})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			// Best-effort close of the log file.
			_ = cerr
		}
	}()

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	sinks := export.MultiSink{st}
	if runRedisAddr != "" {
		client, err := export.DialRedis(ctx, runRedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, results are stored locally only", "addr", runRedisAddr, "err", err)
			logErrf("warning: %v\n", err)
		} else {
			defer func() {
				if cerr := client.Close(); cerr != nil {
					logger.Warn("failed to close redis client", "err", cerr)
				}
			}()
			sinks = append(sinks, export.NewRedisPublisher(client, runRedisChannel))
		}
	}

	session, err := openSession(ctx, def, st, runPenaltyBaseMs, logger, sinks)
	if err != nil {
		return err
	}
	logger.Info("session started", "activity", def.Activity.ID, "session", session.ID(), "subjects", len(def.Roster))

	m := tui.NewModel(ctx, session,
		tui.WithRepository(st),
		tui.WithLogger(logger),
		tui.WithTick(time.Duration(runTickMs)*time.Millisecond),
	)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.SaveErr(); err != nil {
		return err
	}
	logger.Info("session saved", "activity", def.Activity.ID, "session", session.ID())
	return nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an activity file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInitCmd,
	}
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdin) {
		return fmt.Errorf("init needs an interactive terminal")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var answers wizard.Answers
	file, err := wizard.Run(ctx, &answers)
	if err != nil {
		return err
	}
	path := config.DefaultActivityPath(file.ID)
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteActivity(path, file); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nStart with: gymtrack run %s\n", path, path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Browse saved results",
		Args:  cobra.NoArgs,
		RunE:  runResultsCmd,
	}
	cmd.Flags().StringVar(&resultsActivity, "activity", "", "activity id filter")
	cmd.Flags().StringVar(&resultsSubject, "subject", "", "student id filter")
	cmd.Flags().StringVar(&resultsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&resultsPlain, "plain", false, "print a table instead of the browser")
	return cmd
}

func runResultsCmd(cmd *cobra.Command, _ []string) error {
	if err := loadFileConfig(cmd); err != nil {
		return err
	}
	filter := store.ResultFilter{ActivityID: resultsActivity, SubjectID: resultsSubject}
	if resultsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", resultsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if !resultsPlain && isTerminal(os.Stdout) {
		program := tea.NewProgram(statsui.NewModel(ctx, st, filter), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run results TUI: %w", err)
		}
		return nil
	}
	records, err := st.ListResults(ctx, filter)
	if err != nil {
		return err
	}
	return stats.RenderResults(cmd.OutOrStdout(), records, terminalWidth(os.Stdout))
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <activity.toml>",
		Short: "Print per-student statistics from the last saved session",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportCmd,
	}
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	session, closeStore, err := restoreSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeStore()

	title := fmt.Sprintf("%s  elapsed %s", session.Activity().Name, stats.FormatMs(session.Elapsed()))
	return stats.RenderReport(cmd.OutOrStdout(), title, reportRows(session.ExportSubjects()))
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <activity.toml>",
		Short: "Export the last saved session as CSV or Parquet",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv or parquet)")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format != "csv" && format != "parquet" {
		return fmt.Errorf("--format must be csv or parquet, got %q", exportFormat)
	}
	session, closeStore, err := restoreSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeStore()

	table := export.BuildTable(session.Activity(), session.ExportSubjects())
	if exportOut == "" || exportOut == "-" {
		return writeTable(cmd.OutOrStdout(), format, table)
	}
	return writeTableFile(exportOut, format, table)
}

func writeTableFile(path, format string, table export.Table) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()
	return writeTable(f, format, table)
}

func writeTable(w io.Writer, format string, table export.Table) error {
	if format == "parquet" {
		return export.WriteParquet(w, table)
	}
	return export.WriteCSV(w, table)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# gymtrack configuration
# Uncomment a value to enable it. CLI flags override config values.

[session]
# db = %q
# log-level = %q          # debug, info, warn or error
# tick-ms = %d              # Clock refresh interval
# penalty-base-ms = %d   # Search time allowed per checkpoint tier
# redis-addr = "localhost:6379"
# redis-channel = %q
`,
		config.DefaultDBPath(),
		defaultLogLevel,
		defaultTickMs,
		defaultPenaltyBaseMs,
		export.DefaultRedisChannel,
	)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// terminalWidth returns 0 when f is not a terminal.
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
