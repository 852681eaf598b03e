package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ai-grocery-checklist/internal/app"
	"ai-grocery-checklist/internal/config"
	"ai-grocery-checklist/internal/telegram"
	"ai-grocery-checklist/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "grocery-checklist",
	Short: "Turn meal plans and shopping notes into a categorized grocery checklist",
	Long: `grocery-checklist sends free-form meal plans or shopping notes to a
generative AI model and turns the reply into an editable, categorized
checklist. Run it once from the terminal, serve it to browsers, or run it
as a Telegram bot.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [notes...]",
	Short: "Generate a grocery list from notes, a file or a web page",
	Long: `Generate a categorized grocery list.

The notes are taken from the arguments, from --file (use - for stdin) or
from the readable text of the page at --url.`,
	RunE: runGenerate,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved list",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved list",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the checklist to browsers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records",
	Args:  cobra.NoArgs,
	RunE:  runMetricsCleanup,
}

var (
	inputFile   string
	inputURL    string
	saveResult  bool
	cleanupDays int
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "YAML config file (environment variables take precedence)")

	generateCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read notes from a file (- for stdin)")
	generateCmd.Flags().StringVar(&inputURL, "url", "", "Read notes from a web page")
	generateCmd.Flags().BoolVarP(&saveResult, "save", "s", false, "Save the generated list")
	generateCmd.MarkFlagsMutuallyExclusive("file", "url")

	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records for the last N days")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(metricsCleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and wires the application. The returned
// context is cancelled on SIGINT or SIGTERM.
func openApp() (context.Context, context.CancelFunc, *app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return ctx, stop, a, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop, a, err := openApp()
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	// The command line uses the default save slot.
	sess := a.Sessions.Get("")

	var notes string
	switch {
	case inputURL != "":
		clipped, err := a.ClipInput(ctx, sess, inputURL)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", inputURL, err)
		}
		if clipped.Title != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Using notes from "+clipped.Title))
		}
		notes = clipped.Text
	case inputFile != "":
		notes, err = readNotes(cmd.InOrStdin(), inputFile)
		if err != nil {
			return err
		}
	default:
		notes = strings.Join(args, " ")
	}

	if err := sess.Generate(ctx, notes); err != nil {
		logger.Debug("generation failed", zap.Error(err))
		return errors.New(app.Message(err))
	}

	fmt.Fprint(cmd.OutOrStdout(), renderList(sess.Snapshot()))

	if saveResult {
		saved, err := sess.Save(ctx)
		if err != nil {
			return errors.New(app.Message(err))
		}
		if saved {
			fmt.Fprintln(cmd.OutOrStdout(), noticeStyle.Render("List saved."))
		}
	}
	return nil
}

func readNotes(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, stop, a, err := openApp()
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	sess := a.Sessions.Get("")
	if err := sess.Load(ctx); err != nil {
		return errors.New(app.Message(err))
	}
	v := sess.Snapshot()
	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(v.Input))
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), renderList(v))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx, stop, a, err := openApp()
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	if err := a.Sessions.Get("").ClearSaved(ctx); err != nil {
		return errors.New(app.Message(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), noticeStyle.Render("Saved list deleted."))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop, a, err := openApp()
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	srv, err := web.NewServer(a, []byte(a.Config.SessionSecret))
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, ":"+a.Config.Port)
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop, a, err := openApp()
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	if a.Config.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	bot, err := telegram.NewBot(a)
	if err != nil {
		return err
	}
	return bot.Run(ctx, ":"+a.Config.Port)
}

func runMetricsCleanup(cmd *cobra.Command, args []string) error {
	ctx, stop, a, err := openApp()
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	if a.Backend.Usage == nil {
		return fmt.Errorf("metric history is only kept with the %s storage backend", config.BackendSQLite)
	}
	affected, err := a.Backend.Usage.Cleanup(ctx, cleanupDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
	return nil
}
