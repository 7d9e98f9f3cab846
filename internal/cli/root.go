// Package cli defines the shortsfactory command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ShortsFactory/internal/app"
	"ShortsFactory/internal/config"
	"ShortsFactory/internal/logging"
	"ShortsFactory/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo is called from main with values injected at link time.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

type globalFlags struct {
	configDir string
	profile   string
}

type runFlags struct {
	date          string
	skipScrape    bool
	skipSummarize bool
	noUpload      bool
	uploadOnly    bool
	force         bool
	top           int
	feeds         []string
}

// NewRootCmd builds the command tree. Reports go to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "shortsfactory",
		Short:         "Turn daily news or quotes into narrated vertical videos",
		Long:          "shortsfactory collects content, writes a narration script, synthesizes speech, renders a subtitled vertical video and optionally uploads it as a YouTube Short.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal outside local development.
			_ = godotenv.Load()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&g.configDir, "config-dir", "", "directory holding config.yaml and profiles/ (default $SHORTS_CONFIG_DIR, ./config, then the XDG config dir)")
	root.PersistentFlags().StringVar(&g.profile, "profile", "news", "profile to run (news, quotes or any profiles/<name>.yaml)")

	root.AddCommand(newRunCmd(g), newScheduleCmd(g), newVersionCmd())
	return root
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once for a date",
		Long:  "Run executes collect, transform, synthesize, subtitle, compose and publish in order, skipping stages whose artifacts for the date are already current.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.date != "" {
				if _, err := time.Parse(time.DateOnly, f.date); err != nil {
					return fmt.Errorf("--date %q: expected YYYY-MM-DD", f.date)
				}
			}
			if f.top < 0 {
				return fmt.Errorf("--top must not be negative")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := open(ctx, g)
			if err != nil {
				return err
			}
			defer application.Close()

			rep, err := application.Run(ctx, usecase.RunRequest{
				Date:          f.date,
				SkipCollect:   f.skipScrape,
				SkipTransform: f.skipSummarize,
				NoUpload:      f.noUpload,
				UploadOnly:    f.uploadOnly,
				Force:         f.force,
				Top:           f.top,
				Sources:       f.feeds,
			})
			if len(rep.Stages) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), rep.String())
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.date, "date", "", "run date as YYYY-MM-DD (default today in the scheduler timezone)")
	fl.BoolVar(&f.skipScrape, "skip-scrape", false, "skip collection and use stored items")
	fl.BoolVar(&f.skipSummarize, "skip-summarize", false, "skip script generation and use the stored script")
	fl.BoolVar(&f.noUpload, "no-upload", false, "do not publish this run")
	fl.BoolVar(&f.uploadOnly, "upload-only", false, "only publish the stored video for the date")
	fl.BoolVar(&f.force, "force", false, "re-run stages even when current artifacts exist")
	fl.IntVar(&f.top, "top", 0, "number of articles fed into the script (default summarizer.max_articles)")
	fl.StringSliceVar(&f.feeds, "feeds", nil, "comma separated source keys to collect from")
	cmd.MarkFlagsMutuallyExclusive("upload-only", "no-upload")
	cmd.MarkFlagsMutuallyExclusive("upload-only", "skip-scrape")
	cmd.MarkFlagsMutuallyExclusive("upload-only", "skip-summarize")
	return cmd
}

func newScheduleCmd(g *globalFlags) *cobra.Command {
	var noUpload bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline every day at scheduler.run_at",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := open(ctx, g)
			if err != nil {
				return err
			}
			defer application.Close()

			err = application.Schedule(ctx, usecase.RunRequest{NoUpload: noUpload})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "never publish scheduled runs")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shortsfactory %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func open(ctx context.Context, g *globalFlags) (*app.Application, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigDir: g.configDir, Profile: g.profile})
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(ctx, cfg, logger)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCmd(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
