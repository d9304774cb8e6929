package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/observability"
	"github.com/hrygo/retain/internal/profile"
	"github.com/hrygo/retain/internal/timezone"
	"github.com/hrygo/retain/internal/version"
	"github.com/hrygo/retain/store"
	"github.com/hrygo/retain/store/db"
)

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "retain",
		Short: "Spaced-repetition review of questions, coding challenges and multiple-choice items.",
		Long: `retain schedules study items with the SM-2 algorithm.

Add questions, coding challenges and multiple-choice items, then run
"retain review" every day to work through what is due.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoStore] == "true" {
				return nil
			}
			return a.open(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "path to a config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("mode", "prod", `mode of retain, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory (default ~/.retain)")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, key := range []string{"mode", "data", "driver", "dsn"} {
		if err := a.config.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}
	a.config.SetEnvPrefix("retain")
	a.config.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.config.AutomaticEnv()

	rootCmd.AddCommand(
		newAddCommand(a),
		newReviewCommand(a),
		newDueCommand(a),
		newListCommand(a),
		newShowCommand(a),
		newEditCommand(a),
		newDeleteCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newStatsCommand(a),
		newVersionCommand(a),
	)
	return rootCmd
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string) int {
	a := newApp()
	defer a.close()

	rootCmd := newRootCommand(a)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return rerrors.ExitCode(err)
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

// open loads the profile and connects the store.
func (a *app) open(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.config.SetConfigFile(path)
		if err := a.config.ReadInConfig(); err != nil {
			return rerrors.InvalidArgument("failed to read config file %s: %v", path, err)
		}
	}

	p := &profile.Profile{
		Mode:   a.config.GetString("mode"),
		Data:   a.config.GetString("data"),
		Driver: a.config.GetString("driver"),
		DSN:    a.config.GetString("dsn"),
	}
	p.FromEnv()
	a.applyOverrides(p)
	err := p.Validate()
	if err != nil {
		return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "invalid configuration")
	}
	p.Version = version.GetCurrentVersion(p.Mode)
	a.profile = p
	if a.location, err = timezone.ParseTimezone(p.Timezone); err != nil {
		return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "invalid configuration")
	}
	a.logger = observability.NewLogger(cmd.ErrOrStderr(), p.Mode)

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return rerrors.Wrap(err, rerrors.ErrCodeInternal, "failed to open database")
	}
	a.store = store.New(driver, p)
	if err := a.store.Migrate(cmd.Context()); err != nil {
		return rerrors.Wrap(err, rerrors.ErrCodeInternal, "failed to migrate database")
	}
	return nil
}

// applyOverrides lets the config file and RETAIN_ variables seen by viper
// win over the profile's own environment lookup.
func (a *app) applyOverrides(p *profile.Profile) {
	c := a.config
	if c.IsSet("timezone") {
		p.Timezone = c.GetString("timezone")
	}
	if c.IsSet("max-daily-reviews") {
		p.MaxDailyReviews = c.GetInt("max-daily-reviews")
	}
	if c.IsSet("evaluator.enabled") {
		p.EvaluatorEnabled = c.GetBool("evaluator.enabled")
	}
	if c.IsSet("evaluator.api-key") {
		p.EvaluatorAPIKey = c.GetString("evaluator.api-key")
	}
	if c.IsSet("evaluator.base-url") {
		p.EvaluatorBaseURL = c.GetString("evaluator.base-url")
	}
	if c.IsSet("evaluator.model") {
		p.EvaluatorModel = c.GetString("evaluator.model")
	}
	if c.IsSet("evaluator.timeout") {
		if timeout, err := parseTimeout(c.GetString("evaluator.timeout")); err == nil {
			p.EvaluatorTimeout = timeout
		}
	}
}

// parseTimeout accepts a Go duration or a plain number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
