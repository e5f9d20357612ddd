package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lllypuk/collabfront/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// deps are the seams the commands reach the outside world through.
type deps struct {
	loadConfig  func(path string) (*config.Config, error)
	openStore   storeOpener
	newNotifier func(serverURL string, timeout time.Duration) notificationSender
}

func defaultDeps() deps {
	return deps{
		loadConfig:  loadConfig,
		openStore:   openStore,
		newNotifier: newHTTPNotifier,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// session is the state shared by subcommands once the root has run.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the collabctl command tree.
func NewRootCmd(d deps) *cobra.Command {
	var configPath string
	var logLevel string
	s := &session{}

	root := &cobra.Command{
		Use:          "collabctl",
		Short:        "Manage tracked collab domains and push notifications",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := d.loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel == "" {
				logLevel = cfg.Log.Level
			}
			s.cfg = cfg
			s.logger = newLogger(cmd.ErrOrStderr(), logLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or TOML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		NewDomainsCmd(s, d.openStore),
		NewNotifyCmd(s, d.newNotifier),
	)

	return root
}

// newLogger returns an slog logger rendered by charmbracelet/log.
func newLogger(w io.Writer, level string) *slog.Logger {
	handler := clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           parseLevel(level),
		Prefix:          "collabctl",
	})
	return slog.New(handler)
}

// parseLevel converts a string level to clog.Level.
func parseLevel(level string) clog.Level {
	switch level {
	case "debug":
		return clog.DebugLevel
	case "warn":
		return clog.WarnLevel
	case "error":
		return clog.ErrorLevel
	default:
		return clog.InfoLevel
	}
}

// commandContext returns the command's context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
