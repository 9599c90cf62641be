// ABOUTME: Root Cobra command and global flags for the freewrite CLI.
// ABOUTME: Loads config, builds the logger, and opens and loads the entry index.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/2389-research/freewrite/internal/codec"
	"github.com/2389-research/freewrite/internal/config"
	"github.com/2389-research/freewrite/internal/insights"
	"github.com/2389-research/freewrite/internal/journal"
	"github.com/2389-research/freewrite/internal/logging"
	"github.com/2389-research/freewrite/internal/storage"
)

var version = "dev"

var (
	globalConfig *config.Config
	globalLogger *log.Logger
	globalIndex  *journal.Index
	logFile      io.Closer
	verbose      bool
	storeDir     string
)

var rootCmd = &cobra.Command{
	Use:     "freewrite",
	Short:   "Local-first freewriting journal with an optional AI collaborator",
	Version: version,
	Long: heredoc.Doc(`
		   FREEWRITE

		Write without stopping. Entries are plain markdown files in one
		directory; AI insights, favorites, and photos live beside them.

		Start a session with "freewrite new", then ask for insights with
		"freewrite analyze". Run "freewrite setup" to connect an AI collaborator.
	`),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		logger, err := buildLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		globalLogger = logger

		loc, err := cfg.GetLocation()
		if err != nil {
			return err
		}
		if storeDir != "" {
			cfg.Store.Dir = storeDir
		}
		dir, err := cfg.GetStoreDir()
		if err != nil {
			return fmt.Errorf("failed to resolve store directory: %w", err)
		}
		store, err := storage.NewDirStore(dir)
		if err != nil {
			return fmt.Errorf("failed to open entry store: %w", err)
		}

		opts := journal.Options{
			Codec:   codec.New(loc),
			Logger:  logger,
			Workers: cfg.GetPreviewWorkers(),
		}
		if cfg.HasAI() {
			client := insights.NewClient(cfg.GetAPIURL(), cfg.GetAPIKey(), cfg.GetModel(), logger)
			opts.Generator = client
			opts.Questioner = client
		}

		index := journal.New(store, opts)
		if _, err := index.LoadAll(); err != nil {
			return fmt.Errorf("failed to load entries: %w", err)
		}
		globalIndex = index
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&storeDir, "dir", "", "Entry directory (overrides store.dir; FREEWRITE_DIR still wins)")
}

// buildLogger writes to the dated log file when log.dir is set, otherwise to stderr.
func buildLogger(cfg *config.Config, stderr io.Writer) (*log.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}

	w := stderr
	dir, err := cfg.GetLogDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log directory: %w", err)
	}
	if dir != "" && !verbose {
		f, err := logging.OpenFile(dir)
		if err != nil {
			return nil, err
		}
		logFile = f
		w = f
	}

	logger, err := logging.New(w, level)
	if err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}
	return logger, nil
}

// stdinOrText returns text when set, otherwise everything on stdin.
func stdinOrText(cmd *cobra.Command, text string, set bool) (string, error) {
	if set {
		return text, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func readAttachment(path string) (*journal.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return &journal.Attachment{Data: data, Ext: photoExt(path)}, nil
}
