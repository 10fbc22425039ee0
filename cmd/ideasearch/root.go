package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideasearch/internal/config"
	logpkg "github.com/kailas-cloud/ideasearch/internal/logger"
)

// globals is the state every subcommand shares after PersistentPreRunE.
type globals struct {
	env     string
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "ideasearch",
		Short: "Hybrid lexical and semantic search over innovation ideas",
		Long: `ideasearch ranks idea records with BM25+, vector similarity and reciprocal rank fusion.

Example usage:
  ideasearch serve                        # Start the HTTP API
  ideasearch index --file ideas.csv       # Index a CSV export
  ideasearch query "blockchain payments"  # Run one search and print JSON`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return g.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&g.env, "env", config.GetEnv(), "environment name (selects config/<env>.yaml)")
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "explicit config file (overrides --env)")

	root.AddCommand(
		newServeCmd(g),
		newIndexCmd(g),
		newQueryCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globals) init() error {
	var err error
	if g.cfgFile != "" {
		g.cfg, err = config.LoadFile(g.cfgFile)
	} else {
		g.cfg, err = config.Load(g.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	g.logger, err = logpkg.NewLogger(g.env, g.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}
