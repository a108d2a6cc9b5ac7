// Command ndbridge calls into the embedded array interpreter from the shell.
//
//	ndbridge call linalg.norm --arg '[3, 4]'
//	ndbridge iter --shape 2,3 --dtype int32
//	ndbridge explore --shape 3,4
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/runtime"
)

type globalFlags struct {
	config  string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ndbridge",
		Short:         "Call array functions in the embedded interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCallCmd(g), newIterCmd(g), newExploreCmd(g))
	return root
}

// open builds a Runtime from the global flags.
func (g *globalFlags) open(ctx context.Context) (*runtime.Runtime, error) {
	cfg := runtime.DefaultConfig()
	if g.config != "" {
		var err error
		if cfg, err = runtime.LoadConfig(g.config); err != nil {
			return nil, err
		}
	}
	logger, err := cfg.LoggerFor(g.verbose)
	if err != nil {
		return nil, err
	}
	rt, err := runtime.New(ctx, runtime.WithConfig(cfg), runtime.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Debug("runtime opened", zap.String("config", g.config))
	return rt, nil
}
