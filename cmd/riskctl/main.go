// Package main provides riskctl, a command-line front end to the Risk
// table interpreter.
package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/config"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/risk"
	"github.com/cory-johannsen/tabletop/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	seed     uint64
	logLevel string
}

// interpreter builds an Interpreter from the global flags.
func (o *rootOptions) interpreter() (*risk.Interpreter, *zap.Logger, error) {
	logger, err := observability.NewLogger(config.LoggingConfig{Level: o.logLevel, Format: "console"}, "riskctl")
	if err != nil {
		return nil, nil, err
	}
	src := dice.NewSource()
	if o.seed != 0 {
		src = dice.NewRandSource(o.seed)
	}
	return risk.NewInterpreter(src, logger), logger, nil
}

// resolve runs one line through a fresh interpreter and prints the reply.
func (o *rootOptions) resolve(cmd *cobra.Command, line string) error {
	interp, logger, err := o.interpreter()
	if err != nil {
		return err
	}
	defer logger.Sync()
	fmt.Fprintln(cmd.OutOrStdout(), interp.ResolveCommand(line))
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Roll Risk battles and deal territories",
		Long: `riskctl answers Risk table commands the same way the server's risk log does.

Available subcommands:
  resolve   - Answer any table line, including unrecognised ones
  battle    - Roll a battle given a code such as 31
  countries - Deal the 42 territories between 2 to 5 players
  howto     - Print the command grammar`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Uint64Var(&opts.seed, "seed", 0, "dice seed (0 seeds from the clock)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   "resolve <line...>",
			Short: "Answer a table line",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.resolve(cmd, strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:       "battle <code>",
			Short:     "Roll a battle",
			Long:      "Roll a battle. The code's first digit is the attacking dice, the second the defending dice.",
			Args:      cobra.ExactArgs(1),
			ValidArgs: risk.BattleCodes,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !slices.Contains(risk.BattleCodes, args[0]) {
					return fmt.Errorf("unknown battle code %q: want one of %s", args[0], strings.Join(risk.BattleCodes, ", "))
				}
				return opts.resolve(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "countries <players>",
			Short: "Deal the territories",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 2 || n > 5 {
					return fmt.Errorf("players must be between 2 and 5, got %q", args[0])
				}
				return opts.resolve(cmd, "countries "+args[0])
			},
		},
		&cobra.Command{
			Use:   "howto",
			Short: "Print the command grammar",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), risk.HowTo)
				return nil
			},
		},
	)
	return root
}
