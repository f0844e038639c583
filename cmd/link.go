package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/abi/dump"
	"github.com/abitools/abilinker/cmd/state"
	"github.com/abitools/abilinker/errext"
	"github.com/abitools/abilinker/errext/exitcodes"
	"github.com/abitools/abilinker/linker"
	"github.com/abitools/abilinker/ui/console"
)

// cmdLink handles the `abilinker link` sub-command
type cmdLink struct {
	gs *state.GlobalState
}

func (c *cmdLink) run(cmd *cobra.Command, args []string) error {
	conf, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err = conf.Validate(args); err != nil {
		return err
	}
	warnOnBothGroundTruths(c.gs.Logger, conf)

	cwd, err := c.gs.Getwd()
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("could not determine the working directory: %w", err), exitcodes.InvalidConfig)
	}
	opts, err := conf.LinkOptions(args, cwd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.gs.Ctx)
	defer cancel()
	stopSignalHandling := handleInterruptSignals(c.gs, cancel)
	defer stopSignalHandling()

	logger := c.gs.Logger.WithField("component", "linker")
	stats, err := linker.Run(ctx, c.gs.FS, opts, logger)
	if err != nil {
		return err
	}

	if !c.gs.Flags.Quiet {
		printLinkSummary(c.gs, opts, stats)
	}
	return nil
}

func (c *cmdLink) loadConfig(cmd *cobra.Command) (Config, error) {
	cliConf, err := getConfig(cmd.Flags())
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return getConsolidatedConfig(c.gs, cliConf)
}

// warnOnBothGroundTruths tells the user that the version script is ignored.
func warnOnBothGroundTruths(logger logrus.FieldLogger, conf Config) {
	if conf.SoFile.String != "" && conf.VersionScript.String != "" {
		logger.WithFields(logrus.Fields{
			"so":             conf.SoFile.String,
			"version_script": conf.VersionScript.String,
		}).Warn("Both a shared object and a version script were given, the version script is ignored")
	}
}

// handleInterruptSignals cancels the run on the first SIGINT or SIGTERM. The
// returned function stops the handling.
func handleInterruptSignals(gs *state.GlobalState, cancel func()) func() {
	sigC := make(chan os.Signal, 2)
	done := make(chan struct{})
	gs.SignalNotify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigC:
			gs.Logger.WithField("sig", sig).Debug("Stopping abilinker in response to signal...")
			cancel()
		case <-done:
		}
	}()

	return func() {
		close(done)
		gs.SignalStop(sigC)
	}
}

func printLinkSummary(gs *state.GlobalState, opts linker.Options, stats linker.Stats) {
	con := gs.Console
	con.Print(con.Separator() + "\n")
	con.PrintTable([][2]string{
		{"output", fmt.Sprintf("%s (%s, %s)", opts.Output, opts.OutputFormat, dump.CompressionFor(opts.Output))},
		{"inputs", fmt.Sprintf("%d dumps, %d workers", stats.Dumps, stats.Workers)},
		{"exported symbols", fmt.Sprintf("%s (%d functions, %d global vars)",
			opts.Source, stats.ElfFunctions, stats.ElfObjects)},
		{"wildcard matches", fmt.Sprintf("%d functions, %d global vars",
			stats.WildcardFunctions, stats.WildcardGlobalVars)},
		{"exported headers", headerCountText(con, stats.ExportedHeaderCount)},
	})
	con.Print(con.Separator() + "\n")

	rows := make([][2]string, 0, abi.NumKinds+1)
	for _, k := range abi.AllKinds {
		cs := stats.Categories[k]
		if cs.Considered == 0 {
			continue
		}
		rows = append(rows, [2]string{
			k.String(),
			fmt.Sprintf("%d/%d emitted, %d outside exported headers, %d not exported",
				cs.Emitted, cs.Considered, cs.DroppedByProvenance, cs.DroppedBySymbol),
		})
	}
	rows = append(rows, [2]string{"total", strconv.Itoa(stats.Emitted()) + " elements"})
	con.PrintTable(rows)
}

func headerCountText(con *console.Console, n int) string {
	if n == 0 {
		return con.Warn("any (no header filtering)")
	}
	return strconv.Itoa(n)
}

func getCmdLink(gs *state.GlobalState) *cobra.Command {
	c := &cmdLink{gs: gs}

	linkCmd := &cobra.Command{
		Use:   "link [flags] <dump-files>...",
		Short: "Link ABI dumps into the ABI of a library",
		Long: `Link ABI dumps into the ABI of a library.

The dumps of all translation units are merged and reduced to the types, functions
and global variables the library exports. The exported symbols come from either a
version script or the dynamic symbol table of the built shared object.`,
		Example: `
  # Link against a version script for arm64 at API level 30
  abilinker link -o libfoo.lsdump --version-script libfoo.map.txt --arch arm64 --api 30 *.sdump

  # Link against a shared object, keeping only what the public headers declare
  abilinker link -o libfoo.lsdump.gz --so libfoo.so -I include -I gen/include *.sdump`[1:],
		Args: cobra.MinimumNArgs(1),
		RunE: c.run,
	}

	linkCmd.Flags().SortFlags = false
	linkCmd.Flags().AddFlagSet(linkFlagSet())
	return linkCmd
}
