package cmd

import (
	"fmt"

	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/cmd/state"
	"github.com/abitools/abilinker/errext"
	"github.com/abitools/abilinker/errext/exitcodes"
	"github.com/abitools/abilinker/linker"
)

type cmdSymbols struct {
	gs       *state.GlobalState
	demangle bool
}

type symbolEntry struct {
	Name      string               `yaml:"name"`
	Binding   abi.ElfSymbolBinding `yaml:"binding,omitempty"`
	Demangled string               `yaml:"demangled,omitempty"`
}

type symbolsReport struct {
	Source            string        `yaml:"source"`
	Functions         []symbolEntry `yaml:"functions"`
	GlobalVars        []symbolEntry `yaml:"global_vars"`
	FunctionPatterns  []string      `yaml:"function_patterns,omitempty"`
	GlobalVarPatterns []string      `yaml:"global_var_patterns,omitempty"`
	ExportedHeaders   []string      `yaml:"exported_headers,omitempty"`
}

func (c *cmdSymbols) run(cmd *cobra.Command, _ []string) error {
	cliConf, err := getConfig(cmd.Flags())
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	conf, err := getConsolidatedConfig(c.gs, cliConf)
	if err != nil {
		return err
	}
	warnOnBothGroundTruths(c.gs.Logger, conf)

	cwd, err := c.gs.Getwd()
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("could not determine the working directory: %w", err), exitcodes.InvalidConfig)
	}
	src, err := conf.GroundTruthSource(cwd)
	if err != nil {
		return err
	}

	truth, err := src.Resolve(c.gs.FS, c.gs.Logger.WithField("component", "symbols"))
	if err != nil {
		return errext.WithExitCodeIfNone(
			fmt.Errorf("failed to resolve exported symbols from %s: %w", src, err),
			exitcodes.GroundTruthFailed,
		)
	}

	return c.gs.Console.PrintYAML(c.report(src, truth))
}

func (c *cmdSymbols) report(src linker.GroundTruthSource, truth *linker.GroundTruth) symbolsReport {
	r := symbolsReport{
		Source:            src.String(),
		Functions:         []symbolEntry{},
		GlobalVars:        []symbolEntry{},
		FunctionPatterns:  truth.FunctionPatterns,
		GlobalVarPatterns: truth.GlobalVarPatterns,
		ExportedHeaders:   truth.ExportedHeaders.Sorted(),
	}
	for _, sym := range truth.ElfSymbols() {
		e := symbolEntry{Name: sym.SymbolName()}
		switch s := sym.(type) {
		case abi.ElfFunction:
			e.Binding = s.Binding
			e.Demangled = c.demangled(s.Name)
			r.Functions = append(r.Functions, e)
		case abi.ElfObject:
			e.Binding = s.Binding
			e.Demangled = c.demangled(s.Name)
			r.GlobalVars = append(r.GlobalVars, e)
		}
	}
	return r
}

// demangled returns the demangled form of an Itanium C++ name, or "" for C
// names and when --demangle is not set.
func (c *cmdSymbols) demangled(name string) string {
	if !c.demangle {
		return ""
	}
	res, err := demangle.ToString(name)
	if err != nil {
		return ""
	}
	return res
}

func getCmdSymbols(gs *state.GlobalState) *cobra.Command {
	c := &cmdSymbols{gs: gs}

	symbolsCmd := &cobra.Command{
		Use:   "symbols",
		Short: "Print the symbols a library exports",
		Long: `Print the symbols a library exports, as YAML.

The symbols are read the same way the link command reads them: from the dynamic
symbol table of a shared object, or from a version script evaluated for an
architecture and API level.`,
		Example: `
  abilinker symbols --version-script libfoo.map.txt --arch arm64 --api 30
  abilinker symbols --so libfoo.so --demangle`[1:],
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	symbolsCmd.Flags().SortFlags = false
	symbolsCmd.Flags().AddFlagSet(groundTruthFlagSet())
	symbolsCmd.Flags().BoolVar(&c.demangle, "demangle", false, "add the demangled name of C++ symbols")
	return symbolsCmd
}
