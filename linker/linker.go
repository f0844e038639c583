// Package linker links the ABI dumps of a library's translation units into
// the ABI of the library: it merges the dumps and keeps only the elements
// that belong to the library's exported surface.
package linker

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/abi/dump"
)

// CategoryStats counts what happened to the elements of one category.
type CategoryStats struct {
	Considered          int
	DroppedByProvenance int
	DroppedBySymbol     int
	Emitted             int
}

// Stats summarizes a linking run.
type Stats struct {
	Dumps      int
	Workers    int
	Categories [abi.NumKinds]CategoryStats

	ElfFunctions        int
	ElfObjects          int
	WildcardFunctions   int
	WildcardGlobalVars  int
	ExportedHeaderCount int
}

// Emitted returns the number of elements written across all categories.
func (s *Stats) Emitted() int {
	n := 0
	for _, c := range s.Categories {
		n += c.Emitted
	}
	return n
}

// SymbolFilter decides whether an element with the given linker set key is
// exported.
type SymbolFilter func(key string) bool

// Linker filters a merged graph down to the exported ABI.
type Linker struct {
	truth            *GroundTruth
	functionMatcher  *Matcher
	globalVarMatcher *Matcher
	logger           logrus.FieldLogger

	stats Stats
}

// New returns a Linker for truth. The wildcard patterns are compiled once
// here.
func New(truth *GroundTruth, logger logrus.FieldLogger) (*Linker, error) {
	fm, err := NewMatcher(truth.FunctionPatterns)
	if err != nil {
		return nil, fmt.Errorf("function patterns: %w", err)
	}
	gm, err := NewMatcher(truth.GlobalVarPatterns)
	if err != nil {
		return nil, fmt.Errorf("global variable patterns: %w", err)
	}

	if !fm.Empty() || !gm.Empty() {
		logger.WithFields(logrus.Fields{
			"function_patterns":   fm.String(),
			"global_var_patterns": gm.String(),
		}).Debug("Compiled wildcard patterns")
	}

	l := &Linker{
		truth:            truth,
		functionMatcher:  fm,
		globalVarMatcher: gm,
		logger:           logger,
	}
	l.stats.ElfFunctions = len(truth.Functions)
	l.stats.ElfObjects = len(truth.GlobalVars)
	l.stats.ExportedHeaderCount = len(truth.ExportedHeaders)
	return l, nil
}

// Stats returns the counters of the elements linked so far.
func (l *Linker) Stats() Stats {
	s := l.stats
	s.WildcardFunctions = len(l.functionMatcher.Matched())
	s.WildcardGlobalVars = len(l.globalVarMatcher.Matched())
	return s
}

// AddElfSymbols hands every ground truth symbol to dst, whether or not a
// dump describes it.
func (l *Linker) AddElfSymbols(dst dump.Writer) error {
	for _, sym := range l.truth.ElfSymbols() {
		if err := dst.AddElfSymbol(sym); err != nil {
			return fmt.Errorf("failed to add ELF symbol %s to the linked dump: %w", sym.SymbolName(), err)
		}
	}
	return nil
}

// Link writes the exported elements of g to dst: every type category in a
// fixed order, then functions, then global variables.
func (l *Linker) Link(g *abi.Graph, dst dump.Writer) error {
	if err := l.LinkTypes(g, dst); err != nil {
		return err
	}
	if err := l.LinkFunctions(g, dst); err != nil {
		return err
	}
	return l.LinkGlobalVars(g, dst)
}

// LinkTypes links the nine type categories. Types have no symbols, so only
// the provenance filter applies to them.
func (l *Linker) LinkTypes(g *abi.Graph, dst dump.Writer) error {
	for _, k := range abi.TypeKinds {
		if err := l.linkDecl(dst, k, g.Elements(k), noSymbolFilter); err != nil {
			return err
		}
	}
	return nil
}

// LinkFunctions links the functions that are exported by name or by one of
// the function wildcards.
func (l *Linker) LinkFunctions(g *abi.Graph, dst dump.Writer) error {
	return l.linkDecl(dst, abi.KindFunction, g.Elements(abi.KindFunction), func(key string) bool {
		_, ok := l.truth.Functions[key]
		return ok || l.functionMatcher.Match(key)
	})
}

// LinkGlobalVars links the global variables that are exported by name or by
// one of the variable wildcards.
func (l *Linker) LinkGlobalVars(g *abi.Graph, dst dump.Writer) error {
	return l.linkDecl(dst, abi.KindGlobalVar, g.Elements(abi.KindGlobalVar), func(key string) bool {
		_, ok := l.truth.GlobalVars[key]
		return ok || l.globalVarMatcher.Match(key)
	})
}

func noSymbolFilter(string) bool { return true }
