package linker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/errext"
	"github.com/abitools/abilinker/errext/exitcodes"
	"github.com/abitools/abilinker/lib/elfsym"
	"github.com/abitools/abilinker/lib/fsext"
	"github.com/abitools/abilinker/lib/headers"
	"github.com/abitools/abilinker/lib/versionscript"
)

// ErrNoGroundTruth is returned when neither a version script nor a shared
// object was configured.
var ErrNoGroundTruth = errors.New("one of a version script or a shared object file needs to be specified")

// GroundTruth is the set of symbols a library exports, together with the
// headers considered public.
type GroundTruth struct {
	Functions         map[string]abi.ElfFunction
	GlobalVars        map[string]abi.ElfObject
	FunctionPatterns  []string
	GlobalVarPatterns []string

	// ExportedHeaders is only populated from a shared object source. An
	// empty set disables provenance filtering.
	ExportedHeaders headers.Set
}

// ElfSymbols returns the exported functions followed by the exported
// global variables, each sorted by name.
func (gt *GroundTruth) ElfSymbols() []abi.ElfSymbol {
	res := make([]abi.ElfSymbol, 0, len(gt.Functions)+len(gt.GlobalVars))
	for _, name := range sortedKeys(gt.Functions) {
		res = append(res, gt.Functions[name])
	}
	for _, name := range sortedKeys(gt.GlobalVars) {
		res = append(res, gt.GlobalVars[name])
	}
	return res
}

// GroundTruthSource is where the exported symbols come from. It is either a
// *VersionScriptSource or an *ElfSource.
type GroundTruthSource interface {
	Resolve(fs fsext.Fs, logger logrus.FieldLogger) (*GroundTruth, error)
	String() string

	groundTruthSource()
}

// VersionScriptSource reads exported symbols, including wildcards, from a
// linker version script.
type VersionScriptSource struct {
	Path string
	Arch string
	API  string
}

// ElfSource reads exported symbols from the dynamic symbol table of a
// shared object and the public headers from the exported include dirs.
type ElfSource struct {
	Path               string
	ExportedHeaderDirs []string
	// Cwd resolves relative header dirs to absolute paths.
	Cwd string
}

var (
	_ GroundTruthSource = &VersionScriptSource{}
	_ GroundTruthSource = &ElfSource{}
)

// NewGroundTruthSource decides once which source a run uses. A shared
// object takes precedence over a version script; with neither,
// ErrNoGroundTruth is returned.
func NewGroundTruthSource(versionScript, soFile, arch, api string, headerDirs []string, cwd string) (GroundTruthSource, error) {
	switch {
	case soFile != "":
		return &ElfSource{Path: soFile, ExportedHeaderDirs: headerDirs, Cwd: cwd}, nil
	case versionScript != "":
		return &VersionScriptSource{Path: versionScript, Arch: arch, API: api}, nil
	}
	return nil, ErrNoGroundTruth
}

func (*VersionScriptSource) groundTruthSource() {}

func (s *VersionScriptSource) String() string {
	return "version script " + s.Path
}

// Resolve parses the version script.
func (s *VersionScriptSource) Resolve(fs fsext.Fs, logger logrus.FieldLogger) (*GroundTruth, error) {
	p, err := versionscript.NewParser(s.Arch, s.API)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	res, err := p.ParseFile(fs, s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version script: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":                s.Path,
		"functions":           len(res.Functions),
		"global_vars":         len(res.GlobalVars),
		"function_patterns":   len(res.FunctionPatterns),
		"global_var_patterns": len(res.GlobalVarPatterns),
	}).Debug("Parsed version script")

	return &GroundTruth{
		Functions:         res.Functions,
		GlobalVars:        res.GlobalVars,
		FunctionPatterns:  res.FunctionPatterns,
		GlobalVarPatterns: res.GlobalVarPatterns,
		ExportedHeaders:   make(headers.Set),
	}, nil
}

func (*ElfSource) groundTruthSource() {}

func (s *ElfSource) String() string {
	return "shared object " + s.Path
}

// Resolve collects the exported headers and reads the symbol table.
func (s *ElfSource) Resolve(fs fsext.Fs, logger logrus.FieldLogger) (*GroundTruth, error) {
	exported, err := headers.Collect(fs, s.Cwd, s.ExportedHeaderDirs)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(errext.WithHint(err, errext.HintHeaderDirs), exitcodes.InvalidConfig)
	}
	logger.WithField("headers", len(exported)).Debug("Collected exported headers")

	syms, err := elfsym.ReadFile(fs, s.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse so file: %w", err)
	}

	return &GroundTruth{
		Functions:       syms.Functions,
		GlobalVars:      syms.GlobalVars,
		ExportedHeaders: exported,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
