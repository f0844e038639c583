package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/abitools/abilinker/abi/dump"
	"github.com/abitools/abilinker/cmd/state"
	"github.com/abitools/abilinker/errext"
	"github.com/abitools/abilinker/errext/exitcodes"
	"github.com/abitools/abilinker/lib/fsext"
	"github.com/abitools/abilinker/linker"
)

// Config holds the settings of the link and symbols commands. A zero field
// is unset, so Apply can layer the sources on top of each other.
type Config struct {
	Output             null.String `json:"output" envconfig:"ABI_LINKER_OUTPUT"`
	VersionScript      null.String `json:"versionScript" envconfig:"ABI_LINKER_VERSION_SCRIPT"`
	SoFile             null.String `json:"so" envconfig:"ABI_LINKER_SO"`
	ExportedHeaderDirs []string    `json:"exportedHeaderDirs" envconfig:"ABI_LINKER_EXPORTED_HEADER_DIRS"`
	Arch               null.String `json:"arch" envconfig:"ABI_LINKER_ARCH"`
	API                null.String `json:"api" envconfig:"ABI_LINKER_API"`
	NoFilter           null.Bool   `json:"noFilter" envconfig:"ABI_LINKER_NO_FILTER"`
	InputFormat        null.String `json:"inputFormat" envconfig:"ABI_LINKER_INPUT_FORMAT"`
	OutputFormat       null.String `json:"outputFormat" envconfig:"ABI_LINKER_OUTPUT_FORMAT"`
}

// NewConfig returns the defaults. They are not Valid, so any other source
// overrides them.
func NewConfig() Config {
	return Config{
		API:          null.NewString("current", false),
		InputFormat:  null.NewString("json", false),
		OutputFormat: null.NewString("json", false),
	}
}

// Apply overrides c with every set field of cfg.
func (c Config) Apply(cfg Config) Config {
	if cfg.Output.Valid {
		c.Output = cfg.Output
	}
	if cfg.VersionScript.Valid {
		c.VersionScript = cfg.VersionScript
	}
	if cfg.SoFile.Valid {
		c.SoFile = cfg.SoFile
	}
	if len(cfg.ExportedHeaderDirs) > 0 {
		c.ExportedHeaderDirs = cfg.ExportedHeaderDirs
	}
	if cfg.Arch.Valid {
		c.Arch = cfg.Arch
	}
	if cfg.API.Valid {
		c.API = cfg.API
	}
	if cfg.NoFilter.Valid {
		c.NoFilter = cfg.NoFilter
	}
	if cfg.InputFormat.Valid {
		c.InputFormat = cfg.InputFormat
	}
	if cfg.OutputFormat.Valid {
		c.OutputFormat = cfg.OutputFormat
	}
	return c
}

// HeaderDirs returns the exported header dirs, or none with --no-filter.
func (c Config) HeaderDirs() []string {
	if c.NoFilter.Bool {
		return nil
	}
	return c.ExportedHeaderDirs
}

// GroundTruthSource decides between the shared object and the version
// script.
func (c Config) GroundTruthSource(cwd string) (linker.GroundTruthSource, error) {
	src, err := linker.NewGroundTruthSource(
		absPath(cwd, c.VersionScript.String), absPath(cwd, c.SoFile.String),
		c.Arch.String, c.API.String, c.HeaderDirs(), cwd,
	)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, errext.HintGroundTruth),
			exitcodes.InvalidConfig,
		)
	}
	return src, nil
}

// Validate checks the settings needed for linking dumpFiles.
func (c Config) Validate(dumpFiles []string) error {
	var errs []error
	if c.Output.String == "" {
		errs = append(errs, errext.WithHint(errors.New("an output file needs to be specified with -o"), errext.HintOutput))
	}
	if len(dumpFiles) == 0 {
		errs = append(errs, errext.WithHint(errors.New("at least one dump file needs to be specified"), errext.HintDumpFiles))
	}
	if c.VersionScript.String == "" && c.SoFile.String == "" {
		errs = append(errs, errext.WithHint(linker.ErrNoGroundTruth, errext.HintGroundTruth))
	}
	if _, err := dump.ParseFormat(c.InputFormat.String); err != nil {
		errs = append(errs, errext.WithHint(fmt.Errorf("input format: %w", err), errext.HintFormat))
	}
	if f, err := dump.ParseFormat(c.OutputFormat.String); err != nil {
		errs = append(errs, errext.WithHint(fmt.Errorf("output format: %w", err), errext.HintFormat))
	} else if f == dump.FormatAuto {
		errs = append(errs, errext.WithHint(errors.New("output format: auto is only valid for input dumps"), errext.HintFormat))
	}
	if len(errs) == 0 {
		return nil
	}
	return errext.WithExitCodeIfNone(errors.Join(errs...), exitcodes.InvalidConfig)
}

// LinkOptions builds the options of a linking run. Validate must have
// succeeded.
func (c Config) LinkOptions(dumpFiles []string, cwd string) (linker.Options, error) {
	src, err := c.GroundTruthSource(cwd)
	if err != nil {
		return linker.Options{}, err
	}
	in, err := dump.ParseFormat(c.InputFormat.String)
	if err != nil {
		return linker.Options{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	out, err := dump.ParseFormat(c.OutputFormat.String)
	if err != nil {
		return linker.Options{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	paths := make([]string, len(dumpFiles))
	for i, p := range dumpFiles {
		paths[i] = absPath(cwd, p)
	}
	return linker.Options{
		DumpFiles:    paths,
		Output:       absPath(cwd, c.Output.String),
		InputFormat:  in,
		OutputFormat: out,
		Source:       src,
	}, nil
}

// absPath resolves a non-empty path against cwd.
func absPath(cwd, path string) string {
	if path == "" {
		return ""
	}
	return fsext.Abs(cwd, path)
}

func groundTruthFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.String("version-script", "", "`path` of the version script listing the exported symbols")
	flags.String("so", "", "`path` of the shared object whose dynamic symbols are exported, wins over --version-script")
	flags.String("arch", "", "architecture the version script is evaluated for, e.g. arm64")
	flags.String("api", "current", "API level the version script is evaluated for")
	flags.StringArrayP("include", "I", nil, "exported header `dir`, can be repeated")
	flags.Bool("no-filter", false, "do not filter elements by the header they were declared in")
	return flags
}

func linkFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringP("output", "o", "", "`path` of the linked ABI dump, a .gz, .zst or .br suffix compresses it")
	flags.AddFlagSet(groundTruthFlagSet())
	flags.String("input-format", "json", "format of the input dumps: json, yaml or auto")
	flags.String("output-format", "json", "format of the linked dump: json or yaml")
	return flags
}

// getConfig reads the flags that were set on the command line.
func getConfig(flags *pflag.FlagSet) (Config, error) {
	conf := Config{
		Output:        getNullString(flags, "output"),
		VersionScript: getNullString(flags, "version-script"),
		SoFile:        getNullString(flags, "so"),
		Arch:          getNullString(flags, "arch"),
		API:           getNullString(flags, "api"),
		NoFilter:      getNullBool(flags, "no-filter"),
		InputFormat:   getNullString(flags, "input-format"),
		OutputFormat:  getNullString(flags, "output-format"),
	}
	if flags.Changed("include") {
		dirs, err := flags.GetStringArray("include")
		if err != nil {
			return conf, err
		}
		conf.ExportedHeaderDirs = dirs
	}
	return conf, nil
}

func getNullString(flags *pflag.FlagSet, key string) null.String {
	f := flags.Lookup(key)
	if f == nil {
		return null.String{}
	}
	return null.NewString(f.Value.String(), f.Changed)
}

func getNullBool(flags *pflag.FlagSet, key string) null.Bool {
	v, err := flags.GetBool(key)
	if err != nil {
		return null.Bool{}
	}
	return null.NewBool(v, flags.Changed(key))
}

// readDiskConfig reads the JSON config file given with --config, if any.
func readDiskConfig(gs *state.GlobalState) (Config, error) {
	path := gs.Flags.ConfigFilePath
	if path == "" {
		return Config{}, nil
	}
	if cwd, err := gs.Getwd(); err == nil {
		path = fsext.Abs(cwd, path)
	}
	data, err := fsext.ReadFile(gs.FS, path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config file %s does not exist", path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("couldn't read config file %s: %w", path, err)
	}
	var conf Config
	if err = json.Unmarshal(data, &conf); err != nil {
		return Config{}, fmt.Errorf("couldn't parse config file %s: %w", path, err)
	}
	return conf, nil
}

// readEnvConfig reads the ABI_LINKER_* variables of the process environment.
func readEnvConfig(env map[string]string) (Config, error) {
	var conf Config
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	return conf, err
}

// getConsolidatedConfig layers the defaults, the config file, the
// environment and the command line, in increasing priority.
func getConsolidatedConfig(gs *state.GlobalState, cliConf Config) (Config, error) {
	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	envConf, err := readEnvConfig(gs.Env)
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return NewConfig().Apply(fileConf).Apply(envConf).Apply(cliConf), nil
}
