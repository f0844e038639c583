// Package console writes the human facing output of the command line tool.
package console

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Default terminal width in characters.
const defaultTermWidth = 80

// Console enables synced writing to stdout and stderr.
type Console struct {
	IsTTY          bool
	Stdout, Stderr OSFileW

	outMx          *sync.Mutex
	stdout, stderr *consoleWriter
	theme          *theme
}

// New returns the pointer to a new Console value. Colors are only enabled
// when both outputs are terminals and colorize is true.
func New(stdout, stderr OSFileW, colorize bool, termType string) *Console {
	outMx := &sync.Mutex{}
	outCW := newConsoleWriter(stdout, outMx, termType, colorize)
	errCW := newConsoleWriter(stderr, outMx, termType, colorize)
	isTTY := outCW.isTTY && errCW.isTTY

	var th *theme
	if isTTY && colorize {
		th = &theme{
			foreground: newColor(color.FgCyan),
			faint:      newColor(color.Faint),
			warning:    newColor(color.FgYellow),
		}
	}

	return &Console{
		IsTTY:  isTTY,
		Stdout: outCW,
		Stderr: errCW,
		outMx:  outMx,
		stdout: outCW,
		stderr: errCW,
		theme:  th,
	}
}

// ApplyTheme adds ANSI color escape sequences to s if themes are enabled;
// otherwise it returns s unchanged.
func (c *Console) ApplyTheme(s string) string {
	if c.colorized() {
		return c.theme.foreground.Sprint(s)
	}
	return s
}

// Faint renders s dimmed if themes are enabled.
func (c *Console) Faint(s string) string {
	if c.colorized() {
		return c.theme.faint.Sprint(s)
	}
	return s
}

// Warn renders s in the warning color if themes are enabled.
func (c *Console) Warn(s string) string {
	if c.colorized() {
		return c.theme.warning.Sprint(s)
	}
	return s
}

// Print writes s to stdout.
func (c *Console) Print(s string) {
	_, _ = fmt.Fprint(c.Stdout, s)
}

// Printf writes s to stdout, formatted with optional arguments.
func (c *Console) Printf(s string, a ...interface{}) {
	_, _ = fmt.Fprintf(c.Stdout, s, a...)
}

// PrintYAML marshals v to YAML, and writes the result to stdout. It returns an
// error if marshalling fails.
func (c *Console) PrintYAML(v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal YAML: %w", err)
	}
	c.Print(string(data))
	return nil
}

// PrintTable writes rows as right aligned keys followed by their values.
func (c *Console) PrintTable(rows [][2]string) {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}

	var b strings.Builder
	for _, r := range rows {
		key := strings.Repeat(" ", width-len(r[0])) + r[0] + ":"
		fmt.Fprintf(&b, "  %s %s\n", c.Faint(key), c.ApplyTheme(r[1]))
	}
	c.Print(b.String())
}

// Separator returns a horizontal rule as wide as the terminal, capped at the
// default width.
func (c *Console) Separator() string {
	width, err := c.TermWidth()
	if err != nil || width > defaultTermWidth {
		width = defaultTermWidth
	}
	return c.Faint(strings.Repeat("-", width))
}

// TermWidth returns the terminal window width in characters. If the window size
// lookup fails, or if we're not running in a TTY (interactive terminal), the
// default value of 80 will be returned. err will be non-nil if the lookup fails.
func (c *Console) TermWidth() (int, error) {
	if !c.IsTTY {
		return defaultTermWidth, nil
	}

	width, _, err := term.GetSize(int(c.stdout.Fd()))
	if !(width > 0) || err != nil {
		return defaultTermWidth, err
	}
	return width, nil
}

// StdoutIsTTY reports whether stdout is a terminal.
func (c *Console) StdoutIsTTY() bool { return c.stdout.isTTY }

// StderrIsTTY reports whether stderr is a terminal.
func (c *Console) StderrIsTTY() bool { return c.stderr.isTTY }

func (c *Console) colorized() bool {
	return c.theme != nil
}

// OSFile is a subset of the functionality implemented by os.File.
type OSFile interface {
	Fd() uintptr
}

// OSFileW is the writer variant of OSFile, typically representing os.Stdout and
// os.Stderr.
type OSFileW interface {
	io.Writer
	OSFile
}

type theme struct {
	foreground *color.Color
	faint      *color.Color
	warning    *color.Color
}

// A writer that syncs writes with a mutex and, if the output is a TTY, clears
// before newlines. Escape sequences are stripped when colors are off and
// translated for the Windows console otherwise.
type consoleWriter struct {
	OSFileW
	w     io.Writer
	isTTY bool
	mutex *sync.Mutex
}

func newConsoleWriter(out OSFileW, mx *sync.Mutex, termType string, colorize bool) *consoleWriter {
	isTTY := termType != "dumb" && (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()))

	var w io.Writer = out
	switch f, isFile := out.(*os.File); {
	case !colorize:
		w = colorable.NewNonColorable(out)
	case isFile:
		w = colorable.NewColorable(f)
	}
	return &consoleWriter{out, w, isTTY, mx}
}

func (w *consoleWriter) Write(p []byte) (n int, err error) {
	origLen := len(p)
	if w.isTTY {
		// Erase till the end of line with each new line.
		p = bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\x1b', '[', '0', 'K', '\n'})
	}

	w.mutex.Lock()
	n, err = w.w.Write(p)
	w.mutex.Unlock()

	if err != nil && n < origLen {
		return n, err
	}
	return origLen, err
}

// newColor returns the requested color with the given attributes.
func newColor(attributes ...color.Attribute) *color.Color {
	c := color.New(attributes...)
	c.EnableColor()
	return c
}
