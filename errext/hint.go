package errext

import (
	"slices"
	"strings"
)

// Hint is a short suggestion on how the user can fix an error.
type Hint string

// Hints attached to configuration and input errors.
const (
	HintGroundTruth Hint = "pass --version-script or --so"
	HintOutput      Hint = "pass -o with the path of the linked dump"
	HintDumpFiles   Hint = "list the .sdump files to link after the flags"
	HintFormat      Hint = "use one of json, yaml or auto (input only)"
	HintHeaderDirs  Hint = "check the -I directories or pass --no-filter"
	HintDumpRead    Hint = "check that the dump was written by the header ABI dumper in the selected input format"
)

// HasHint is an error with an attached Hint.
type HasHint interface {
	error
	Hint() Hint
}

// WithHint attaches hint to err. A nil err stays nil.
func WithHint(err error, hint Hint) error {
	if err == nil {
		return nil
	}
	return hintedError{err, hint}
}

// Hints collects the distinct hints attached anywhere in the tree of err,
// outermost first. Errors combined with errors.Join contribute their hints in
// order.
func Hints(err error) []Hint {
	var hints []Hint
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if herr, ok := err.(HasHint); ok && !slices.Contains(hints, herr.Hint()) { //nolint:errorlint
			hints = append(hints, herr.Hint())
		}
		switch u := err.(type) { //nolint:errorlint
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return hints
}

// JoinHints renders hints the way they are logged.
func JoinHints(hints []Hint) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = string(h)
	}
	return strings.Join(parts, "; ")
}

type hintedError struct {
	error
	hint Hint
}

func (he hintedError) Unwrap() error {
	return he.error
}

func (he hintedError) Hint() Hint {
	return he.hint
}

var _ HasHint = hintedError{}
