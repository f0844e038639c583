package linker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abitools/abilinker/abi/dump"
	"github.com/abitools/abilinker/errext"
	"github.com/abitools/abilinker/errext/exitcodes"
	"github.com/abitools/abilinker/lib/fsext"
)

// Options configures a linking run.
type Options struct {
	DumpFiles    []string
	Output       string
	InputFormat  dump.Format
	OutputFormat dump.Format
	Source       GroundTruthSource
}

// Run resolves the ground truth, ingests every dump, filters the merged
// graph and writes the linked dump. The output is only written once
// everything else succeeded. Returned errors carry an exit code.
func Run(ctx context.Context, fs fsext.Fs, opts Options, logger logrus.FieldLogger) (Stats, error) {
	if opts.Source == nil {
		return Stats{}, errext.WithExitCodeIfNone(ErrNoGroundTruth, exitcodes.InvalidConfig)
	}
	start := time.Now()

	truth, err := opts.Source.Resolve(fs, logger)
	if err != nil {
		return Stats{}, errext.WithExitCodeIfNone(
			fmt.Errorf("failed to resolve exported symbols from %s: %w", opts.Source, err),
			exitcodes.GroundTruthFailed,
		)
	}

	l, err := New(truth, logger)
	if err != nil {
		return Stats{}, errext.WithExitCodeIfNone(err, exitcodes.GroundTruthFailed)
	}

	w, err := dump.NewFileWriter(fs, opts.Output, opts.OutputFormat)
	if err != nil {
		return Stats{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if err = l.AddElfSymbols(w); err != nil {
		return Stats{}, errext.WithExitCodeIfNone(err, exitcodes.LinkFailed)
	}

	reader := dump.NewFileReader(fs, opts.InputFormat, truth.ExportedHeaders)
	in := NewIngester(reader, logger)
	graph, err := in.Ingest(ctx, opts.DumpFiles)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Stats{}, &errext.InterruptError{Reason: "linking was interrupted before all dumps were read"}
		}
		return Stats{}, errext.WithExitCodeIfNone(errext.WithHint(err, errext.HintDumpRead), exitcodes.DumpReadFailed)
	}
	logger.WithFields(logrus.Fields{
		"dumps":    len(opts.DumpFiles),
		"elements": graph.Total(),
		"elapsed":  time.Since(start),
	}).Debug("Merged dumps")

	if err = l.Link(graph, w); err != nil {
		return Stats{}, errext.WithExitCodeIfNone(fmt.Errorf("failed to link elements: %w", err), exitcodes.LinkFailed)
	}
	if err = w.Dump(); err != nil {
		return Stats{}, errext.WithExitCodeIfNone(err, exitcodes.DumpWriteFailed)
	}

	stats := l.Stats()
	stats.Dumps = len(opts.DumpFiles)
	stats.Workers = in.Workers(len(opts.DumpFiles))
	return stats, nil
}
