// Package tests contains the harness used by the command tests: a fake
// process environment and a TestMain that checks for leaked goroutines.
package tests

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abitools/abilinker/cmd/state"
	"github.com/abitools/abilinker/lib/fsext"
	"github.com/abitools/abilinker/lib/testutils"
	"github.com/abitools/abilinker/ui/console"
)

// Main is a TestMain function that fails the test binary when goroutines
// outlive the tests.
func Main(m *testing.M) {
	exitCode := 1 // error out by default
	defer func() {
		os.Exit(exitCode)
	}()

	defer func() {
		// The logrus Writer() that the stdlib log is redirected to keeps a
		// pipe reader around.
		opt := goleak.IgnoreTopFunction("io.(*pipe).read")
		if err := goleak.Find(opt); err != nil {
			fmt.Println(err) //nolint:forbidigo
			exitCode = 3
		}
	}()

	exitCode = m.Run()
}

// GlobalTestState wraps a GlobalState whose outputs are buffers and whose
// filesystem lives in memory.
type GlobalTestState struct {
	*state.GlobalState
	Cancel func()

	Stdout, Stderr *bytes.Buffer
	LoggerHook     *testutils.LogHook

	Cwd string

	ExpectedExitCode int
}

type fileW struct {
	*bytes.Buffer
}

func (fileW) Fd() uintptr {
	return ^uintptr(0)
}

// NewGlobalTestState returns a GlobalTestState whose OSExit asserts that the
// process would exit with ExpectedExitCode.
func NewGlobalTestState(tb testing.TB) *GlobalTestState {
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	fs := fsext.NewMemMapFs()
	cwd := "/test/"
	require.NoError(tb, fs.MkdirAll(cwd, 0o755))

	logger, hook := testutils.NewLoggerWithHook(tb)
	logger.SetLevel(logrus.InfoLevel)

	ts := &GlobalTestState{
		Cwd:        cwd,
		Cancel:     cancel,
		LoggerHook: hook,
		Stdout:     new(bytes.Buffer),
		Stderr:     new(bytes.Buffer),
	}

	osExitCalled := false
	defaultOsExitHandle := func(exitCode int) {
		cancel()
		osExitCalled = true
		assert.Equal(tb, ts.ExpectedExitCode, exitCode)
	}

	tb.Cleanup(func() {
		if ts.ExpectedExitCode > 0 {
			// Ensure that, if we are testing for a non-zero exit code,
			// os.Exit() was actually called.
			require.True(tb, osExitCalled, "OSExit() was not called")
		}
	})

	defaultFlags := state.GetDefaultGlobalOptions()
	defaultFlags.NoColor = true

	ts.GlobalState = &state.GlobalState{
		Ctx:            ctx,
		FS:             fs,
		Getwd:          func() (string, error) { return cwd, nil },
		BinaryName:     "abilinker",
		CmdArgs:        []string{},
		Env:            map[string]string{},
		DefaultFlags:   defaultFlags,
		Flags:          defaultFlags,
		Console:        console.New(fileW{ts.Stdout}, fileW{ts.Stderr}, false, "dumb"),
		Stdin:          new(bytes.Buffer),
		OSExit:         defaultOsExitHandle,
		SignalNotify:   signal.Notify,
		SignalStop:     signal.Stop,
		Logger:         logger,
		FallbackLogger: testutils.NewLogger(tb).WithField("fallback", true),
	}
	return ts
}
