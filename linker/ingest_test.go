package linker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/testutils"
)

// fakeReader serves one record type and one function per path, plus a type
// shared by every dump.
type fakeReader struct {
	fail  map[string]error
	reads atomic.Int64
}

func (r *fakeReader) ReadDump(path string) (*abi.Graph, error) {
	r.reads.Add(1)
	if err := r.fail[path]; err != nil {
		return nil, err
	}
	g := abi.NewGraph()
	_ = g.Add(&abi.RecordType{TypeInfo: abi.TypeInfo{Key: "struct " + path, Source: path + ".h"}})
	_ = g.Add(&abi.BuiltinType{TypeInfo: abi.TypeInfo{Key: "int"}})
	_ = g.Add(&abi.Function{Key: "_Z" + path, Source: path + ".h"})
	return g, nil
}

func dumpPaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("unit%03d", i)
	}
	return paths
}

func TestIngesterWorkers(t *testing.T) {
	t.Parallel()

	in := NewIngester(&fakeReader{}, testutils.NewLogger(t))
	in.MaxWorkers = 4

	testCases := []struct{ dumps, workers int }{
		{0, 1},
		{1, 1},
		{7, 1},
		{8, 1},
		{14, 2},
		{21, 3},
		{100, 4},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.workers, in.Workers(tc.dumps), "%d dumps", tc.dumps)
	}

	in.BatchSize = 0
	assert.Equal(t, 2, in.Workers(14), "a non-positive batch size falls back to the default")
}

func TestIngestKeySetIndependentOfScheduling(t *testing.T) {
	t.Parallel()

	paths := dumpPaths(53)
	var expected [abi.NumKinds][]string

	for _, batch := range []int{1, 2, 7, 10, 53, 100} {
		for _, workers := range []int{1, 2, 3, 8} {
			batch, workers := batch, workers
			t.Run(fmt.Sprintf("batch=%d,workers=%d", batch, workers), func(t *testing.T) {
				r := &fakeReader{}
				in := NewIngester(r, testutils.NewLogger(t))
				in.BatchSize = batch
				in.MaxWorkers = workers

				g, err := in.Ingest(context.Background(), paths)
				require.NoError(t, err)
				assert.Equal(t, int64(len(paths)), r.reads.Load(), "every dump is read exactly once")

				for _, k := range abi.AllKinds {
					if expected[k] == nil {
						expected[k] = g.Keys(k)
						continue
					}
					assert.Equal(t, expected[k], g.Keys(k), k.String())
				}
				assert.Len(t, g.Keys(abi.KindRecordType), len(paths))
				assert.Equal(t, []string{"int"}, g.Keys(abi.KindBuiltinType))
			})
		}
	}
}

func TestIngestIdempotent(t *testing.T) {
	t.Parallel()

	in := NewIngester(&fakeReader{}, testutils.NewLogger(t))
	once, err := in.Ingest(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	twice, err := in.Ingest(context.Background(), []string{"a", "b", "a", "b", "b"})
	require.NoError(t, err)

	for _, k := range abi.AllKinds {
		assert.Equal(t, once.Keys(k), twice.Keys(k), k.String())
	}
}

func TestIngestEmpty(t *testing.T) {
	t.Parallel()

	g, err := NewIngester(&fakeReader{}, testutils.NewLogger(t)).Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Total())
}

func TestIngestReadFailure(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("unexpected end of JSON input")
	paths := dumpPaths(40)

	for _, failing := range []string{paths[0], paths[20], paths[39]} {
		failing := failing
		t.Run(failing, func(t *testing.T) {
			t.Parallel()

			r := &fakeReader{fail: map[string]error{failing: errBroken}}
			in := NewIngester(r, testutils.NewLogger(t))
			in.BatchSize = 3
			in.MaxWorkers = 4

			g, err := in.Ingest(context.Background(), paths)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, errBroken)
			assert.Contains(t, err.Error(), failing)
		})
	}
}

func TestIngestCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngester(&fakeReader{}, testutils.NewLogger(t)).Ingest(ctx, dumpPaths(30))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
