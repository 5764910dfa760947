package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/sysc"
)

func TestThroughput_ReadIsBytesPerSecond(t *testing.T) {
	e := New(seedStore(t))

	got, err := e.Throughput(context.Background(), "read", "pid", queryir.Attrs{"iid": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []Throughput{
		{Key: 5, Work: 300, Elapsed: 1.5, Rate: 200},
		{Key: 6, Work: 300, Elapsed: 3.0, Rate: 100},
	}, got)
}

func TestThroughput_OtherOpsCountCalls(t *testing.T) {
	e := New(seedStore(t))

	got, err := e.Throughput(context.Background(), "open", "fid", nil)
	require.NoError(t, err)
	assert.Equal(t, []Throughput{
		{Key: 1, Work: 1, Elapsed: 0.5, Rate: 2},
		{Key: 3, Work: 1, Elapsed: 0, Rate: 0},
	}, got)
}

func TestThroughput_OverridesSyscallAttribute(t *testing.T) {
	e := New(seedStore(t))
	attrs := queryir.Attrs{"sysc": "write", "iid": int64(1)}

	got, err := e.Throughput(context.Background(), "read", "fid", attrs)
	require.NoError(t, err)
	assert.Equal(t, []Throughput{
		{Key: 1, Work: 300, Elapsed: 1.5, Rate: 200},
		{Key: 2, Work: 300, Elapsed: 3.0, Rate: 100},
	}, got)
	assert.Equal(t, "write", attrs["sysc"], "caller attrs must not change")
}

func TestThroughput_Errors(t *testing.T) {
	e := New(seedStore(t))
	ctx := context.Background()

	_, err := e.Throughput(ctx, "teleport", "pid", nil)
	assert.ErrorIs(t, err, sysc.ErrUnknownName)

	_, err = e.Throughput(ctx, "read", "sysc", nil)
	assert.ErrorContains(t, err, "cannot group by")
}

func TestSummary(t *testing.T) {
	e := New(seedStore(t))

	got, err := e.Summary(context.Background(), queryir.Attrs{"iid": int64(1)})
	require.NoError(t, err)
	require.Len(t, got, 3)

	read := got[0]
	assert.Equal(t, sysc.Read, read.Sysc)
	assert.Equal(t, "read", read.Name)
	assert.Equal(t, int64(3), read.Count)
	assert.InDelta(t, 4.5, read.ElapsedSum, 1e-12)
	assert.InDelta(t, 1.5, read.ElapsedAvg, 1e-12)
	require.NotNil(t, read.IO)
	assert.Equal(t, int64(600), read.IO.Bytes)
	assert.InDelta(t, 200, read.IO.LengthAvg, 1e-12)
	assert.InDelta(t, 100.0/3, read.IO.OffsetAvg, 1e-12)

	write := got[1]
	assert.Equal(t, sysc.Write, write.Sysc)
	require.NotNil(t, write.IO)
	assert.Equal(t, int64(50), write.IO.Bytes)
	assert.Equal(t, 0.0, write.IO.LengthStddev)

	open := got[2]
	assert.Equal(t, sysc.Open, open.Sysc)
	assert.Equal(t, int64(2), open.Count)
	assert.Nil(t, open.IO)
}

func TestSummary_Empty(t *testing.T) {
	e := New(seedStore(t))

	got, err := e.Summary(context.Background(), queryir.Attrs{"iid": int64(99)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcesses(t *testing.T) {
	e := New(seedStore(t))

	tests := []struct {
		name  string
		attrs queryir.Attrs
		want  []int64
	}{
		{"no attributes lists every process", nil, []int64{5, 6, 7, 8}},
		{"unknown attributes only", queryir.Attrs{"color": "red"}, []int64{5, 6, 7, 8}},
		{"syscall only", queryir.Attrs{"sysc": "open"}, []int64{5, 7}},
		{"proc only", queryir.Attrs{"live": true}, []int64{6, 7}},
		{"both tables intersect", queryir.Attrs{"sysc": "read", "live": true}, []int64{6}},
		{"shared attribute constrains both", queryir.Attrs{"iid": int64(1), "sysc": "read"}, []int64{5, 6}},
		{"no match", queryir.Attrs{"sysc": "unlink", "live": true}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Processes(context.Background(), tt.attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntersectSorted(t *testing.T) {
	assert.Equal(t, []int64{2, 4}, intersectSorted([]int64{1, 2, 3, 4}, []int64{2, 4, 6}))
	assert.Equal(t, []int64{}, intersectSorted(nil, []int64{1}))
}
