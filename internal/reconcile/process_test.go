package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTicks = ticks{clktck: 100, sysbtime: 1000}

func TestPartialMerge_HigherRankOverwrites(t *testing.T) {
	p := partial{elapsed: ptr(2.0), utime: ptr(0.5), cmdline: "low"}
	p.merge(partial{elapsed: ptr(2.5), cmdline: "high"})

	assert.Equal(t, 2.5, *p.elapsed)
	assert.Equal(t, 0.5, *p.utime)
	assert.Equal(t, "high", p.cmdline)
}

func TestPartialMerge_EmptyStringsNeverErase(t *testing.T) {
	p := partial{cmdline: "/bin/cat", environ: "A=1"}
	p.merge(partial{cmdline: "", environ: ""})

	assert.Equal(t, "/bin/cat", p.cmdline)
	assert.Equal(t, "A=1", p.environ)
}

func TestPartialMerge_PPIDReparenting(t *testing.T) {
	tests := []struct {
		name string
		have *int64
		src  int64
		want int64
	}{
		{"unset", nil, 1, 1},
		{"real parent kept", ptr(int64(40)), 1, 40},
		{"real parent replaced by real parent", ptr(int64(40)), 41, 41},
		{"init replaced", ptr(int64(1)), 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := partial{ppid: tt.have}
			p.merge(partial{ppid: ptr(tt.src)})
			assert.Equal(t, tt.want, *p.ppid)
		})
	}
}

func TestPartial_ToRecordDefaultsToZero(t *testing.T) {
	p := partial{cmdline: "x"}
	rec := p.toRecord(3, 42, 1000)

	assert.Equal(t, int64(3), rec.SessionID)
	assert.Equal(t, int64(42), rec.PID)
	assert.Equal(t, int64(0), rec.PPID)
	assert.False(t, rec.Live)
	assert.Zero(t, rec.BTime)
	assert.Zero(t, rec.Elapsed)
	assert.Equal(t, "x", rec.Cmdline)
}

func TestParseProcLine(t *testing.T) {
	pid, p, err := parseProcLine("2|#|9|#|3|#|150|#|1004|#|30|#|40|#|/bin/a b|#|K=V|#|x", testTicks)
	require.NoError(t, err)

	assert.Equal(t, int64(9), pid)
	assert.Equal(t, int64(3), *p.ppid)
	assert.True(t, *p.live)
	assert.Equal(t, 1001.5, *p.birth)
	assert.Equal(t, 2.5, *p.elapsed)
	assert.Equal(t, 0.3, *p.utime)
	assert.Equal(t, 0.4, *p.stime)
	assert.Equal(t, "/bin/a b", p.cmdline)
	assert.Equal(t, "K=V|#|x", p.environ)
	assert.Nil(t, p.res)

	_, p, err = parseProcLine("4|#|9|#|3|#|0|#|1000|#|0|#|0|#||#|", testTicks)
	require.NoError(t, err)
	assert.False(t, *p.live)

	for _, bad := range []string{
		"4|#|9|#|3",
		"5|#|9|#|3|#|0|#|1000|#|0|#|0|#||#|",
		"x|#|9|#|3|#|0|#|1000|#|0|#|0|#||#|",
	} {
		_, _, err := parseProcLine(bad, testTicks)
		assert.Error(t, err, bad)
	}
}

func TestParsePtraceLine(t *testing.T) {
	pid, p, err := parsePtraceLine("5,1,0,1002,50,25,/bin/cat,A=1,B=2", testTicks)
	require.NoError(t, err)

	assert.Equal(t, int64(5), pid)
	assert.Equal(t, 1000.0, *p.birth)
	assert.Equal(t, 2.0, *p.elapsed)
	assert.Equal(t, 0.5, *p.utime)
	assert.Equal(t, 0.25, *p.stime)
	assert.Equal(t, "A=1,B=2", p.environ)
	assert.Nil(t, p.live)
	assert.Nil(t, p.res)

	_, _, err = parsePtraceLine("5,1,0,1002,50,25,/bin/cat", testTicks)
	assert.Error(t, err)
}

func TestParseTaskstatLine(t *testing.T) {
	pid, p, err := parseTaskstatLine("5,1,1,3,999.5,2.5,/bin/cat", ticks{})
	require.NoError(t, err)

	assert.Equal(t, int64(5), pid)
	assert.True(t, *p.live)
	assert.Equal(t, int64(3), *p.res)
	assert.Equal(t, 999.5, *p.birth)
	assert.Equal(t, 2.5, *p.elapsed)
	assert.Nil(t, p.utime)
	assert.Equal(t, "", p.environ)

	_, p, err = parseTaskstatLine("5,1,0,0,1000,1,/bin/cat,PATH=/bin,HOME=/", ticks{})
	require.NoError(t, err)
	assert.Equal(t, "/bin/cat", p.cmdline)
	assert.Equal(t, "PATH=/bin,HOME=/", p.environ)

	_, _, err = parseTaskstatLine("5,1,0,0,1000,NaN,/bin/cat", ticks{})
	assert.Error(t, err)
}

func TestProcessTable_RecordsSortedByPID(t *testing.T) {
	pt := processTable{}
	pt.merge(30, partial{})
	pt.merge(2, partial{})
	pt.merge(17, partial{})
	pt.merge(2, partial{cmdline: "again"})

	recs := pt.records(1, 0)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(2), recs[0].PID)
	assert.Equal(t, "again", recs[0].Cmdline)
	assert.Equal(t, int64(17), recs[1].PID)
	assert.Equal(t, int64(30), recs[2].PID)
}
