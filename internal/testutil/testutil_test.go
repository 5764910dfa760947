package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(Epoch, time.Second)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, int64(3), clock.Calls())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_Fixed(t *testing.T) {
	clock := NewFixedClock()
	for i := 0; i < 3; i++ {
		assert.Equal(t, Epoch, clock.Now())
	}
}

func TestStepClock_ConcurrentAccess(t *testing.T) {
	clock := NewStepClock(Epoch, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), clock.Calls())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("import-a", "import-b")

	assert.Equal(t, "import-a", gen.Generate())
	assert.Equal(t, "import-b", gen.Generate())
	assert.Equal(t, "import-3", gen.Generate())
	assert.Equal(t, "import-4", gen.Generate())
}

func TestSessionDir_WritesHeaderAndLines(t *testing.T) {
	dir := NewSessionDir(t).
		Runtime(map[string]string{"start": "1000", "iid": "1"}).
		Log("file.log", "1:/tmp/a").
		Path()

	data, err := os.ReadFile(filepath.Join(dir, "runtime.log"))
	require.NoError(t, err)
	assert.Equal(t, "# runtime.log\niid:1\nstart:1000\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "file.log"))
	require.NoError(t, err)
	assert.Equal(t, "# file.log\n1:/tmp/a\n", string(data))
}

func TestMinimalSession(t *testing.T) {
	s := MinimalSession(t, "4")
	for _, name := range []string{"runtime.log", "sysc.log", "file.log"} {
		_, err := os.Stat(filepath.Join(s.Path(), name))
		assert.NoError(t, err, name)
	}

	s.Remove("file.log")
	_, err := os.Stat(filepath.Join(s.Path(), "file.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestCSV(t *testing.T) {
	assert.Equal(t, "1,2,3", CSV("1", "2", "3"))
}
