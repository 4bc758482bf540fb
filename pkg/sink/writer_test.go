package sink

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter(t *testing.T) {
	t.Run("records end with a blank line", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf)
		require.NoError(t, w.WriteRecord("1, 2", "2"))
		require.NoError(t, w.WriteRecord("single"))
		require.NoError(t, w.Close())

		assert.Equal(t, "1, 2\n2\n\nsingle\n\n", buf.String())
		assert.Equal(t, int64(2), w.Records())
	})

	t.Run("concurrent records do not interleave", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, w.WriteRecord(fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)))
			}()
		}
		wg.Wait()
		require.NoError(t, w.Flush())

		records := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
		require.Len(t, records, 20)
		for _, r := range records {
			lines := strings.Split(r, "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, strings.TrimPrefix(lines[0], "a"), strings.TrimPrefix(lines[1], "b"))
		}
	})

	t.Run("write after close", func(t *testing.T) {
		w := New(&bytes.Buffer{})
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		require.ErrorIs(t, w.WriteRecord("x"), ErrClosed)
		require.ErrorIs(t, w.Flush(), ErrClosed)
	})

	t.Run("failures surface on flush", func(t *testing.T) {
		w := New(failingWriter{})
		require.NoError(t, w.WriteRecord("buffered"))
		require.Error(t, w.Flush())
	})
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "closest_coords.txt")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord("hello"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n\n", string(data))
}
