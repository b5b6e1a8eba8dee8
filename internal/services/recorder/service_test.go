package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeWriter struct {
	path   string
	frames int
	closed bool
}

func (w *fakeWriter) Write(gocv.Mat) error { w.frames++; return nil }
func (w *fakeWriter) IsOpened() bool       { return true }
func (w *fakeWriter) Close() error         { w.closed = true; return nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordedPublish struct {
	subjects []string
	metas    []ChunkMetadata
}

func (r *recordedPublish) Publish(subject string, data interface{}) error {
	r.subjects = append(r.subjects, subject)
	r.metas = append(r.metas, data.(ChunkMetadata))
	return nil
}

func setup(t *testing.T, maxChunks int) (*Service, *fakeClock, *[]*fakeWriter, *recordedPublish) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	var writers []*fakeWriter
	open := func(path, _ string, _ float64, _, _ int) (Writer, error) {
		require.NoError(t, os.WriteFile(path, []byte("chunk"), 0o644))
		w := &fakeWriter{path: path}
		writers = append(writers, w)
		return w, nil
	}
	pub := &recordedPublish{}
	opts := Options{Dir: t.TempDir(), ChunkDuration: 10 * time.Second, MaxChunks: maxChunks}
	return newService(opts, "run-1", open, pub, clock.now, zerolog.Nop()), clock, &writers, pub
}

func frame(w, h int) gocv.Mat {
	return gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
}

func TestChunkRotation(t *testing.T) {
	s, clock, writers, pub := setup(t, 0)
	f := frame(64, 96)
	defer f.Close()

	require.NoError(t, s.WriteFrame(f))
	clock.advance(5 * time.Second)
	require.NoError(t, s.WriteFrame(f))
	require.Len(t, *writers, 1)

	clock.advance(5 * time.Second)
	require.NoError(t, s.WriteFrame(f))
	require.Len(t, *writers, 2)
	assert.True(t, (*writers)[0].closed)
	assert.Equal(t, 2, (*writers)[0].frames)
	assert.Equal(t, filepath.Join(s.opts.Dir, "chunk_20240501T120000_0001.avi"), (*writers)[0].path)
	assert.Equal(t, filepath.Join(s.opts.Dir, "chunk_20240501T120010_0002.avi"), (*writers)[1].path)

	require.Len(t, pub.metas, 1)
	assert.Equal(t, "reid.recordings", pub.subjects[0])
	assert.Equal(t, int64(2), pub.metas[0].FrameCount)
	assert.Equal(t, "run-1", pub.metas[0].RunID)
	assert.InDelta(t, 10.0, pub.metas[0].Duration, 1e-9)
	assert.Equal(t, int64(5), pub.metas[0].FileSize)

	status := s.Status()
	assert.True(t, status.Recording)
	assert.Equal(t, 2, status.Chunks)
	assert.Equal(t, int64(3), status.Frames)
}

func TestSizeChangeStartsNewChunk(t *testing.T) {
	s, _, writers, _ := setup(t, 0)
	a := frame(64, 96)
	defer a.Close()
	b := frame(32, 48)
	defer b.Close()

	require.NoError(t, s.WriteFrame(a))
	require.NoError(t, s.WriteFrame(b))
	assert.Len(t, *writers, 2)
}

func TestOldChunksAreRemoved(t *testing.T) {
	s, clock, _, _ := setup(t, 2)
	f := frame(16, 16)
	defer f.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.WriteFrame(f))
		clock.advance(10 * time.Second)
	}

	chunks, err := filepath.Glob(filepath.Join(s.opts.Dir, "chunk_*.avi"))
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Contains(t, chunks, s.Status().CurrentFile)
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _, writers, pub := setup(t, 0)
	f := frame(16, 16)
	defer f.Close()

	require.NoError(t, s.WriteFrame(f))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, (*writers)[0].closed)
	assert.Len(t, pub.metas, 1)
	assert.False(t, s.Status().Recording)
	assert.ErrorIs(t, s.WriteFrame(f), ErrRecorderClosed)
}
