package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reid-worker-go/internal/models"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drainErr error
	closed   bool
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) IsConnected() bool { return !f.closed }
func (f *fakeConn) Drain() error      { f.drained = true; return f.drainErr }
func (f *fakeConn) Close()            { f.closed = true }

func TestPublishEvent(t *testing.T) {
	fc := &fakeConn{}
	s := newService(fc, "reid.events", "run-1", "reid-1", zerolog.Nop())

	obj := models.TrackedObject{ID: 4, Prediction: models.Prediction{Label: "person", Box: models.NewBox(1, 2, 3, 4)}}
	require.NoError(t, s.PublishEvent(models.NewIdentityEvent(models.IdentityEventEnter, "entry", 0, obj)))

	require.Len(t, fc.subjects, 1)
	assert.Equal(t, "reid.events.ENTER", fc.subjects[0])

	var got models.IdentityEvent
	require.NoError(t, json.Unmarshal(fc.payloads[0], &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "reid-1", got.WorkerID)
	assert.Equal(t, 4, got.TrackID)
	assert.Nil(t, got.GalleryID)

	published, failed := s.Stats()
	assert.Equal(t, int64(1), published)
	assert.Zero(t, failed)
}

func TestPublishEventError(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	s := newService(fc, "reid.events", "run-1", "reid-1", zerolog.Nop())

	err := s.PublishEvent(models.IdentityEvent{Type: models.IdentityEventExit})
	assert.Error(t, err)

	_, failed := s.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestShutdownFallsBackToClose(t *testing.T) {
	fc := &fakeConn{drainErr: errors.New("drain failed")}
	s := newService(fc, "reid.events", "run-1", "reid-1", zerolog.Nop())

	assert.True(t, s.IsConnected())
	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, fc.drained)
	assert.True(t, fc.closed)
	assert.False(t, s.IsConnected())
}

func TestPublishValue(t *testing.T) {
	fc := &fakeConn{}
	s := newService(fc, "reid.events", "run-1", "reid-1", zerolog.Nop())

	require.NoError(t, s.Publish("reid.recordings", map[string]int{"frames": 3}))
	assert.Equal(t, []string{"reid.recordings"}, fc.subjects)
	assert.JSONEq(t, `{"frames":3}`, string(fc.payloads[0]))

	assert.Error(t, s.Publish("reid.recordings", func() {}))
}
