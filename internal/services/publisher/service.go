package publisher

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/services/publisher/mjpeg"
)

// Stream keys
const (
	CompositeStream = "composite"
	EntryStream     = "entry"
	ExitStream      = "exit"
)

var ErrStreamerClosed = errors.New("streamer closed")

// Streamer is the output sink of the loop. It publishes the stacked frame
// over MJPEG and carries the viewer's exit request back to the loop.
type Streamer struct {
	mjpegPublisher *mjpeg.Publisher
	logger         zerolog.Logger

	mu     sync.RWMutex
	text   []string
	sent   int64
	closed bool

	exitOnce  sync.Once
	exit      chan struct{}
	closeOnce sync.Once
}

func NewStreamer(quality int, logger zerolog.Logger) *Streamer {
	return &Streamer{
		mjpegPublisher: mjpeg.NewPublisher(quality, logger),
		logger:         logger,
		exit:           make(chan struct{}),
	}
}

// SendData publishes the composite frame along with status text lines
func (s *Streamer) SendData(frame gocv.Mat, text []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamerClosed
	}
	s.text = append(s.text[:0], text...)
	s.sent++
	s.mu.Unlock()

	return s.mjpegPublisher.PublishMat(CompositeStream, frame)
}

// PublishStream publishes a single annotated stream frame under id
func (s *Streamer) PublishStream(id string, frame gocv.Mat) error {
	if s.isClosed() {
		return ErrStreamerClosed
	}
	return s.mjpegPublisher.PublishMat(id, frame)
}

// CheckExit reports whether a viewer asked the loop to stop
func (s *Streamer) CheckExit() bool {
	select {
	case <-s.exit:
		return true
	default:
		return false
	}
}

// RequestExit asks the loop to stop after the current iteration
func (s *Streamer) RequestExit() {
	s.exitOnce.Do(func() {
		s.logger.Info().Msg("Exit requested")
		close(s.exit)
	})
}

// Text returns the status lines sent with the last frame
func (s *Streamer) Text() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.text))
	copy(out, s.text)
	return out
}

func (s *Streamer) FramesSent() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sent
}

func (s *Streamer) Streams() []string {
	return s.mjpegPublisher.Streams()
}

func (s *Streamer) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, streamID string) {
	s.mjpegPublisher.StreamMJPEGHTTP(w, r, streamID)
}

func (s *Streamer) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close stops publishing and disconnects viewers. Safe to call more than once.
func (s *Streamer) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sent := s.sent
		s.mu.Unlock()

		s.mjpegPublisher.Close()
		s.logger.Info().Int64("frames_sent", sent).Msg("Streamer closed")
	})
	return nil
}
