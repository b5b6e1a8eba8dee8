package videosource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

var (
	ErrEndOfStream      = errors.New("end of video stream")
	ErrStreamNotStarted = errors.New("video stream not started")
	ErrOpenFailed       = errors.New("failed to open video")
)

// Capture is the subset of gocv.VideoCapture the stream reads from
type Capture interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Get(prop gocv.VideoCaptureProperties) float64
	Close() error
}

// Opener opens a capture for path
type Opener func(path string) (Capture, error)

// OpenFile opens a video file through FFmpeg
func OpenFile(path string) (Capture, error) {
	cap, err := gocv.OpenVideoCaptureWithAPI(path, gocv.VideoCaptureFFmpeg)
	if err != nil {
		return nil, err
	}
	return cap, nil
}

// FileVideoStream decodes a video in a background goroutine and hands frames
// out in order through a bounded queue.
type FileVideoStream struct {
	path      string
	queueSize int
	retries   int
	open      Opener
	logger    zerolog.Logger

	mu      sync.Mutex
	started bool
	frames  chan gocv.Mat
	cancel  context.CancelFunc
	done    chan struct{}

	fps    float64
	width  int
	height int
	count  atomic.Int64
}

// Properties describes an opened video and how far decoding got
type Properties struct {
	Path          string  `json:"path"`
	FPS           float64 `json:"fps"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FramesDecoded int64   `json:"frames_decoded"`
}

// NewFileVideoStream prepares a stream for path. Nothing is opened until Start.
func NewFileVideoStream(path string, queueSize, retries int, logger zerolog.Logger) *FileVideoStream {
	return NewFileVideoStreamWithOpener(path, queueSize, retries, OpenFile, logger)
}

func NewFileVideoStreamWithOpener(path string, queueSize, retries int, open Opener, logger zerolog.Logger) *FileVideoStream {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &FileVideoStream{
		path:      path,
		queueSize: queueSize,
		retries:   retries,
		open:      open,
		logger:    logger.With().Str("video", path).Logger(),
	}
}

// Start opens the video and begins prefetching. Calling Start twice is a no-op.
func (s *FileVideoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	cap, err := s.openWithRetry()
	if err != nil {
		return err
	}

	s.fps = cap.Get(gocv.VideoCaptureFPS)
	s.width = int(cap.Get(gocv.VideoCaptureFrameWidth))
	s.height = int(cap.Get(gocv.VideoCaptureFrameHeight))

	s.logger.Info().
		Float64("fps", s.fps).
		Int("width", s.width).
		Int("height", s.height).
		Msg("Video opened")

	ctx, cancel := context.WithCancel(context.Background())
	s.frames = make(chan gocv.Mat, s.queueSize)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.decode(ctx, cap)
	return nil
}

func (s *FileVideoStream) openWithRetry() (Capture, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt*100) * time.Millisecond
			s.logger.Warn().Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("Retrying video open")
			time.Sleep(delay)
		}

		cap, err := s.open(s.path)
		if err != nil {
			lastErr = err
			continue
		}
		if !cap.IsOpened() {
			cap.Close()
			lastErr = fmt.Errorf("capture not opened")
			continue
		}
		return cap, nil
	}
	return nil, fmt.Errorf("%w %s: %v", ErrOpenFailed, s.path, lastErr)
}

func (s *FileVideoStream) decode(ctx context.Context, cap Capture) {
	defer close(s.done)
	defer close(s.frames)
	defer cap.Close()

	for {
		img := gocv.NewMat()
		if ok := cap.Read(&img); !ok || img.Empty() {
			img.Close()
			s.logger.Debug().Int64("frames", s.count.Load()).Msg("Video decoder reached end of stream")
			return
		}

		select {
		case s.frames <- img:
			s.count.Add(1)
		case <-ctx.Done():
			img.Close()
			return
		}
	}
}

// Read blocks for the next frame. The caller owns the returned Mat; on error
// the Mat is the zero value and must not be used.
func (s *FileVideoStream) Read() (gocv.Mat, error) {
	s.mu.Lock()
	started, frames := s.started, s.frames
	s.mu.Unlock()

	if !started {
		return gocv.Mat{}, ErrStreamNotStarted
	}

	img, ok := <-frames
	if !ok {
		return gocv.Mat{}, ErrEndOfStream
	}
	return img, nil
}

// Stop ends decoding and releases queued frames. Safe to call more than once.
func (s *FileVideoStream) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel, frames, done := s.cancel, s.frames, s.done
	s.mu.Unlock()

	cancel()
	// drain so the decoder is never blocked on a full queue
	for img := range frames {
		img.Close()
	}
	<-done

	s.logger.Info().Int64("frames_decoded", s.count.Load()).Msg("Video stream stopped")
	return nil
}

func (s *FileVideoStream) Path() string { return s.path }

// Properties returns the source fps and frame size read at Start along with
// the number of frames decoded so far
func (s *FileVideoStream) Properties() Properties {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Properties{
		Path:          s.path,
		FPS:           s.fps,
		Width:         s.width,
		Height:        s.height,
		FramesDecoded: s.count.Load(),
	}
}
