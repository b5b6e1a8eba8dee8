package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

var ErrRecorderClosed = errors.New("recorder closed")

// Writer is the subset of gocv.VideoWriter used for chunks
type Writer interface {
	Write(img gocv.Mat) error
	IsOpened() bool
	Close() error
}

// WriterFactory opens a chunk file sized width x height
type WriterFactory func(path, codec string, fps float64, width, height int) (Writer, error)

// OpenVideoWriter opens a gocv VideoWriter
func OpenVideoWriter(path, codec string, fps float64, width, height int) (Writer, error) {
	w, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ChunkPublisher ships chunk metadata, satisfied by messaging.Service
type ChunkPublisher interface {
	Publish(subject string, data interface{}) error
}

type Options struct {
	Dir           string
	Codec         string
	FPS           float64
	ChunkDuration time.Duration
	MaxChunks     int
	Subject       string
}

type ChunkMetadata struct {
	RunID      string    `json:"run_id"`
	ChunkID    string    `json:"chunk_id"`
	ChunkPath  string    `json:"chunk_path"`
	StartTime  time.Time `json:"start_time"`
	Duration   float64   `json:"duration"`
	FileSize   int64     `json:"file_size"`
	FrameCount int64     `json:"frame_count"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

type Status struct {
	Recording   bool   `json:"recording"`
	CurrentFile string `json:"current_file,omitempty"`
	Chunks      int    `json:"chunks"`
	Frames      int64  `json:"frames"`
}

// Service writes composite frames into fixed length video chunks and keeps
// at most MaxChunks of them on disk
type Service struct {
	opts      Options
	runID     string
	open      WriterFactory
	publisher ChunkPublisher
	now       func() time.Time
	logger    zerolog.Logger

	mu          sync.Mutex
	writer      Writer
	path        string
	chunkStart  time.Time
	chunkFrames int64
	width       int
	height      int
	chunks      int
	frames      int64
	closed      bool
}

func NewService(opts Options, runID string, publisher ChunkPublisher, logger zerolog.Logger) *Service {
	return newService(opts, runID, OpenVideoWriter, publisher, time.Now, logger)
}

func newService(opts Options, runID string, open WriterFactory, publisher ChunkPublisher, now func() time.Time, logger zerolog.Logger) *Service {
	if opts.Codec == "" {
		opts.Codec = "MJPG"
	}
	if opts.FPS <= 0 {
		opts.FPS = 15
	}
	if opts.ChunkDuration <= 0 {
		opts.ChunkDuration = time.Minute
	}
	if opts.Subject == "" {
		opts.Subject = "reid.recordings"
	}
	return &Service{
		opts:      opts,
		runID:     runID,
		open:      open,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

// WriteFrame appends frame to the current chunk, starting a new one when the
// chunk is full or the frame size changed
func (s *Service) WriteFrame(frame gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("record: empty frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRecorderClosed
	}

	now := s.now()
	sizeChanged := frame.Cols() != s.width || frame.Rows() != s.height
	if s.writer == nil || sizeChanged || now.Sub(s.chunkStart) >= s.opts.ChunkDuration {
		if err := s.rotateLocked(now, frame.Cols(), frame.Rows()); err != nil {
			return err
		}
	}

	if err := s.writer.Write(frame); err != nil {
		return fmt.Errorf("write frame to %s: %w", s.path, err)
	}
	s.chunkFrames++
	s.frames++
	return nil
}

func (s *Service) rotateLocked(now time.Time, width, height int) error {
	s.finishChunkLocked(now)

	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	s.chunks++
	path := filepath.Join(s.opts.Dir, fmt.Sprintf("chunk_%s_%04d.avi", now.UTC().Format("20060102T150405"), s.chunks))
	w, err := s.open(path, s.opts.Codec, s.opts.FPS, width, height)
	if err != nil {
		return fmt.Errorf("open chunk %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return fmt.Errorf("open chunk %s: writer not opened", path)
	}

	s.writer = w
	s.path = path
	s.chunkStart = now
	s.chunkFrames = 0
	s.width, s.height = width, height

	s.logger.Info().Str("chunk", path).Int("width", width).Int("height", height).Msg("Started recording chunk")

	if err := s.cleanupOldChunks(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cleanup old chunks")
	}
	return nil
}

func (s *Service) finishChunkLocked(now time.Time) {
	if s.writer == nil {
		return
	}
	if err := s.writer.Close(); err != nil {
		s.logger.Warn().Err(err).Str("chunk", s.path).Msg("Failed to close chunk")
	}

	meta := ChunkMetadata{
		RunID:      s.runID,
		ChunkID:    filepath.Base(s.path),
		ChunkPath:  s.path,
		StartTime:  s.chunkStart,
		Duration:   now.Sub(s.chunkStart).Seconds(),
		FrameCount: s.chunkFrames,
		Width:      s.width,
		Height:     s.height,
	}
	if info, err := os.Stat(s.path); err == nil {
		meta.FileSize = info.Size()
	}
	s.writer = nil

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(s.opts.Subject, meta); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish chunk metadata")
		return
	}
	s.logger.Info().
		Str("chunk", meta.ChunkID).
		Int64("size_bytes", meta.FileSize).
		Int64("frames", meta.FrameCount).
		Msg("Published chunk metadata")
}

// cleanupOldChunks removes the oldest chunks beyond MaxChunks
func (s *Service) cleanupOldChunks() error {
	if s.opts.MaxChunks <= 0 {
		return nil
	}

	chunks, err := filepath.Glob(filepath.Join(s.opts.Dir, "chunk_*.avi"))
	if err != nil {
		return fmt.Errorf("failed to find chunks: %w", err)
	}
	if len(chunks) <= s.opts.MaxChunks {
		return nil
	}

	// names sort chronologically
	sort.Strings(chunks)
	for _, old := range chunks[:len(chunks)-s.opts.MaxChunks] {
		if old == s.path {
			continue
		}
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("remove %s: %w", old, err)
		}
		s.logger.Debug().Str("chunk", old).Msg("Removed old chunk")
	}
	return nil
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Recording:   s.writer != nil,
		CurrentFile: s.path,
		Chunks:      s.chunks,
		Frames:      s.frames,
	}
}

// Close finishes the current chunk. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.finishChunkLocked(s.now())
	s.logger.Info().Int("chunks", s.chunks).Int64("frames", s.frames).Msg("Recorder stopped")
	return nil
}
