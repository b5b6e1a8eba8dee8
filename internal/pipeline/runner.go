package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/helpers"
	"reid-worker-go/internal/services/fps"
	"reid-worker-go/internal/services/recorder"
	"reid-worker-go/internal/services/videosource"
)

// Runner drives both stages frame by frame until the sink asks to exit,
// a stream ends or a step fails. Cleanup runs exactly once on every path.
type Runner struct {
	entry      VideoSource
	exit       VideoSource
	entryStage *Stage
	exitStage  *Stage
	sink       Sink
	recorder   Recorder
	annotator  Annotator
	fps        *fps.Counter
	showFPS    bool
	logger     zerolog.Logger

	running     atomic.Bool
	cleanupOnce sync.Once
	cleanupErr  error
}

type RunnerConfig struct {
	Entry      VideoSource
	Exit       VideoSource
	EntryStage *Stage
	ExitStage  *Stage
	Sink       Sink
	Recorder   Recorder
	Annotator  Annotator
	FPS        *fps.Counter
	ShowFPS    bool
	Logger     zerolog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	counter := cfg.FPS
	if counter == nil {
		counter = fps.New()
	}
	return &Runner{
		entry:      cfg.Entry,
		exit:       cfg.Exit,
		entryStage: cfg.EntryStage,
		exitStage:  cfg.ExitStage,
		sink:       cfg.Sink,
		recorder:   cfg.Recorder,
		annotator:  cfg.Annotator,
		fps:        counter,
		showFPS:    cfg.ShowFPS,
		logger:     cfg.Logger,
	}
}

// Run blocks until the loop ends. A cancelled ctx is handled like an exit
// request and returns nil.
func (r *Runner) Run(ctx context.Context) (err error) {
	r.running.Store(true)
	r.fps.Start()
	r.logger.Info().Msg("Re-identification loop started")

	defer func() {
		if cerr := r.cleanup(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
			r.logger.Error().Interface("panic", rec).Msg("Recovered from panic in re-identification loop")
		}
	}()

	composite := gocv.NewMat()
	defer composite.Close()

	for {
		if err := r.iterate(&composite); err != nil {
			return err
		}
		r.fps.Update()

		if r.sink.CheckExit() {
			r.logger.Info().Msg("Exit requested by output sink")
			return nil
		}
		if ctx.Err() != nil {
			r.logger.Info().Msg("Context cancelled, stopping loop")
			return nil
		}
	}
}

func (r *Runner) iterate(composite *gocv.Mat) error {
	frame0, err := r.entry.Read()
	if err != nil {
		return fmt.Errorf("read %s stream: %w", r.entryStage.Name(), err)
	}
	defer frame0.Close()

	frame1, err := r.exit.Read()
	if err != nil {
		return fmt.Errorf("read %s stream: %w", r.exitStage.Name(), err)
	}
	defer frame1.Close()

	if _, err := r.entryStage.Process(&frame0); err != nil {
		return err
	}
	if _, err := r.exitStage.Process(&frame1); err != nil {
		return err
	}

	if sp, ok := r.sink.(StreamPublisher); ok {
		if err := sp.PublishStream(r.entryStage.Name(), frame0); err != nil {
			return fmt.Errorf("publish %s stream: %w", r.entryStage.Name(), err)
		}
		if err := sp.PublishStream(r.exitStage.Name(), frame1); err != nil {
			return fmt.Errorf("publish %s stream: %w", r.exitStage.Name(), err)
		}
	}

	if err := helpers.VStack(frame0, frame1, composite); err != nil {
		return fmt.Errorf("stack frames: %w", err)
	}

	var text []string
	if r.showFPS && r.annotator != nil {
		line := fmt.Sprintf("FPS: %.2f", r.fps.ComputeFPS())
		r.annotator.Text(composite, line)
		text = append(text, line)
	}

	if err := r.sink.SendData(*composite, text); err != nil {
		return fmt.Errorf("send composite frame: %w", err)
	}

	if r.recorder != nil {
		if err := r.recorder.WriteFrame(*composite); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to record composite frame")
		}
	}
	return nil
}

func (r *Runner) cleanup() error {
	r.cleanupOnce.Do(func() {
		var errs []error

		r.fps.Stop()
		if err := r.entry.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s stream: %w", r.entryStage.Name(), err))
		}
		if err := r.exit.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s stream: %w", r.exitStage.Name(), err))
		}
		if err := r.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output sink: %w", err))
		}
		if r.recorder != nil {
			if err := r.recorder.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close recorder: %w", err))
			}
		}
		r.running.Store(false)

		r.logger.Info().
			Int64("frames", r.fps.Frames()).
			Msgf("elapsed time: %.2f", r.fps.ElapsedSeconds())
		r.logger.Info().Msgf("approx. FPS: %.2f", r.fps.ComputeFPS())
		r.logger.Info().Msg("Program Ending")

		r.cleanupErr = errors.Join(errs...)
	})
	return r.cleanupErr
}

// RunStats is a point in time view of the loop for the API
type RunStats struct {
	Running        bool                    `json:"running"`
	Frames         int64                   `json:"frames"`
	ElapsedSeconds float64                 `json:"elapsed_seconds"`
	FPS            float64                 `json:"fps"`
	FramesSent     int64                   `json:"frames_sent"`
	StatusText     []string                `json:"status_text,omitempty"`
	Entry          StageStats              `json:"entry"`
	Exit           StageStats              `json:"exit"`
	EntryVideo     *videosource.Properties `json:"entry_video,omitempty"`
	ExitVideo      *videosource.Properties `json:"exit_video,omitempty"`
	Recorder       *recorder.Status        `json:"recorder,omitempty"`
}

func (r *Runner) Running() bool { return r.running.Load() }

func (r *Runner) Stats() RunStats {
	stats := RunStats{
		Running:        r.running.Load(),
		Frames:         r.fps.Frames(),
		ElapsedSeconds: r.fps.ElapsedSeconds(),
		FPS:            r.fps.ComputeFPS(),
		Entry:          r.entryStage.Stats(),
		Exit:           r.exitStage.Stats(),
		EntryVideo:     videoProperties(r.entry),
		ExitVideo:      videoProperties(r.exit),
	}
	if sr, ok := r.sink.(SinkReporter); ok {
		stats.FramesSent = sr.FramesSent()
		stats.StatusText = sr.Text()
	}
	if rr, ok := r.recorder.(RecorderReporter); ok {
		status := rr.Status()
		stats.Recorder = &status
	}
	return stats
}

func videoProperties(src VideoSource) *videosource.Properties {
	vr, ok := src.(VideoReporter)
	if !ok {
		return nil
	}
	props := vr.Properties()
	return &props
}
