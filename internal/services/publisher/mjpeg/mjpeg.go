package mjpeg

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/helpers"
)

var ErrPublisherClosed = errors.New("mjpeg publisher closed")

const boundary = "frame"

// Publisher keeps the latest JPEG per stream and fans it out to HTTP clients
type Publisher struct {
	quality   int
	keepalive time.Duration
	logger    zerolog.Logger

	jpegMutex  sync.RWMutex
	latestJPEG map[string][]byte

	subMutex sync.Mutex
	subs     map[string]map[chan struct{}]struct{}
	closed   bool
	done     chan struct{}
}

func NewPublisher(quality int, logger zerolog.Logger) *Publisher {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Publisher{
		quality:    quality,
		keepalive:  2 * time.Second,
		logger:     logger,
		latestJPEG: make(map[string][]byte),
		subs:       make(map[string]map[chan struct{}]struct{}),
		done:       make(chan struct{}),
	}
}

// PublishMat encodes frame and makes it the latest image of streamID
func (p *Publisher) PublishMat(streamID string, frame gocv.Mat) error {
	jpeg, err := helpers.EncodeJPEG(frame, p.quality)
	if err != nil {
		return err
	}
	return p.Publish(streamID, jpeg)
}

// Publish stores an already encoded JPEG for streamID
func (p *Publisher) Publish(streamID string, jpeg []byte) error {
	p.subMutex.Lock()
	closed := p.closed
	p.subMutex.Unlock()
	if closed {
		return ErrPublisherClosed
	}

	p.jpegMutex.Lock()
	p.latestJPEG[streamID] = jpeg
	p.jpegMutex.Unlock()

	p.notifyStreamers(streamID)
	return nil
}

// Latest returns the last JPEG published on streamID
func (p *Publisher) Latest(streamID string) ([]byte, bool) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	b, ok := p.latestJPEG[streamID]
	return b, ok && len(b) > 0
}

// Streams lists stream ids that have published at least one frame
func (p *Publisher) Streams() []string {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()

	ids := make([]string, 0, len(p.latestJPEG))
	for id := range p.latestJPEG {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clients counts connected viewers of streamID
func (p *Publisher) Clients(streamID string) int {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()
	return len(p.subs[streamID])
}

func (p *Publisher) notifyStreamers(streamID string) {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()

	for ch := range p.subs[streamID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) subscribe(streamID string) (chan struct{}, bool) {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()

	if p.closed {
		return nil, false
	}
	ch := make(chan struct{}, 1)
	if p.subs[streamID] == nil {
		p.subs[streamID] = make(map[chan struct{}]struct{})
	}
	p.subs[streamID][ch] = struct{}{}
	return ch, true
}

func (p *Publisher) unsubscribe(streamID string, ch chan struct{}) {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()

	delete(p.subs[streamID], ch)
	if len(p.subs[streamID]) == 0 {
		delete(p.subs, streamID)
	}
}

// StreamMJPEGHTTP serves streamID as multipart/x-mixed-replace until the
// client goes away or the publisher is closed
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, streamID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify, ok := p.subscribe(streamID)
	if !ok {
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	defer p.unsubscribe(streamID, notify)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, ok := p.Latest(streamID)
	if !ok {
		first = p.placeholder(streamID)
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	p.logger.Debug().Str("stream_id", streamID).Msg("MJPEG client connected")

	keepaliveTicker := time.NewTicker(p.keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}

		if buf, ok := p.Latest(streamID); ok {
			if !writePart(buf) {
				return
			}
		}
	}
}

func (p *Publisher) placeholder(streamID string) []byte {
	img := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	img.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&img, fmt.Sprintf("Stream: %s", streamID),
		image.Pt(20, 180), gocv.FontHersheySimplex, 1.0, textColor, 2)
	gocv.PutText(&img, "Waiting for frames...",
		image.Pt(20, 220), gocv.FontHersheySimplex, 0.8, textColor, 2)

	jpeg, err := helpers.EncodeJPEG(img, p.quality)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to encode placeholder frame")
		return nil
	}
	return jpeg
}

// Close disconnects every client. Further publishes fail.
func (p *Publisher) Close() {
	p.subMutex.Lock()
	defer p.subMutex.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	p.logger.Info().Msg("MJPEG Publisher shutting down")
}
