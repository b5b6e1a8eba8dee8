package pipeline

import (
	"errors"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
	"reid-worker-go/internal/services/recorder"
	"reid-worker-go/internal/services/tracking"
	"reid-worker-go/internal/services/videosource"
)

var errEOF = errors.New("end of fake stream")

// patch is a solid BGR region painted into every fake frame
type patch struct {
	box   models.Box
	color [3]int
}

type fakeSource struct {
	width, height int
	frames        int
	read          int
	stops         int
	patches       []patch
}

func (f *fakeSource) Read() (gocv.Mat, error) {
	if f.frames >= 0 && f.read >= f.frames {
		return gocv.Mat{}, errEOF
	}
	f.read++
	img := gocv.NewMatWithSize(f.height, f.width, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(50, 100, 150, 0))
	for _, p := range f.patches {
		region := img.Region(p.box.Rect())
		region.SetTo(gocv.NewScalar(float64(p.color[0]), float64(p.color[1]), float64(p.color[2]), 0))
		region.Close()
	}
	return img, nil
}

func (f *fakeSource) Properties() videosource.Properties {
	return videosource.Properties{Path: "fake.mkv", FPS: 30, Width: f.width, Height: f.height, FramesDecoded: int64(f.read)}
}

func (f *fakeSource) Stop() error {
	f.stops++
	return nil
}

type fakeDetector struct {
	predictions []models.Prediction
	err         error
	calls       int
}

func (f *fakeDetector) DetectObjects(_ gocv.Mat, confidence float32) (*models.DetectionResults, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Prediction, 0, len(f.predictions))
	for _, p := range f.predictions {
		if p.Confidence >= confidence {
			out = append(out, p)
		}
	}
	return &models.DetectionResults{Predictions: out}, nil
}

// fakeTracker gives each prediction the id offset+position, fires enter the
// first time an id is seen and exit as soon as it is missing
type fakeTracker struct {
	offset  int
	seen    map[int]bool
	live    map[int]models.TrackedObject
	onEnter tracking.Callback
	onExit  tracking.Callback
	inputs  [][]models.Prediction
}

func (f *fakeTracker) Update(predictions []models.Prediction) []models.TrackedObject {
	f.inputs = append(f.inputs, predictions)
	out := make([]models.TrackedObject, 0, len(predictions))
	current := make(map[int]models.TrackedObject, len(predictions))
	for i, p := range predictions {
		obj := models.TrackedObject{ID: f.offset + i, Prediction: p}
		if !f.seen[obj.ID] {
			f.seen[obj.ID] = true
			if f.onEnter != nil {
				f.onEnter(obj.ID, obj)
			}
		}
		current[obj.ID] = obj
		out = append(out, obj)
	}
	for id, obj := range f.live {
		if _, ok := current[id]; !ok && f.onExit != nil {
			f.onExit(id, obj)
		}
	}
	f.live = current
	return out
}

func (f *fakeTracker) Count() int { return len(f.live) }

func trackerFactory(offset int, out **fakeTracker) TrackerFactory {
	return func(onEnter, onExit tracking.Callback) Tracker {
		t := &fakeTracker{offset: offset, seen: map[int]bool{}, onEnter: onEnter, onExit: onExit}
		*out = t
		return t
	}
}

// galleryAdd records what a crop looked like: its size and mean BGR colour
type galleryAdd struct {
	id            int
	width, height int
	mean          [3]int
}

func describeCrop(id int, crop gocv.Mat) galleryAdd {
	m := crop.Mean()
	return galleryAdd{
		id:     id,
		width:  crop.Cols(),
		height: crop.Rows(),
		mean:   [3]int{int(math.Round(m.Val1)), int(math.Round(m.Val2)), int(math.Round(m.Val3))},
	}
}

type fakeReID struct {
	adds    []galleryAdd
	queries []galleryAdd
	result  *models.ReIDResult
	err     error
	panics  bool
}

func (f *fakeReID) AddToGallery(crop gocv.Mat, id int) error {
	if f.panics {
		panic("embedder exploded")
	}
	f.adds = append(f.adds, describeCrop(id, crop))
	return f.err
}

func (f *fakeReID) ReIDImage(crop gocv.Mat) (*models.ReIDResult, error) {
	f.queries = append(f.queries, describeCrop(0, crop))
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &models.ReIDResult{}, nil
	}
	return f.result, nil
}

type fakeAnnotator struct {
	markups [][]models.Prediction
	texts   [][]string
}

func (f *fakeAnnotator) Markup(_ *gocv.Mat, predictions []models.Prediction) {
	f.markups = append(f.markups, predictions)
}

func (f *fakeAnnotator) Text(_ *gocv.Mat, lines ...string) {
	f.texts = append(f.texts, lines)
}

type fakeSink struct {
	mu        sync.Mutex
	sizes     [][2]int
	texts     [][]string
	streams   map[string]int
	exitAfter int
	sendErr   error
	closes    int
}

func (f *fakeSink) SendData(frame gocv.Mat, text []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sizes = append(f.sizes, [2]int{frame.Cols(), frame.Rows()})
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSink) PublishStream(id string, _ gocv.Mat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streams == nil {
		f.streams = map[string]int{}
	}
	f.streams[id]++
	return nil
}

func (f *fakeSink) CheckExit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitAfter > 0 && len(f.sizes) >= f.exitAfter
}

func (f *fakeSink) FramesSent() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sizes))
}

func (f *fakeSink) Text() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return nil
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeSink) Close() error {
	f.closes++
	return nil
}

type recordedEvents struct {
	events []models.IdentityEvent
}

func (r *recordedEvents) PublishEvent(e models.IdentityEvent) error {
	r.events = append(r.events, e)
	return nil
}

type fakeRecorder struct {
	writes int
	closes int
	err    error
}

func (f *fakeRecorder) WriteFrame(gocv.Mat) error {
	f.writes++
	return f.err
}

func (f *fakeRecorder) Status() recorder.Status {
	return recorder.Status{Recording: f.closes == 0, Frames: int64(f.writes)}
}

func (f *fakeRecorder) Close() error {
	f.closes++
	return nil
}
