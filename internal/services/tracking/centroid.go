package tracking

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"reid-worker-go/internal/models"
)

// Callback is invoked synchronously from Update on identity lifecycle events
type Callback func(id int, obj models.TrackedObject)

// Options configures a CentroidTracker
type Options struct {
	// MinInertia is the number of frames an object must be matched before it
	// is reported and the enter callback fires
	MinInertia int
	// DeregisterFrames is the number of consecutive missed frames tolerated
	// before an object is dropped
	DeregisterFrames int
	// MaxDistance is the largest centroid jump in pixels still treated as
	// the same object
	MaxDistance float64
	OnEnter     Callback
	OnExit      Callback
}

// DefaultOptions mirrors the stock tracker settings used by the pipeline
func DefaultOptions() Options {
	return Options{
		MinInertia:       5,
		DeregisterFrames: 5,
		MaxDistance:      50,
	}
}

type trackedObject struct {
	id          int
	prediction  models.Prediction
	inertia     int
	disappeared int
	entered     bool
}

// CentroidTracker associates detections across frames by proximity of their
// bounding box centres.
type CentroidTracker struct {
	mu      sync.Mutex
	opts    Options
	nextID  int
	objects map[int]*trackedObject
}

// NewCentroidTracker creates a tracker, zero values in opts fall back to
// DefaultOptions
func NewCentroidTracker(opts Options) *CentroidTracker {
	def := DefaultOptions()
	if opts.MinInertia <= 0 {
		opts.MinInertia = def.MinInertia
	}
	if opts.DeregisterFrames < 0 {
		opts.DeregisterFrames = def.DeregisterFrames
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = def.MaxDistance
	}

	return &CentroidTracker{
		opts:    opts,
		objects: make(map[int]*trackedObject),
	}
}

// Update matches the frame's predictions to known objects and returns every
// object that has reached MinInertia, ordered by id. Returned values are
// copies so callers may relabel them freely.
func (ct *CentroidTracker) Update(predictions []models.Prediction) []models.TrackedObject {
	ct.mu.Lock()

	var entered, exited []models.TrackedObject

	ids := ct.sortedIDs()

	if len(predictions) == 0 {
		for _, id := range ids {
			if obj := ct.markMissing(id); obj != nil {
				exited = append(exited, *obj)
			}
		}
	} else if len(ids) == 0 {
		for _, p := range predictions {
			if obj := ct.register(p); obj != nil {
				entered = append(entered, *obj)
			}
		}
	} else {
		entered, exited = ct.match(ids, predictions)
	}

	results := ct.snapshot()
	onEnter, onExit := ct.opts.OnEnter, ct.opts.OnExit
	ct.mu.Unlock()

	// callbacks run outside the lock so they may query the tracker
	if onExit != nil {
		for _, obj := range exited {
			onExit(obj.ID, obj)
		}
	}
	if onEnter != nil {
		for _, obj := range entered {
			onEnter(obj.ID, obj)
		}
	}

	return results
}

// match performs greedy nearest-centroid assignment on the distance matrix
func (ct *CentroidTracker) match(ids []int, predictions []models.Prediction) (entered, exited []models.TrackedObject) {
	rows, cols := len(ids), len(predictions)
	dist := mat.NewDense(rows, cols, nil)

	for r, id := range ids {
		for c, p := range predictions {
			dist.Set(r, c, ct.objects[id].prediction.Box.DistanceTo(p.Box))
		}
	}

	// visit rows by their smallest distance so the closest pairs bind first
	type candidate struct {
		row, col int
		d        float64
	}
	order := make([]candidate, 0, rows)
	for r := 0; r < rows; r++ {
		best := candidate{row: r, col: -1, d: math.Inf(1)}
		for c := 0; c < cols; c++ {
			if d := dist.At(r, c); d < best.d {
				best = candidate{row: r, col: c, d: d}
			}
		}
		order = append(order, best)
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].d < order[j].d })

	usedRows := make(map[int]bool, rows)
	usedCols := make(map[int]bool, cols)

	for _, cand := range order {
		r := cand.row
		// the row's best column may already be taken, fall back to its
		// nearest free column
		c, d := -1, math.Inf(1)
		for col := 0; col < cols; col++ {
			if usedCols[col] {
				continue
			}
			if v := dist.At(r, col); v < d {
				c, d = col, v
			}
		}
		if c < 0 || d > ct.opts.MaxDistance {
			continue
		}

		obj := ct.objects[ids[r]]
		obj.prediction = predictions[c]
		obj.disappeared = 0
		obj.inertia++
		if !obj.entered && obj.inertia >= ct.opts.MinInertia {
			obj.entered = true
			entered = append(entered, obj.export())
		}

		usedRows[r] = true
		usedCols[c] = true
	}

	for r, id := range ids {
		if usedRows[r] {
			continue
		}
		if obj := ct.markMissing(id); obj != nil {
			exited = append(exited, *obj)
		}
	}

	for c, p := range predictions {
		if usedCols[c] {
			continue
		}
		if obj := ct.register(p); obj != nil {
			entered = append(entered, *obj)
		}
	}

	return entered, exited
}

// register starts tracking a prediction, returning it if it entered immediately
func (ct *CentroidTracker) register(p models.Prediction) *models.TrackedObject {
	obj := &trackedObject{
		id:         ct.nextID,
		prediction: p,
		inertia:    1,
	}
	ct.objects[obj.id] = obj
	ct.nextID++

	if obj.inertia >= ct.opts.MinInertia {
		obj.entered = true
		out := obj.export()
		return &out
	}
	return nil
}

// markMissing ages an unmatched object and drops it once it has been gone for
// more than DeregisterFrames. Only entered objects are reported as exits.
func (ct *CentroidTracker) markMissing(id int) *models.TrackedObject {
	obj := ct.objects[id]
	obj.disappeared++
	if obj.disappeared <= ct.opts.DeregisterFrames {
		return nil
	}

	delete(ct.objects, id)
	if !obj.entered {
		return nil
	}
	out := obj.export()
	return &out
}

func (ct *CentroidTracker) snapshot() []models.TrackedObject {
	out := make([]models.TrackedObject, 0, len(ct.objects))
	for _, id := range ct.sortedIDs() {
		if obj := ct.objects[id]; obj.entered {
			out = append(out, obj.export())
		}
	}
	return out
}

func (ct *CentroidTracker) sortedIDs() []int {
	ids := make([]int, 0, len(ct.objects))
	for id := range ct.objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (o *trackedObject) export() models.TrackedObject {
	return models.TrackedObject{ID: o.id, Prediction: o.prediction}
}

// Count returns the number of objects currently reported by Update
func (ct *CentroidTracker) Count() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	n := 0
	for _, obj := range ct.objects {
		if obj.entered {
			n++
		}
	}
	return n
}
