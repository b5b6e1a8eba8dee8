package reid

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

var (
	ErrEmptyCrop      = errors.New("empty crop")
	ErrModelNotLoaded = errors.New("re-identification model not loaded")
)

// Embedder turns a person crop into an appearance feature vector
type Embedder interface {
	Embed(crop gocv.Mat) ([]float32, error)
	Close() error
}

// EmbedderOptions configures a DNNEmbedder
type EmbedderOptions struct {
	Model   string
	Width   int
	Height  int
	Backend string
	Target  string
}

// DNNEmbedder runs an OSNet style ONNX model through OpenCV DNN
type DNNEmbedder struct {
	mu      sync.Mutex
	net     gocv.Net
	size    image.Point
	mean    gocv.Scalar
	scale   float64
	backend string
	target  string
}

// NewDNNEmbedder loads the model file, inputs are resized to Width x Height
func NewDNNEmbedder(opts EmbedderOptions) (*DNNEmbedder, error) {
	net := gocv.ReadNet(opts.Model, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, opts.Model)
	}

	backend, target := opts.Backend, opts.Target
	if backend == "" {
		backend = "default"
	}
	if target == "" {
		target = "cpu"
	}
	net.SetPreferableBackend(gocv.ParseNetBackend(backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(target))

	return &DNNEmbedder{
		net:  net,
		size: image.Pt(opts.Width, opts.Height),
		mean:    imageNetMean,
		scale:   imageNetScale,
		backend: backend,
		target:  target,
	}, nil
}

// ImageNet mean in RGB order, the blob swaps the BGR crop to RGB before
// subtracting. The scale approximates the mean channel std.
var (
	imageNetMean  = gocv.NewScalar(123.675, 116.28, 103.53, 0)
	imageNetScale = 1.0 / (0.226 * 255.0)
)

// blob resizes crop to the model input and returns an NCHW RGB tensor
func (e *DNNEmbedder) blob(crop gocv.Mat) gocv.Mat {
	return gocv.BlobFromImage(crop, e.scale, e.size, e.mean, true, false)
}

// Embed returns the raw feature vector for crop
func (e *DNNEmbedder) Embed(crop gocv.Mat) ([]float32, error) {
	if crop.Empty() {
		return nil, ErrEmptyCrop
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	blob := e.blob(crop)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding: %w", err)
	}

	feature := make([]float32, len(data))
	copy(feature, data)
	return feature, nil
}

// Backend names the OpenCV DNN backend in use
func (e *DNNEmbedder) Backend() string { return e.backend }

// Target names the OpenCV DNN target in use
func (e *DNNEmbedder) Target() string { return e.target }

func (e *DNNEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
