package reid

import (
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestEmbedderBlobNormalisesPerChannel(t *testing.T) {
	e := &DNNEmbedder{size: image.Pt(4, 8), mean: imageNetMean, scale: imageNetScale}

	// pure blue in BGR
	crop := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 8, 4, gocv.MatTypeCV8UC3)
	defer crop.Close()

	blob := e.blob(crop)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	require.NoError(t, err)
	plane := 4 * 8
	require.Len(t, data, 3*plane)

	want := []float64{
		(0 - 123.675) * imageNetScale,  // R
		(0 - 116.28) * imageNetScale,   // G
		(255 - 103.53) * imageNetScale, // B
	}
	for c, w := range want {
		for _, i := range []int{0, plane / 2, plane - 1} {
			assert.InDelta(t, w, float64(data[c*plane+i]), 1e-4, "channel %d", c)
		}
	}
}

func TestAcceleratorNamesBackendAndTarget(t *testing.T) {
	g, err := NewGallery(1, DropOldest, nil)
	require.NoError(t, err)

	svc := NewService(&DNNEmbedder{backend: "openvino", target: "fp16"}, g, "osnet", zerolog.Nop())
	assert.Equal(t, "openvino/fp16", svc.Accelerator())
	assert.Equal(t, "DNN", svc.Engine())
}
