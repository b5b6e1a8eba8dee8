package detection

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// cocoLabels is the TensorFlow object detection COCO label map, indexed by
// class id. Unused ids are "???".
var cocoLabels = []string{
	"background", "person", "bicycle", "car", "motorcycle", "airplane", "bus",
	"train", "truck", "boat", "traffic light", "fire hydrant", "???",
	"stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "???", "backpack",
	"umbrella", "???", "???", "handbag", "tie", "suitcase", "frisbee", "skis",
	"snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "???", "wine glass",
	"cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich",
	"orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake",
	"chair", "couch", "potted plant", "bed", "???", "dining table", "???",
	"???", "toilet", "???", "tv", "laptop", "mouse", "remote", "keyboard",
	"cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "???",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// DefaultLabels returns a copy of the built in COCO label map
func DefaultLabels() []string {
	out := make([]string, len(cocoLabels))
	copy(out, cocoLabels)
	return out
}

// LoadLabels reads one label per line. Blank lines are kept as "???" so the
// line number stays aligned with the class id.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			line = "???"
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}
