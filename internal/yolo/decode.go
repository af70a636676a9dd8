// Package yolo decodes raw YOLOv8-style detector output into candidate boxes.
//
// The network emits a [1, 4+classes, anchors] tensor: for every anchor the box centre, width and
// height in input pixels followed by one score per class. Some exports transpose the last two
// axes; Shape handles both.
package yolo

import (
	"errors"
	"fmt"
	"image"
)

// DefaultInputSize is the square network input side in pixels of stock YOLOv8 exports.
const DefaultInputSize = 640

// ErrShape is returned for output tensors that do not look like detector output.
var ErrShape = errors.New("unexpected detector output shape")

// Shape describes the layout of one output tensor.
type Shape struct {
	Channels   int
	Anchors    int
	Transposed bool
}

// Classes returns the number of class scores per anchor.
func (s Shape) Classes() int {
	return s.Channels - 4
}

// ShapeFromDims interprets the dimensions reported by the network.
// [1, C, N] with C < N is the usual layout; [1, N, C] is treated as transposed.
func ShapeFromDims(dims []int) (Shape, error) {
	if len(dims) == 2 {
		dims = append([]int{1}, dims...)
	}
	if len(dims) != 3 || dims[0] != 1 {
		return Shape{}, fmt.Errorf("%w: %v", ErrShape, dims)
	}

	a, b := dims[1], dims[2]
	shape := Shape{Channels: a, Anchors: b}
	if a > b {
		shape = Shape{Channels: b, Anchors: a, Transposed: true}
	}
	if shape.Channels < 5 {
		return Shape{}, fmt.Errorf("%w: %v has no class scores", ErrShape, dims)
	}
	return shape, nil
}

// Candidate is a scored box before non-maximum suppression.
type Candidate struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

// Letterbox maps network input coordinates back to the source image. The source is padded at
// the bottom/right to a square and resized to the network input side, so a single scale factor
// applies.
type Letterbox struct {
	Scale  float32
	Width  int
	Height int
}

// NewLetterbox returns the mapping for a source image of the given size fed to a network with a
// square input of inputSize pixels. A non-positive inputSize means DefaultInputSize.
func NewLetterbox(width, height, inputSize int) Letterbox {
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	side := width
	if height > side {
		side = height
	}
	return Letterbox{
		Scale:  float32(side) / float32(inputSize),
		Width:  width,
		Height: height,
	}
}

// Side is the square canvas side the source is padded to.
func (l Letterbox) Side() int {
	if l.Width > l.Height {
		return l.Width
	}
	return l.Height
}

// Box converts a centre/size box in input pixels to a rectangle clipped to the source image.
func (l Letterbox) Box(cx, cy, w, h float32) image.Rectangle {
	x1 := int((cx - w/2) * l.Scale)
	y1 := int((cy - h/2) * l.Scale)
	x2 := int((cx + w/2) * l.Scale)
	y2 := int((cy + h/2) * l.Scale)
	return image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, l.Width, l.Height))
}

// Decode returns every anchor whose best class score is at least threshold.
func Decode(data []float32, shape Shape, threshold float32, lb Letterbox) ([]Candidate, error) {
	if want := shape.Channels * shape.Anchors; len(data) < want {
		return nil, fmt.Errorf("%w: have %d values, need %d", ErrShape, len(data), want)
	}

	at := func(channel, anchor int) float32 {
		if shape.Transposed {
			return data[anchor*shape.Channels+channel]
		}
		return data[channel*shape.Anchors+anchor]
	}

	var out []Candidate
	for i := 0; i < shape.Anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < shape.Classes(); c++ {
			if score := at(4+c, i); score > bestScore {
				best, bestScore = c, score
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		box := lb.Box(at(0, i), at(1, i), at(2, i), at(3, i))
		if box.Empty() {
			continue
		}
		out = append(out, Candidate{ClassID: best, Confidence: bestScore, Box: box})
	}

	return out, nil
}

// Split returns parallel box and score slices, the form NMS implementations take.
func Split(candidates []Candidate) ([]image.Rectangle, []float32) {
	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = c.Confidence
	}
	return boxes, scores
}
