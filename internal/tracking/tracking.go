// Package tracking defines the per-frame person tracking contract consumed by
// the zone occupancy detector, plus the gocv-backed implementation.
//
// The detector only needs a stream of tracked entities with stable IDs, so the
// Source interface keeps the state machine testable with synthetic fixtures
// while VideoSource does the real capture and DNN inference.
package tracking

// Rect is an axis-aligned bounding box in frame pixel coordinates.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// CenterX returns the horizontal center of the box.
func (r Rect) CenterX() float64 {
	return (r.X1 + r.X2) / 2
}

// CenterY returns the vertical center of the box.
func (r Rect) CenterY() float64 {
	return (r.Y1 + r.Y2) / 2
}

// Area returns the box area, zero for degenerate boxes.
func (r Rect) Area() float64 {
	w := r.X2 - r.X1
	h := r.Y2 - r.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of two boxes.
func (r Rect) IoU(other Rect) float64 {
	interX1 := max(r.X1, other.X1)
	interY1 := max(r.Y1, other.Y1)
	interX2 := min(r.X2, other.X2)
	interY2 := min(r.Y2, other.Y2)
	inter := Rect{interX1, interY1, interX2, interY2}.Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Entity is one tracked subject in one frame. IDs are stable across frames
// for the same physical subject as long as the tracker keeps its lock.
type Entity struct {
	ID      int
	Box     Rect
	ClassID int
}

// Source yields tracked entities frame by frame.
type Source interface {
	// Next returns the entities of the next frame. ok is false once the
	// stream is exhausted.
	Next() (entities []Entity, ok bool, err error)
	// FrameSize returns the frame dimensions in pixels.
	FrameSize() (width, height int)
	// FrameRate returns the stream frame rate.
	FrameRate() float64
	Close() error
}
