package facematch

import "math"

// Point is a position in frame pixels.
type Point struct {
	X, Y float64
}

// Box is a face bounding box in frame pixels.
type Box struct {
	X, Y, W, H float64
}

// BoxFromCorners converts a detector bbox [x1, y1, x2, y2] to a Box.
func BoxFromCorners(bbox []float64) (Box, bool) {
	if len(bbox) != 4 || bbox[2] < bbox[0] || bbox[3] < bbox[1] {
		return Box{}, false
	}
	return Box{X: bbox[0], Y: bbox[1], W: bbox[2] - bbox[0], H: bbox[3] - bbox[1]}, true
}

// Center returns the centre point of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// GuideCircle is the on-screen region the face centre must fall into during registration.
type GuideCircle struct {
	Center    Point
	Radius    float64
	Tolerance float64
}

// NewGuideCircle centres the guide on the frame with a radius of radiusPercent
// of the smaller frame side.
func NewGuideCircle(frameW, frameH int, radiusPercent, tolerance float64) GuideCircle {
	return GuideCircle{
		Center:    Point{X: float64(frameW) / 2, Y: float64(frameH) / 2},
		Radius:    float64(min(frameW, frameH)) * radiusPercent,
		Tolerance: tolerance,
	}
}

// Contains reports whether p lies strictly inside radius*tolerance.
func (g GuideCircle) Contains(p Point) bool {
	dist := math.Hypot(p.X-g.Center.X, p.Y-g.Center.Y)
	return dist < g.Radius*g.Tolerance
}
