// Package geo finds the nearest candidate to a query point and reads and writes the coordinate files the
// nearest-point pipeline consumes.
package geo

import (
	"errors"
	"math"
	"strconv"
)

// DefaultCandidates is the number of candidate points in each task.
const DefaultCandidates = 100

// ErrNoCandidates is returned by Nearest for a task without candidates.
var ErrNoCandidates = errors.New("geo: task has no candidate points")

// Point is a location in the plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) String() string {
	return "X: " + formatFloat(p.X) + " Y: " + formatFloat(p.Y)
}

// Task asks for the candidate closest to Point.
type Task struct {
	Point      Point   `json:"point"`
	Candidates []Point `json:"candidates"`
}

// Result is the answer to a Task.
type Result struct {
	Query    Point   `json:"query"`
	Closest  Point   `json:"closest"`
	Distance float64 `json:"distance"`
}

func (r Result) String() string {
	return "Closest point to " + r.Query.String() + " is " + r.Closest.String() + " with distance " + formatFloat(r.Distance)
}

// Nearest scans the candidates of t. Ties go to the candidate listed first.
func Nearest(t Task) (Result, error) {
	if len(t.Candidates) == 0 {
		return Result{}, ErrNoCandidates
	}

	res := Result{Query: t.Point, Distance: math.Inf(1)}
	for _, c := range t.Candidates {
		if d := t.Point.Distance(c); d < res.Distance {
			res.Closest = c
			res.Distance = d
		}
	}
	return res, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
