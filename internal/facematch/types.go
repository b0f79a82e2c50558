// Package facematch identifies a probe face among stored descriptors and
// holds the capture geometry helpers shared by the CLI and the gateway.
package facematch

import (
	"errors"
	"math"
)

// ErrNoMatch is returned when no stored face is closer than the threshold.
var ErrNoMatch = errors.New("face not recognized")

// Result is the outcome of a linear scan over stored descriptors.
type Result struct {
	Matched  bool
	Index    int     // index of the best candidate, -1 when nothing was compared
	Distance float64 // best distance seen, +Inf when nothing was compared
	Compared int     // candidates actually compared
}

func noResult() Result {
	return Result{Index: -1, Distance: math.Inf(1)}
}

// Candidate is a stored face with its descriptor still in wire form.
type Candidate struct {
	ID        int64
	Name      string
	Email     string
	Embedding string
}

// CandidateResult extends Result with the matched candidate and the number of
// candidates that could not be decoded.
type CandidateResult struct {
	Result
	Candidate *Candidate
	Skipped   int
}
