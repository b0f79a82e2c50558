package facematch

import (
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

// Best scans stored descriptors and returns the closest one. Ties keep the
// first candidate seen. A match requires distance strictly below threshold.
// Stored vectors whose length differs from probe are skipped.
func Best(probe embedding.Vector, stored []embedding.Vector, threshold float64) Result {
	res := noResult()
	for i, v := range stored {
		d, err := embedding.Distance(probe, v)
		if err != nil {
			continue
		}
		res.Compared++
		if d < res.Distance {
			res.Distance = d
			res.Index = i
		}
	}
	res.Matched = res.Index >= 0 && res.Distance < threshold
	return res
}

// MatchCandidates decodes each candidate and matches probe against the valid ones.
// Empty, malformed and wrong-dimension candidates are counted in Skipped.
func MatchCandidates(probe embedding.Vector, candidates []Candidate, threshold float64) CandidateResult {
	vectors := make([]embedding.Vector, 0, len(candidates))
	owners := make([]int, 0, len(candidates))

	var out CandidateResult
	for i := range candidates {
		v, err := embedding.DecodeDim(candidates[i].Embedding, len(probe))
		if err != nil {
			out.Skipped++
			continue
		}
		vectors = append(vectors, v)
		owners = append(owners, i)
	}

	out.Result = Best(probe, vectors, threshold)
	if out.Index >= 0 {
		out.Index = owners[out.Index]
		if out.Matched {
			out.Candidate = &candidates[out.Index]
		}
	}
	return out
}

// MatchIdentities matches probe against stored identities. It returns the
// matched identity, or nil with the best distance seen.
func MatchIdentities(probe embedding.Vector, identities []database.Identity, threshold float64) (*database.Identity, Result) {
	stored := make([]embedding.Vector, len(identities))
	for i := range identities {
		stored[i] = identities[i].Embedding
	}

	res := Best(probe, stored, threshold)
	if !res.Matched {
		return nil, res
	}
	return &identities[res.Index], res
}
