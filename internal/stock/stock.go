// Package stock searches stock footage and picks the best clip for a query.
//
// Scoring is a pure weighted sum over duration, resolution tier and
// closeness to a 9:16 portrait frame. Clips shorter than MinDuration are
// disqualified outright and are never selected.
package stock

import (
	"errors"
	"math"
	"strings"
)

// ErrNoSuitableAsset is returned when no candidate qualifies for a query.
// Callers skip the query; it is not fatal on its own.
var ErrNoSuitableAsset = errors.New("stock: no suitable asset")

// MinDuration is the shortest usable clip, in seconds.
const MinDuration = 10.0

const portraitRatio = 9.0 / 16.0

// Rendition is one downloadable encoding of a candidate.
type Rendition struct {
	Quality string
	Width   int
	Height  int
	Link    string
}

// Candidate is one stock video returned by a search.
type Candidate struct {
	ID         int64
	Duration   float64
	Width      int
	Height     int
	Author     string
	PageURL    string
	Renditions []Rendition
}

// MediaScore is the fitness of a candidate. Disqualified candidates carry Value -1.
type MediaScore struct {
	Value        float64
	Disqualified bool
}

// Selection is the winning candidate for a query and the rendition to fetch.
type Selection struct {
	Query     string
	Candidate Candidate
	Rendition Rendition
	Score     MediaScore
}

// Score rates c. The query is accepted for parity with search relevance and
// does not change the result; search order already encodes relevance.
func Score(c Candidate, _ string) MediaScore {
	if c.Duration < MinDuration {
		return MediaScore{Value: -1, Disqualified: true}
	}

	value := durationPoints(c.Duration) +
		tierPoints(c.Renditions) +
		aspectPoints(c.Width, c.Height) +
		10
	return MediaScore{Value: value}
}

func durationPoints(d float64) float64 {
	switch {
	case d <= 15:
		return 40
	case d <= 20:
		return 30 - (d - 15)
	default:
		return 10
	}
}

func tierPoints(renditions []Rendition) float64 {
	var hasHD, hasUHD bool
	for _, r := range renditions {
		switch tierRank(r.Quality) {
		case 3:
			hasUHD = true
		case 2:
			hasHD = true
		}
	}
	switch {
	case hasUHD:
		return 30
	case hasHD:
		return 25
	default:
		return 10
	}
}

func aspectPoints(width, height int) float64 {
	if height <= 0 {
		return 0
	}
	diff := math.Abs(float64(width)/float64(height) - portraitRatio)
	switch {
	case diff < 0.05:
		return 20
	case diff < 0.10:
		return 15
	case diff < 0.20:
		return 10
	default:
		return 5
	}
}

// tierRank orders quality labels: uhd/4k > hd > sd > everything else.
func tierRank(quality string) int {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "uhd", "4k":
		return 3
	case "hd":
		return 2
	case "sd":
		return 1
	default:
		return 0
	}
}

// Select returns the highest scoring candidate for query. Ties go to the
// first candidate seen. It returns ErrNoSuitableAsset when candidates is
// empty, every candidate is disqualified, or the winner has nothing to fetch.
func Select(candidates []Candidate, query string) (*Selection, error) {
	var (
		best      *Candidate
		bestScore MediaScore
	)
	for i := range candidates {
		s := Score(candidates[i], query)
		if s.Disqualified {
			continue
		}
		if best == nil || s.Value > bestScore.Value {
			best = &candidates[i]
			bestScore = s
		}
	}
	if best == nil {
		return nil, ErrNoSuitableAsset
	}

	rendition, ok := BestRendition(best.Renditions)
	if !ok {
		return nil, ErrNoSuitableAsset
	}

	return &Selection{
		Query:     query,
		Candidate: *best,
		Rendition: rendition,
		Score:     bestScore,
	}, nil
}

// BestRendition picks the rendition with the highest tier, then the largest
// pixel area. Renditions without a quality label or a link are ignored.
func BestRendition(renditions []Rendition) (Rendition, bool) {
	var (
		best  Rendition
		found bool
	)
	for _, r := range renditions {
		if strings.TrimSpace(r.Quality) == "" || r.Link == "" {
			continue
		}
		if !found || renditionBetter(r, best) {
			best = r
			found = true
		}
	}
	return best, found
}

func renditionBetter(a, b Rendition) bool {
	ra, rb := tierRank(a.Quality), tierRank(b.Quality)
	if ra != rb {
		return ra > rb
	}
	return a.Width*a.Height > b.Width*b.Height
}
