// Package matching implements the candidate pipeline: preference and
// distance filtering over raw similarity results, compatibility scoring,
// and final participant selection.
package matching

import (
	"math"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/vector"
)

const (
	earthRadiusKm  = 6371.0
	kmToMiles      = 0.621371
	degreesToRad   = math.Pi / 180.0
	// Oversample factor applied to index queries to compensate for
	// post-query filtering attrition.
	OversampleFactor = 2
)

// Candidate is a similarity-search hit that survived filtering.
type Candidate struct {
	UserID        int
	Score         float64
	DistanceMiles int
	Metadata      vector.Metadata
}

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degreesToRad
	dLon := (lon2 - lon1) * degreesToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degreesToRad)*math.Cos(lat2*degreesToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceMiles converts the haversine distance to whole miles, floored.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) int {
	return int(math.Floor(HaversineKm(lat1, lon1, lat2, lon2) * kmToMiles))
}

// FilterOptions controls the optional stages of candidate filtering.
type FilterOptions struct {
	ApplyScoreFilter    bool
	MinScore            float64
	ApplyDistanceFilter bool
	DefaultMaxDistance  int
}

// BuildPreferenceFilter compiles the user's hard preferences into the
// metadata predicate pushed down to the index. Age bounds cannot be
// expressed as equality or set membership, so they are enforced after the
// query in FilterCandidates.
func BuildPreferenceFilter(user *domain.User) vector.Filter {
	f := vector.Filter{
		Equals: map[string]any{"isPodcastActive": false},
		In:     map[string][]string{},
	}
	if genders := user.Preferences.Genders; len(genders) > 0 {
		vals := make([]string, len(genders))
		for i, g := range genders {
			vals[i] = string(g)
		}
		f.In["gender"] = vals
	}
	if bodies := user.Preferences.BodyTypes; len(bodies) > 0 {
		vals := make([]string, len(bodies))
		for i, b := range bodies {
			vals[i] = string(b)
		}
		f.In["bodyType"] = vals
	}
	if eths := user.Preferences.Ethnicities; len(eths) > 0 {
		vals := make([]string, len(eths))
		for i, e := range eths {
			vals[i] = string(e)
		}
		f.In["ethnicity"] = vals
	}
	return f
}

// FilterCandidates applies, in order: self-exclusion, the
// missing-coordinates drop, the minimum similarity cutoff, the age-range
// check the index could not express, and the great-circle distance cutoff.
// The result is truncated to topK after filtering.
func FilterCandidates(user *domain.User, matches []vector.Match, topK int, opts FilterOptions) []Candidate {
	maxDistance := opts.DefaultMaxDistance
	if user.Preferences.MaxDistanceMiles != nil {
		maxDistance = *user.Preferences.MaxDistanceMiles
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		if m.ID == user.ID {
			continue
		}
		if m.Metadata.Latitude == nil || m.Metadata.Longitude == nil {
			continue
		}
		if opts.ApplyScoreFilter && m.Score < opts.MinScore {
			continue
		}
		if user.Preferences.AgeMin > 0 && m.Metadata.Age < user.Preferences.AgeMin {
			continue
		}
		if user.Preferences.AgeMax > 0 && m.Metadata.Age > user.Preferences.AgeMax {
			continue
		}

		distance := 0
		if user.HasCoordinates() {
			distance = DistanceMiles(
				*user.Location.Lat, *user.Location.Lon,
				*m.Metadata.Latitude, *m.Metadata.Longitude,
			)
			if opts.ApplyDistanceFilter && distance > maxDistance {
				continue
			}
		}

		candidates = append(candidates, Candidate{
			UserID:        m.ID,
			Score:         m.Score,
			DistanceMiles: distance,
			Metadata:      m.Metadata,
		})
		if len(candidates) == topK {
			break
		}
	}
	return candidates
}
