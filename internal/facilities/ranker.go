package facilities

import (
	"math"
	"sort"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
)

const maxRanked = 5

// Rank scores candidates for referral and returns the top results, highest
// score first. Scoring is additive:
//
//	+3.0 when specialtyNeeded is set and the candidate covers it
//	+3.0 when urgency is RED and the candidate has trauma capability
//	+max(0, 5 - eta/12) always, a linear decay reaching zero at 60 minutes
//
// Ties keep input order. Scores are rounded to two decimals for
// presentation.
func Rank(candidates []Candidate, specialtyNeeded, urgency string) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score := 0.0
		why := []string{}
		if specialtyNeeded != "" && hasSpecialty(c, specialtyNeeded) {
			score += 3.0
			why = append(why, "specialty match")
		}
		if urgency == agents.TriageRed && c.TraumaLevel >= 1 {
			score += 3.0
			why = append(why, "trauma-ready")
		}
		score += math.Max(0, 5.0-c.ETAMinutes/12.0)
		why = append(why, "ETA considered")
		ranked = append(ranked, Ranked{
			FacilityID: c.ID,
			Name:       c.Name,
			Score:      math.Round(score*100) / 100,
			Why:        why,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > maxRanked {
		ranked = ranked[:maxRanked]
	}
	return ranked
}

func hasSpecialty(c Candidate, specialty string) bool {
	for _, s := range c.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}
