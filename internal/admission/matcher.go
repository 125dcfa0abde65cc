package admission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/khetha-app/khetha/internal/catalog"
	"github.com/khetha-app/khetha/pkg/types"
)

// borderlineAPSGap is the maximum APS shortfall that still classifies a
// program as borderline when all subject minimums are met.
const borderlineAPSGap = 2

// MatchPrograms evaluates an admission profile against every program in
// the catalog and returns one candidate per program, sorted
// eligible-first, then by required APS ascending (easiest reach first),
// then by university and program name so output is fully deterministic.
//
// Feasibility is always evaluated per program; there is no global
// minimum APS. Marks are matched to subject minimums by
// case-insensitive subject name.
func MatchPrograms(ap types.AdmissionProfile, programs []catalog.Program) []types.ProgramCandidate {
	candidates := make([]types.ProgramCandidate, 0, len(programs))

	marksBySubject := make(map[string]float64, len(ap.SubjectPoints))
	for _, sp := range ap.SubjectPoints {
		marksBySubject[normalizeSubject(sp.Subject)] = sp.Percentage
	}

	for _, prog := range programs {
		c := types.ProgramCandidate{
			Program:      prog.Program,
			University:   prog.University,
			RequiredAPS:  prog.RequiredAPS,
			Subjects:     prog.Subjects,
			BursaryTerms: prog.BursaryTerms,
		}

		for _, sm := range prog.Subjects {
			pct, have := marksBySubject[normalizeSubject(sm.Subject)]
			if !have || pct < sm.MinPercentage {
				c.MissedSubjects = append(c.MissedSubjects, sm)
			}
		}

		if gap := prog.RequiredAPS - ap.CurrentAPS; gap > 0 {
			c.APSGap = gap
		}

		switch {
		case len(c.MissedSubjects) > 0:
			c.Feasibility = types.FeasibilityIneligible
		case c.APSGap == 0:
			c.Feasibility = types.FeasibilityEligible
		case c.APSGap <= borderlineAPSGap:
			c.Feasibility = types.FeasibilityBorderline
		default:
			c.Feasibility = types.FeasibilityIneligible
		}

		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := feasibilityRank(a.Feasibility), feasibilityRank(b.Feasibility); ra != rb {
			return ra < rb
		}
		if a.RequiredAPS != b.RequiredAPS {
			return a.RequiredAPS < b.RequiredAPS
		}
		if a.University != b.University {
			return a.University < b.University
		}
		return a.Program < b.Program
	})

	return candidates
}

// AnyEligible reports whether at least one candidate is eligible.
// It backs AdmissionProfile.UniversityEligible.
func AnyEligible(candidates []types.ProgramCandidate) bool {
	for _, c := range candidates {
		if c.Feasibility == types.FeasibilityEligible {
			return true
		}
	}
	return false
}

// feasibilityRank orders eligible < borderline < ineligible for sorting.
func feasibilityRank(f types.Feasibility) int {
	switch f {
	case types.FeasibilityEligible:
		return 0
	case types.FeasibilityBorderline:
		return 1
	default:
		return 2
	}
}

// normalizeSubject canonicalizes subject names for matching marks to
// subject minimums. Common abbreviations map to full NSC names.
func normalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	switch s {
	case "maths", "math":
		return "mathematics"
	case "science", "physics", "physical science":
		return "physical sciences"
	case "biology", "life science":
		return "life sciences"
	case "lo":
		return "life orientation"
	}
	return s
}

// Summarize renders a short human-readable line per candidate, used by
// the query-context structurer and operator tooling.
func Summarize(c types.ProgramCandidate) string {
	switch c.Feasibility {
	case types.FeasibilityEligible:
		return fmt.Sprintf("%s at %s (APS %d required): eligible", c.Program, c.University, c.RequiredAPS)
	case types.FeasibilityBorderline:
		return fmt.Sprintf("%s at %s (APS %d required): borderline, %d APS point(s) short",
			c.Program, c.University, c.RequiredAPS, c.APSGap)
	default:
		if len(c.MissedSubjects) > 0 {
			subjects := make([]string, 0, len(c.MissedSubjects))
			for _, sm := range c.MissedSubjects {
				subjects = append(subjects, fmt.Sprintf("%s >= %.0f%%", sm.Subject, sm.MinPercentage))
			}
			return fmt.Sprintf("%s at %s: ineligible, subject minimums not met (%s)",
				c.Program, c.University, strings.Join(subjects, ", "))
		}
		return fmt.Sprintf("%s at %s: ineligible, %d APS point(s) short",
			c.Program, c.University, c.APSGap)
	}
}
