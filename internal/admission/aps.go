// Package admission computes Admission Point Scores (APS) from NSC
// subject marks and matches them against a university program catalog.
//
// Everything in this package is deterministic pure computation: given
// identical marks and catalog, output is byte-for-byte reproducible.
package admission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/khetha-app/khetha/pkg/types"
)

// ErrInvalidMarks indicates a malformed mark entry: an empty subject
// name or a percentage outside [0,100]. The whole input is rejected;
// out-of-range values are never clamped or defaulted.
var ErrInvalidMarks = errors.New("invalid marks")

// lifeOrientationCap is the maximum points Life Orientation contributes,
// applied independently of the general band mapping.
const lifeOrientationCap = 2

// projectedImprovement is the per-subject percentage-point uplift used
// for the projected APS.
const projectedImprovement = 5.0

// PointsForPercentage maps a percentage mark to NSC admission points.
// Band edges map to the higher value: exactly 80 scores 7, 79 scores 6.
func PointsForPercentage(pct float64) int {
	switch {
	case pct >= 80:
		return 7
	case pct >= 70:
		return 6
	case pct >= 60:
		return 5
	case pct >= 50:
		return 4
	case pct >= 40:
		return 3
	case pct >= 30:
		return 2
	default:
		return 1
	}
}

// isLifeOrientation reports whether a subject name designates Life
// Orientation or an equivalent.
func isLifeOrientation(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	return s == "life orientation" || s == "lo"
}

// ComputeAPS derives an AdmissionProfile from subject marks.
//
// Each subject contributes points under the NSC band mapping; Life
// Orientation is capped at 2 points regardless of its raw score. The
// projected APS assumes each subject improves by five percentage points
// (capped at 100) and re-applies the same banding.
//
// Returns ErrInvalidMarks when any entry has an empty subject name or a
// percentage outside [0,100]; the whole input is rejected in that case.
func ComputeAPS(marks []types.SubjectMark) (types.AdmissionProfile, error) {
	if err := validateMarks(marks); err != nil {
		return types.AdmissionProfile{}, err
	}

	ap := types.AdmissionProfile{
		SubjectPoints: make([]types.SubjectPoints, 0, len(marks)),
	}

	for _, m := range marks {
		points := PointsForPercentage(m.Percentage)
		projected := PointsForPercentage(min(m.Percentage+projectedImprovement, 100))

		capped := false
		if isLifeOrientation(m.Subject) {
			if points > lifeOrientationCap {
				points = lifeOrientationCap
				capped = true
			}
			if projected > lifeOrientationCap {
				projected = lifeOrientationCap
			}
		}

		ap.CurrentAPS += points
		ap.ProjectedAPS += projected
		ap.SubjectPoints = append(ap.SubjectPoints, types.SubjectPoints{
			Subject:    m.Subject,
			Percentage: m.Percentage,
			Points:     points,
			Capped:     capped,
		})
	}

	return ap, nil
}

// validateMarks rejects malformed entries up front so callers never see
// a partially-computed profile.
func validateMarks(marks []types.SubjectMark) error {
	for i, m := range marks {
		if strings.TrimSpace(m.Subject) == "" {
			return fmt.Errorf("%w: entry %d has an empty subject name", ErrInvalidMarks, i)
		}
		if m.Percentage < 0 || m.Percentage > 100 {
			return fmt.Errorf("%w: %s has percentage %v outside [0,100]",
				ErrInvalidMarks, m.Subject, m.Percentage)
		}
	}
	return nil
}
