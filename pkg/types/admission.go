package types

// Feasibility classifies a student's admission chances for one program.
type Feasibility string

const (
	// FeasibilityEligible means the APS requirement and every
	// subject-specific minimum are met.
	FeasibilityEligible Feasibility = "eligible"

	// FeasibilityBorderline means all subject minimums are met and the
	// APS shortfall is at most two points.
	FeasibilityBorderline Feasibility = "borderline"

	// FeasibilityIneligible means the APS shortfall exceeds two points
	// or a subject minimum is not met.
	FeasibilityIneligible Feasibility = "ineligible"
)

// SubjectPoints is one subject's contribution to the APS total.
type SubjectPoints struct {
	Subject    string  `json:"subject"`
	Percentage float64 `json:"percentage"`
	Points     int     `json:"points"`

	// Capped is true when the Life Orientation cap reduced the points
	// below the value the general band mapping would have produced.
	Capped bool `json:"capped,omitempty"`
}

// AdmissionProfile is the APS view of a student's marks.
type AdmissionProfile struct {
	// CurrentAPS is the sum of per-subject points under the NSC band
	// mapping, with Life Orientation capped at 2.
	CurrentAPS int `json:"current_aps"`

	// ProjectedAPS is the APS recomputed under a modest improvement
	// assumption (each subject up five percentage points, re-banded).
	ProjectedAPS int `json:"projected_aps"`

	// UniversityEligible reports whether any program in the consulted
	// catalog classifies the student as eligible. There is no global
	// APS threshold; eligibility is always per-program.
	UniversityEligible bool `json:"university_eligible"`

	// SubjectPoints lists each counted subject in input order.
	SubjectPoints []SubjectPoints `json:"subject_points"`
}

// SubjectMinimum is a program's per-subject admission requirement.
type SubjectMinimum struct {
	Subject       string  `json:"subject" yaml:"subject"`
	MinPercentage float64 `json:"min_percentage" yaml:"min_percentage"`
}

// ProgramCandidate is one catalog program evaluated against an
// AdmissionProfile.
type ProgramCandidate struct {
	Program     string           `json:"program"`
	University  string           `json:"university"`
	RequiredAPS int              `json:"required_aps"`
	Subjects    []SubjectMinimum `json:"subjects,omitempty"`
	Feasibility Feasibility      `json:"feasibility"`

	// APSGap is requiredAPS - currentAPS when positive, zero otherwise.
	APSGap int `json:"aps_gap,omitempty"`

	// MissedSubjects lists subject minimums the student did not meet.
	MissedSubjects []SubjectMinimum `json:"missed_subjects,omitempty"`

	// BursaryTerms passes through any funding notes attached to the
	// program in the catalog.
	BursaryTerms string `json:"bursary_terms,omitempty"`
}
