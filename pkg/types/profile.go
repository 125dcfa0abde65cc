package types

// NeedLevel describes the severity of a student's financial need as
// inferred from their own words. The zero value is NeedUnknown.
//
// High-need phrasing ("can't afford", "no money for fees") is evaluated
// before moderate-need phrasing, so a query matching both resolves to
// NeedHigh. Any level other than NeedUnknown triggers bursary-first
// module prioritization downstream.
type NeedLevel int

const (
	// NeedUnknown means no financial-need language was detected.
	NeedUnknown NeedLevel = iota

	// NeedModerate means the student signalled cost sensitivity
	// (e.g. "looking for something affordable").
	NeedModerate

	// NeedHigh means the student signalled they cannot fund study
	// without assistance (e.g. "can't afford university").
	NeedHigh
)

// String returns the lowercase name of the need level.
func (n NeedLevel) String() string {
	switch n {
	case NeedHigh:
		return "high"
	case NeedModerate:
		return "moderate"
	default:
		return "unknown"
	}
}

// Known indicates whether any financial-need signal was detected.
func (n NeedLevel) Known() bool {
	return n != NeedUnknown
}

// SubjectMark is a single NSC subject result as a percentage.
type SubjectMark struct {
	Subject    string  `json:"subject"`
	Percentage float64 `json:"percentage"`
}

// StudentProfile is the normalized view of one student request.
//
// Profiles are derived fresh per request from free text and/or structured
// assessment answers and are never persisted; the source answers may be
// stored elsewhere, but the profile itself is recomputed every time.
type StudentProfile struct {
	// Strengths and Weaknesses are subjects the student mentioned being
	// good or bad at. Both sets are accumulated by union: a subject that
	// appears in a strength phrase and is later negated stays in the set.
	// The tagger performs no negation handling.
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`

	// Interests are interest tags detected in the query (e.g.
	// "technology", "healthcare", "business").
	Interests []string `json:"interests,omitempty"`

	// NeedLevel is the detected financial-need severity.
	NeedLevel NeedLevel `json:"need_level"`

	// PriorityModules is the ordered, deduplicated list of knowledge
	// modules to emphasise during retrieval. Order is significant: the
	// re-ranker awards a larger boost to earlier entries.
	PriorityModules []string `json:"priority_modules"`

	// Marks are the student's subject percentages, when supplied.
	// An empty slice means the student is in exploratory mode and no
	// admission matching is performed.
	Marks []SubjectMark `json:"marks,omitempty"`

	// Grade is the student's school grade (e.g. 11, 12), zero when unknown.
	Grade int `json:"grade,omitempty"`

	// Motivations and Concerns carry free-text themes from structured
	// assessments (open questions). Empty for plain text queries.
	Motivations []string `json:"motivations,omitempty"`
	Concerns    []string `json:"concerns,omitempty"`
}

// HasAcademicSignal reports whether the profile carries any detected
// strength or weakness.
func (p *StudentProfile) HasAcademicSignal() bool {
	return len(p.Strengths) > 0 || len(p.Weaknesses) > 0
}

// HasMarks reports whether the student supplied marks, enabling
// admission-feasibility matching.
func (p *StudentProfile) HasMarks() bool {
	return len(p.Marks) > 0
}

// Assessment is the structured input form collected by the frontend.
// It normalizes into the same StudentProfile shape as free text.
type Assessment struct {
	Grade         int           `json:"grade,omitempty"`
	Marks         []SubjectMark `json:"marks,omitempty"`
	Interests     []string      `json:"interests,omitempty"`
	Constraints   []string      `json:"constraints,omitempty"`
	OpenQuestions []OpenAnswer  `json:"open_questions,omitempty"`
}

// OpenAnswer is one free-text answer within a structured assessment.
type OpenAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
