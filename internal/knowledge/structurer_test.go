package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khetha-app/khetha/pkg/types"
)

func TestBuildFinalContextSectionOrder(t *testing.T) {
	out := BuildFinalContext(types.StudentProfile{}, nil, nil, types.AssembledContext{})

	headers := []string{
		"STUDENT DEMOGRAPHICS",
		"ACADEMIC RESULTS",
		"CAREER PRIORITIES",
		"MOTIVATION",
		"CONCERNS",
		"CONSTRAINTS",
		"KNOWLEDGE CONTEXT",
		"INSTRUCTIONS",
	}

	last := -1
	for _, h := range headers {
		idx := strings.Index(out, "=== "+h+" ===")
		require.GreaterOrEqual(t, idx, 0, "missing header %s", h)
		assert.Greater(t, idx, last, "header %s out of order", h)
		last = idx
	}
}

func TestBuildFinalContextEmptySectionsGetPlaceholders(t *testing.T) {
	out := BuildFinalContext(types.StudentProfile{}, nil, nil, types.AssembledContext{})
	assert.GreaterOrEqual(t, strings.Count(out, sectionPlaceholder), 5)
}

func TestBuildFinalContextAcademics(t *testing.T) {
	profile := types.StudentProfile{
		Grade: 11,
		Marks: []types.SubjectMark{{Subject: "Mathematics", Percentage: 85}},
	}
	admission := &types.AdmissionProfile{
		CurrentAPS:   21,
		ProjectedAPS: 23,
		SubjectPoints: []types.SubjectPoints{
			{Subject: "Mathematics", Percentage: 85, Points: 7},
			{Subject: "Life Orientation", Percentage: 90, Points: 2, Capped: true},
		},
	}
	candidates := []types.ProgramCandidate{
		{Program: "BSc Computer Science", University: "University of Pretoria", RequiredAPS: 30, Feasibility: types.FeasibilityEligible},
		{Program: "BEng Civil", University: "Wits", RequiredAPS: 36, Feasibility: types.FeasibilityIneligible, APSGap: 15,
			MissedSubjects: []types.SubjectMinimum{{Subject: "Physical Sciences", MinPercentage: 60}}},
	}

	out := BuildFinalContext(profile, admission, candidates, types.AssembledContext{})

	assert.Contains(t, out, "Grade 11")
	assert.Contains(t, out, "Mathematics: 85% (7 points)")
	assert.Contains(t, out, "Life Orientation: 90% (2 points (capped))")
	assert.Contains(t, out, "Current APS: 21")
	assert.Contains(t, out, "BSc Computer Science at University of Pretoria: eligible")
	assert.Contains(t, out, "gap 15")
	assert.Contains(t, out, "missing: Physical Sciences (min 60%)")
}

func TestBuildFinalContextConstraintsFromNeed(t *testing.T) {
	tests := []struct {
		need types.NeedLevel
		want string
	}{
		{types.NeedHigh, "NSFAS"},
		{types.NeedModerate, "affordability"},
		{types.NeedUnknown, sectionPlaceholder},
	}

	for _, tt := range tests {
		out := BuildFinalContext(types.StudentProfile{NeedLevel: tt.need}, nil, nil, types.AssembledContext{})
		section := between(t, out, "=== CONSTRAINTS ===", "=== KNOWLEDGE CONTEXT ===")
		assert.Contains(t, section, tt.want)
	}
}

func TestBuildFinalContextDegradedNote(t *testing.T) {
	assembled := types.AssembledContext{
		Meta: types.ContextMeta{Degraded: true, DegradedReason: "search unavailable"},
	}
	out := BuildFinalContext(types.StudentProfile{}, nil, nil, assembled)
	assert.Contains(t, out, "retrieval was unavailable")
}

func TestBuildFinalContextFrameworkInstruction(t *testing.T) {
	assembled := types.AssembledContext{
		Frameworks: []types.DetectedFramework{{Name: "V.I.S. Model", SourceModule: types.ModuleCareers}},
	}
	out := BuildFinalContext(types.StudentProfile{}, nil, nil, assembled)
	assert.Contains(t, out, "V.I.S. Model")
}

func between(t *testing.T, s, start, end string) string {
	t.Helper()
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	require.GreaterOrEqual(t, i, 0)
	require.Greater(t, j, i)
	return s[i:j]
}
