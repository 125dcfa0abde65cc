package admission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khetha-app/khetha/pkg/types"
)

func TestPointsForPercentage_BandEdges(t *testing.T) {
	tests := []struct {
		pct  float64
		want int
	}{
		{100, 7},
		{80, 7}, // exact edge maps to the higher band
		{79.9, 6},
		{70, 6},
		{69, 5},
		{60, 5},
		{59.5, 4},
		{50, 4},
		{40, 3},
		{39, 2},
		{30, 2},
		{29.9, 1},
		{0, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PointsForPercentage(tt.pct), "pct=%v", tt.pct)
	}
}

func TestComputeAPS_LifeOrientationCap(t *testing.T) {
	ap, err := ComputeAPS([]types.SubjectMark{
		{Subject: "Mathematics", Percentage: 85},
		{Subject: "English", Percentage: 70},
		{Subject: "Physical Sciences", Percentage: 75},
		{Subject: "Life Orientation", Percentage: 90},
	})
	require.NoError(t, err)

	// 7 + 6 + 6 + capped 2 = 21
	assert.Equal(t, 21, ap.CurrentAPS)

	require.Len(t, ap.SubjectPoints, 4)
	assert.Equal(t, 7, ap.SubjectPoints[0].Points)
	assert.Equal(t, 6, ap.SubjectPoints[1].Points)
	assert.Equal(t, 6, ap.SubjectPoints[2].Points)
	assert.Equal(t, 2, ap.SubjectPoints[3].Points)
	assert.True(t, ap.SubjectPoints[3].Capped)
}

func TestComputeAPS_LifeOrientationBelowCapNotFlagged(t *testing.T) {
	ap, err := ComputeAPS([]types.SubjectMark{
		{Subject: "Life Orientation", Percentage: 35},
	})
	require.NoError(t, err)

	// 35% maps to 2 points, which the cap does not reduce.
	assert.Equal(t, 2, ap.CurrentAPS)
	assert.False(t, ap.SubjectPoints[0].Capped)
}

func TestComputeAPS_Deterministic(t *testing.T) {
	marks := []types.SubjectMark{
		{Subject: "Mathematics", Percentage: 67},
		{Subject: "English", Percentage: 51},
		{Subject: "Accounting", Percentage: 80},
	}

	first, err := ComputeAPS(marks)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ComputeAPS(marks)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeAPS_ProjectedAPS(t *testing.T) {
	ap, err := ComputeAPS([]types.SubjectMark{
		{Subject: "Mathematics", Percentage: 67}, // 5 now, 6 projected (72)
		{Subject: "English", Percentage: 98},     // 7 now, 7 projected (capped at 100)
		{Subject: "Life Orientation", Percentage: 78}, // capped at 2 both ways
	})
	require.NoError(t, err)

	assert.Equal(t, 5+7+2, ap.CurrentAPS)
	assert.Equal(t, 6+7+2, ap.ProjectedAPS)
}

func TestComputeAPS_InvalidMarks(t *testing.T) {
	tests := []struct {
		name  string
		marks []types.SubjectMark
	}{
		{
			name:  "percentage above 100",
			marks: []types.SubjectMark{{Subject: "Mathematics", Percentage: 101}},
		},
		{
			name:  "negative percentage",
			marks: []types.SubjectMark{{Subject: "English", Percentage: -1}},
		},
		{
			name: "empty subject name",
			marks: []types.SubjectMark{
				{Subject: "Mathematics", Percentage: 70},
				{Subject: "  ", Percentage: 55},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeAPS(tt.marks)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMarks))
		})
	}
}

func TestComputeAPS_EmptyInput(t *testing.T) {
	ap, err := ComputeAPS(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ap.CurrentAPS)
	assert.Empty(t, ap.SubjectPoints)
}
