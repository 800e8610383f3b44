package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDominance(t *testing.T) {
	obs := []DemographicObservation{
		{Label: "Gangnam-gu", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 40},
		{Label: "Gangnam-gu", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 20},
		{Label: "Gangnam-gu", Date: month(2024, 1), Sex: "M", AgeGroup: "30s", Value: 50},
		{Label: "Gangnam-gu", Date: month(2024, 1), Sex: "F", AgeGroup: "40s", Value: 10},
	}
	out := ComputeDominance(obs)
	require.Len(t, out, 1)

	d := out[0]
	assert.Equal(t, "F:20s", d.Group) // 40+20 beats 50
	require.NotNil(t, d.Share)
	assert.InDelta(t, 0.5, *d.Share, 1e-9) // 60 of 120
}

func TestComputeDominanceTieBreaksLexicographically(t *testing.T) {
	obs := []DemographicObservation{
		{Label: "A", Date: month(2024, 1), Sex: "M", AgeGroup: "30s", Value: 50},
		{Label: "A", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 50},
	}
	out := ComputeDominance(obs)
	require.Len(t, out, 1)
	assert.Equal(t, "F:20s", out[0].Group)
}

func TestComputeDominanceZeroTotal(t *testing.T) {
	obs := []DemographicObservation{
		{Label: "A", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 0},
		{Label: "A", Date: month(2024, 1), Sex: "M", AgeGroup: "30s", Value: 0},
	}
	out := ComputeDominance(obs)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Share)
	assert.Equal(t, "F:20s", out[0].Group)
}

func TestComputeDominancePerCell(t *testing.T) {
	obs := []DemographicObservation{
		{Label: "A", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 10},
		{Label: "A", Date: month(2024, 2), Sex: "M", AgeGroup: "60s", Value: 5},
		{Label: "B", Date: month(2024, 1), Sex: "M", AgeGroup: "30s", Value: 7},
	}
	out := ComputeDominance(obs)
	require.Len(t, out, 3)

	// Ordered by (label, date).
	assert.Equal(t, "A", out[0].Label)
	assert.Equal(t, month(2024, 1), out[0].Date)
	assert.Equal(t, "F:20s", out[0].Group)
	assert.Equal(t, "A", out[1].Label)
	assert.Equal(t, "M:60s", out[1].Group)
	assert.Equal(t, "B", out[2].Label)
	assert.Equal(t, "M:30s", out[2].Group)
}

func TestComputeDominanceDeterministic(t *testing.T) {
	obs := []DemographicObservation{
		{Label: "A", Date: month(2024, 1), Sex: "F", AgeGroup: "20s", Value: 3},
		{Label: "B", Date: month(2024, 2), Sex: "M", AgeGroup: "50s", Value: 4},
		{Label: "A", Date: month(2024, 2), Sex: "F", AgeGroup: "30s", Value: 5},
	}
	assert.Equal(t, ComputeDominance(obs), ComputeDominance(obs))
}
