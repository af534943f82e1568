package deployment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPhase_PreDeploymentWindow(t *testing.T) {
	departure := day("2024-06-01")
	expected := day("2024-12-01")

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"day 91 before", departure.AddDate(0, 0, -91), PhaseNotDeployed},
		{"day 90 before", departure.AddDate(0, 0, -90), PhasePreDeployment},
		{"day before", departure.AddDate(0, 0, -1), PhasePreDeployment},
		{"far future plan", departure.AddDate(-1, 0, 0), PhaseNotDeployed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPhase(departure, expected, nil, tt.now))
		})
	}
}

func TestClassifyPhase_DeployedWindow(t *testing.T) {
	departure := day("2024-01-01")
	expected := day("2024-10-01")

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"departure day", departure, PhaseDeployment},
		{"late in departure day", departure.Add(23 * time.Hour), PhaseDeployment},
		{"31 days out", expected.AddDate(0, 0, -31), PhaseDeployment},
		{"30 days out", expected.AddDate(0, 0, -30), PhaseRedeployment},
		{"return day", expected, PhaseRedeployment},
		{"overdue", expected.AddDate(0, 0, 10), PhaseRedeployment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPhase(departure, expected, nil, tt.now))
		})
	}
}

func TestClassifyPhase_ActualReturnWins(t *testing.T) {
	departure := day("2024-01-01")
	expected := day("2024-10-01")
	actual := day("2024-09-15")

	assert.Equal(t, PhasePostDeployment, ClassifyPhase(departure, expected, &actual, actual))
	assert.Equal(t, PhasePostDeployment, ClassifyPhase(departure, expected, &actual, actual.AddDate(0, 0, 90)))
	assert.Equal(t, PhaseNotDeployed, ClassifyPhase(departure, expected, &actual, actual.AddDate(0, 0, 91)))

	// Still "deployed" by the planned dates, but the actual return decides.
	assert.Equal(t, PhasePostDeployment, ClassifyPhase(departure, expected, &actual, day("2024-09-20")))
}

func TestPhase_Deployed(t *testing.T) {
	assert.True(t, PhaseDeployment.Deployed())
	assert.True(t, PhaseRedeployment.Deployed())
	assert.False(t, PhasePreDeployment.Deployed())
	assert.False(t, PhasePostDeployment.Deployed())
	assert.False(t, PhaseNotDeployed.Deployed())
}
