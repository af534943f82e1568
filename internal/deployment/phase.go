package deployment

import (
	"time"

	"github.com/roach88/deployfin/internal/datemath"
)

// Phase window lengths in calendar days.
const (
	PreDeploymentWindowDays  = 90
	PostDeploymentWindowDays = 90
	RedeploymentWindowDays   = 30
)

// ClassifyPhase maps a deployment's key dates to its phase at now.
//
// Rules, in order:
//  1. With an actual return date: post_deployment for 90 days after it,
//     then not_deployed.
//  2. Before departure: pre_deployment within 90 days of it, otherwise
//     not_deployed.
//  3. Otherwise: redeployment within 30 days of the expected return,
//     otherwise deployment.
//
// Every input produces a phase; there is no error case.
func ClassifyPhase(departure, expectedReturn time.Time, actualReturn *time.Time, now time.Time) Phase {
	if actualReturn != nil {
		if datemath.DaysSince(*actualReturn, now) <= PostDeploymentWindowDays {
			return PhasePostDeployment
		}
		return PhaseNotDeployed
	}

	if datemath.Day(now).Before(datemath.Day(departure)) {
		if datemath.DaysUntil(now, departure) <= PreDeploymentWindowDays {
			return PhasePreDeployment
		}
		return PhaseNotDeployed
	}

	if datemath.DaysUntil(now, expectedReturn) <= RedeploymentWindowDays {
		return PhaseRedeployment
	}
	return PhaseDeployment
}

// ClassifyInfo is ClassifyPhase over a deployment record.
func ClassifyInfo(info *Info, now time.Time) Phase {
	return ClassifyPhase(info.DepartureDate, info.ExpectedReturnDate, info.ActualReturnDate, now)
}

// Deployed reports whether the phase means the member is away.
func (p Phase) Deployed() bool {
	return p == PhaseDeployment || p == PhaseRedeployment
}
