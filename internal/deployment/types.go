package deployment

import (
	"time"

	"github.com/roach88/deployfin/internal/datemath"
)

// Phase is the temporal stage of a deployment.
type Phase string

const (
	PhasePreDeployment  Phase = "pre_deployment"
	PhaseDeployment     Phase = "deployment"
	PhaseRedeployment   Phase = "redeployment"
	PhasePostDeployment Phase = "post_deployment"
	PhaseNotDeployed    Phase = "not_deployed"
)

// Type is the kind of deployment.
type Type string

const (
	TypeCombat       Type = "combat"
	TypeContingency  Type = "contingency"
	TypePeacekeeping Type = "peacekeeping"
	TypeHumanitarian Type = "humanitarian"
	TypeTraining     Type = "training"
	TypeTDY          Type = "tdy"
	TypeSeaDuty      Type = "sea_duty"
	TypeOther        Type = "other"
)

// Types lists every deployment type in display order.
var Types = []Type{
	TypeCombat, TypeContingency, TypePeacekeeping, TypeHumanitarian,
	TypeTraining, TypeTDY, TypeSeaDuty, TypeOther,
}

// Valid reports whether t is a known deployment type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Connectivity describes how reliably the deployed member can get online.
type Connectivity string

const (
	ConnectivityFull         Connectivity = "full"
	ConnectivityLimited      Connectivity = "limited"
	ConnectivityIntermittent Connectivity = "intermittent"
	ConnectivityNone         Connectivity = "none"
)

// Valid reports whether c is a known connectivity tier. Empty is treated
// as unknown and rejected.
func (c Connectivity) Valid() bool {
	switch c {
	case ConnectivityFull, ConnectivityLimited, ConnectivityIntermittent, ConnectivityNone:
		return true
	}
	return false
}

// Location is where the member is deployed.
type Location struct {
	Country      string       `json:"country"`
	Region       string       `json:"region,omitempty"`
	IsHazardous  bool         `json:"is_hazardous"`
	Connectivity Connectivity `json:"connectivity"`
}

// Info is a deployment record.
//
// INVARIANTS:
//   - DepartureDate <= ExpectedReturnDate
//   - Phase == ClassifyPhase(DepartureDate, ExpectedReturnDate, ActualReturnDate, now)
//     as of the last recompute; it is a cache, never a source of truth
type Info struct {
	ID                  string         `json:"id"`
	IsActive            bool           `json:"is_active"`
	Phase               Phase          `json:"phase"`
	Type                Type           `json:"type"`
	DepartureDate       time.Time      `json:"departure_date"`
	ExpectedReturnDate  time.Time      `json:"expected_return_date"`
	ActualReturnDate    *time.Time     `json:"actual_return_date,omitempty"`
	Location            Location       `json:"location"`
	PayAdjustments      PayAdjustments `json:"pay_adjustments"`
	FamilyBudgetEnabled bool           `json:"family_budget_enabled"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// DurationDays is the planned length of the deployment in calendar days.
func (i *Info) DurationDays() int {
	return datemath.DaysBetween(i.DepartureDate, i.ExpectedReturnDate)
}

// Clone returns a deep copy.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	c := *i
	if i.ActualReturnDate != nil {
		t := *i.ActualReturnDate
		c.ActualReturnDate = &t
	}
	return &c
}

// ValidateDates checks the ordering invariant.
func ValidateDates(departure, expectedReturn time.Time) error {
	if datemath.Day(departure).After(datemath.Day(expectedReturn)) {
		return newError(ErrInvalidDates, "departure %s is after expected return %s",
			departure.Format(datemath.DateLayout), expectedReturn.Format(datemath.DateLayout))
	}
	return nil
}

// Update is a partial change to a deployment. Nil fields are left as-is.
type Update struct {
	Type                *Type
	DepartureDate       *time.Time
	ExpectedReturnDate  *time.Time
	Location            *Location
	FamilyBudgetEnabled *bool
}

// Apply returns info with the update applied, or an error if the result
// would break an invariant. info itself is never modified.
func (u Update) Apply(info *Info) (*Info, error) {
	next := info.Clone()
	if u.Type != nil {
		if !u.Type.Valid() {
			return nil, newError(ErrInvalidValue, "unknown deployment type %q", *u.Type)
		}
		next.Type = *u.Type
	}
	if u.DepartureDate != nil {
		next.DepartureDate = *u.DepartureDate
	}
	if u.ExpectedReturnDate != nil {
		next.ExpectedReturnDate = *u.ExpectedReturnDate
	}
	if u.Location != nil {
		if !u.Location.Connectivity.Valid() {
			return nil, newError(ErrInvalidValue, "unknown connectivity %q", u.Location.Connectivity)
		}
		next.Location = *u.Location
	}
	if u.FamilyBudgetEnabled != nil {
		next.FamilyBudgetEnabled = *u.FamilyBudgetEnabled
	}
	if err := ValidateDates(next.DepartureDate, next.ExpectedReturnDate); err != nil {
		return nil, err
	}
	return next, nil
}
