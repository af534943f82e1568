package deployment

import (
	"time"

	"github.com/roach88/deployfin/internal/datemath"
)

// Countdown is a derived view of deployment progress. It is recomputed on
// every query and never stored.
type Countdown struct {
	TotalDays         int       `json:"total_days"`
	DaysComplete      int       `json:"days_complete"`
	DaysRemaining     int       `json:"days_remaining"`
	PercentComplete   float64   `json:"percent_complete"`
	MidtourDate       time.Time `json:"midtour_date"`
	MonthsDeployed    int       `json:"months_deployed"`
	WeekendsRemaining int       `json:"weekends_remaining"`
	Phase             Phase     `json:"phase"`
}

// ComputeCountdown derives the countdown for info at now.
// PercentComplete is always within [0, 100].
func ComputeCountdown(info *Info, now time.Time) Countdown {
	total := info.DurationDays()

	departed := !datemath.Day(now).Before(datemath.Day(info.DepartureDate))
	complete := 0
	if departed {
		complete = datemath.DaysSince(info.DepartureDate, now)
	}
	remaining := max(0, datemath.DaysUntil(now, info.ExpectedReturnDate))

	var pct float64
	switch {
	case total > 0:
		pct = float64(complete) / float64(total) * 100
	case departed:
		pct = 100
	}
	pct = min(100, max(0, pct))

	return Countdown{
		TotalDays:         total,
		DaysComplete:      complete,
		DaysRemaining:     remaining,
		PercentComplete:   pct,
		MidtourDate:       datemath.Midpoint(info.DepartureDate, info.ExpectedReturnDate),
		MonthsDeployed:    datemath.FloorMonths(complete),
		WeekendsRemaining: remaining / 7,
		Phase:             ClassifyInfo(info, now),
	}
}
