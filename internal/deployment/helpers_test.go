package deployment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/refdata"
)

var day = datemath.MustDate

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func rates() refdata.PayRates {
	return refdata.MustDefaults().PayRates
}

func tourInfo() *Info {
	return &Info{
		ID:                 "dep-1",
		IsActive:           true,
		Type:               TypeCombat,
		DepartureDate:      day("2024-01-01"),
		ExpectedReturnDate: day("2024-10-01"),
		Location:           Location{Country: "Kuwait", IsHazardous: true, Connectivity: ConnectivityLimited},
		PayAdjustments:     DefaultPayAdjustments(),
	}
}
