package cli

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/datemath"
)

func parseDate(name, value string) (time.Time, error) {
	t, err := datemath.ParseDate(value)
	if err != nil {
		return time.Time{}, usageError("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}

func parseMoney(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, usageError("%s: expected an amount, got %q", name, value)
	}
	return d, nil
}

// changedDate returns the parsed flag value, or nil if the flag was not set.
func changedDate(cmd *cobra.Command, name, value string) (*time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	t, err := parseDate(name, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// changedMoney returns the parsed flag value, or nil if the flag was not set.
func changedMoney(cmd *cobra.Command, name, value string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	d, err := parseMoney("--"+name, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// changedBool returns the flag value, or nil if the flag was not set.
func changedBool(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

// parsePayload validates a JSON payload argument.
func parsePayload(s string) (json.RawMessage, error) {
	if s == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, usageError("payload is not valid JSON: %s", s)
	}
	return json.RawMessage(s), nil
}
