package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())

	c.AdvanceDays(91)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), c.Now())

	c.Advance(6 * time.Hour)
	assert.Equal(t, 6, c.Now().Hour())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("item")

	assert.Equal(t, "item-1", g.Generate())
	assert.Equal(t, "item-2", g.Generate())

	g.Reset()
	assert.Equal(t, "item-1", g.Generate())

	assert.Equal(t, "id-1", NewSequenceGenerator("").Generate())
}
