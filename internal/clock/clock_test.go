package clock

import (
	"testing"
	"time"
)

func TestFixed_ReturnsUTC(t *testing.T) {
	local := time.Date(2024, 8, 20, 7, 30, 0, 0, time.FixedZone("BRT", -3*60*60))

	c := Fixed(local)
	got := c.Now()

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", got.Location())
	}
	if !got.Equal(local) {
		t.Fatalf("expected same instant, got %s", got)
	}
	if got.Hour() != 10 {
		t.Fatalf("expected hour 10, got %d", got.Hour())
	}
}

func TestSystem_ReturnsUTC(t *testing.T) {
	before := time.Now()
	got := System().Now()

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", got.Location())
	}
	if got.Before(before.Add(-time.Second)) {
		t.Fatalf("system clock is behind: %s < %s", got, before)
	}
}
