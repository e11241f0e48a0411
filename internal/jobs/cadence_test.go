package jobs

import (
	"testing"
	"time"

	"nuuko/internal/models"
)

func TestCadenceWindow(t *testing.T) {
	cases := []struct {
		cadence string
		want    time.Duration
		ok      bool
	}{
		{models.CadenceWeekly, 7 * 24 * time.Hour, true},
		{models.CadenceMonthly, 30 * 24 * time.Hour, true},
		{models.CadenceYearly, 365 * 24 * time.Hour, true},
		{models.CadenceManual, 0, false},
		{"", 0, false},
		{"bogus", 0, false},
	}
	for _, c := range cases {
		got, ok := cadenceWindow(c.cadence)
		if got != c.want || ok != c.ok {
			t.Errorf("cadenceWindow(%q) = (%v, %v), want (%v, %v)", c.cadence, got, ok, c.want, c.ok)
		}
	}
}
