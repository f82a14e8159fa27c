package remind

import (
	"testing"
	"time"
)

var colombo = time.FixedZone("+0530", 5*3600+1800)

func TestFireToday(t *testing.T) {
	t.Parallel()
	r := NewResolver("Asia/Colombo", "+05:30", "09:00")
	e := NewEvaluator(r, nil)

	due, ok := r.DueAt("2026-03-10", "09:00")
	if !ok {
		t.Fatal("due time should resolve")
	}

	tests := []struct {
		name string
		now  time.Time
		want []int
	}{
		{name: "three days out", now: time.Date(2026, 3, 7, 10, 0, 0, 0, colombo), want: []int{3}},
		{name: "two days out", now: time.Date(2026, 3, 8, 10, 0, 0, 0, colombo), want: []int{2}},
		{name: "one day out", now: time.Date(2026, 3, 9, 23, 59, 0, 0, colombo), want: []int{1}},
		{name: "due day before due instant", now: time.Date(2026, 3, 10, 8, 0, 0, 0, colombo), want: []int{0}},
		{name: "past due instant", now: time.Date(2026, 3, 10, 10, 0, 0, 0, colombo), want: nil},
		{name: "four days out", now: time.Date(2026, 3, 6, 10, 0, 0, 0, colombo), want: nil},
		{name: "long past", now: time.Date(2026, 4, 1, 10, 0, 0, 0, colombo), want: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := e.FireToday(tt.now, due)
			if len(got) != len(tt.want) {
				t.Fatalf("FireToday = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("FireToday = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFireTodayCustomOffsets(t *testing.T) {
	t.Parallel()
	r := NewResolver("Asia/Colombo", "+05:30", "09:00")
	e := NewEvaluator(r, []int{7, 0})

	due, _ := r.DueAt("2026-03-10", "09:00")
	if got := e.FireToday(time.Date(2026, 3, 3, 12, 0, 0, 0, colombo), due); len(got) != 1 || got[0] != 7 {
		t.Fatalf("FireToday = %v, want [7]", got)
	}
	if got := e.FireToday(time.Date(2026, 3, 8, 12, 0, 0, 0, colombo), due); got != nil {
		t.Fatalf("FireToday = %v, want nil (2 is not a configured offset)", got)
	}
}

func TestFireTodayZoneBoundary(t *testing.T) {
	t.Parallel()
	// 2026-03-06 23:00 UTC is already 2026-03-07 in Colombo, so the
	// 3-day reminder for a 03-10 task fires.
	r := NewResolver("Asia/Colombo", "+05:30", "09:00")
	e := NewEvaluator(r, nil)

	due, _ := r.DueAt("2026-03-10", "09:00")
	now := time.Date(2026, 3, 6, 23, 0, 0, 0, time.UTC)
	if got := e.FireToday(now, due); len(got) != 1 || got[0] != 3 {
		t.Fatalf("FireToday = %v, want [3]", got)
	}
}
