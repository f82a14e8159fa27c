package remind

import "time"

// Evaluator decides which reminder offsets fire on the current day for
// a resolved due instant. It holds no per-task state; every offset is
// evaluated independently and the dispatch log gates duplicates, so
// re-evaluating the same day is always safe.
type Evaluator struct {
	res     *Resolver
	offsets []int
}

func NewEvaluator(res *Resolver, offsets []int) *Evaluator {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	return &Evaluator{res: res, offsets: append([]int(nil), offsets...)}
}

func (e *Evaluator) Offsets() []int { return e.offsets }

// FireToday returns the offsets whose reminder day is now's calendar
// day. A task already past its due instant gets no catch-up reminders.
func (e *Evaluator) FireToday(now, dueAt time.Time) []int {
	if now.After(dueAt) {
		return nil
	}
	today := e.res.DateKey(now)
	var fire []int
	for _, k := range e.offsets {
		reminderDay := e.res.DateKey(dueAt.AddDate(0, 0, -k))
		if reminderDay == today {
			fire = append(fire, k)
		}
	}
	return fire
}
