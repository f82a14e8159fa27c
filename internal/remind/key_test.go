package remind

import "testing"

func TestDispatchKeyStable(t *testing.T) {
	t.Parallel()
	a := DispatchKey("task-1", "2026-03-10", "09:00", 3)
	b := DispatchKey("task-1", "2026-03-10", "09:00", 3)
	if a != b {
		t.Fatalf("same inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("key length = %d, want 40 hex chars", len(a))
	}
}

func TestDispatchKeyDiscriminates(t *testing.T) {
	t.Parallel()
	base := DispatchKey("task-1", "2026-03-10", "09:00", 3)
	variants := []string{
		DispatchKey("task-2", "2026-03-10", "09:00", 3),
		DispatchKey("task-1", "2026-03-11", "09:00", 3),
		DispatchKey("task-1", "2026-03-10", "10:00", 3),
		DispatchKey("task-1", "2026-03-10", "09:00", 2),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base key", i)
		}
	}
}
