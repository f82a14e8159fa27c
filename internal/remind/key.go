package remind

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// DispatchKey builds the deterministic idempotency key for one
// (task, schedule, offset) triple. The due date and time are the
// snapshot taken at fire time: editing a task's schedule leaves old
// keys inert and makes the new schedule independently eligible.
func DispatchKey(taskID, dueDate, dueTime string, daysBefore int) string {
	payload := fmt.Sprintf("%s|%s|%s|d%d", taskID, dueDate, dueTime, daysBefore)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
