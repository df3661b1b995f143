// Package capture writes routing events without ever blocking the routing
// response. Failures are logged and absorbed; callers never gate
// correctness on the boolean return.
package capture

import (
	"strings"
	"time"

	"pongogo/internal/db"
	"pongogo/internal/logging"
)

const (
	maxRetries     = 3
	retryBaseDelay = 50 * time.Millisecond
)

// StoreRoutingEvent persists one routing event. Transient write-lock
// contention is attempted up to three times in all (at most two retries) with
// exponential backoff starting at 50 ms; any terminal failure produces a
// single warning log and false.
func StoreRoutingEvent(database *db.Database, event *db.Event) bool {
	if database == nil {
		return false
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := database.InsertEvent(event)
		if err == nil {
			logging.Get(logging.CategoryCapture).Debug(
				"Routing event captured: %d instructions", event.InstructionCount)
			return true
		}
		lastErr = err

		if isLocked(err) && attempt < maxRetries-1 {
			delay := retryBaseDelay << attempt
			logging.Get(logging.CategoryCapture).Debug(
				"Database locked, retrying in %v (attempt %d/%d)", delay, attempt+1, maxRetries)
			time.Sleep(delay)
			continue
		}
		break
	}

	logging.Get(logging.CategoryCapture).Warn(
		"Failed to store routing event after retries: %v", lastErr)
	return false
}

func isLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
