package console

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"agentdesk/internal/turn"
)

// DefaultHighlightInterval is how long a new record stays highlighted.
const DefaultHighlightInterval = 3 * time.Second

// DisplayRecord is a derived row shown in the record sheet. It is never
// authoritative; the backend owns the real data.
type DisplayRecord struct {
	ID          string
	Origin      string
	Destination string
	Status      string
	Note        string
	IsNew       bool
}

func displayRecordFromTurn(r turn.Record, isNew bool) DisplayRecord {
	return DisplayRecord{
		ID:          r.ID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Status:      r.Status,
		Note:        r.Note,
		IsNew:       isNew,
	}
}

// RecordRule drives the fallback record heuristic used when a backend reply
// carries no structured records. An empty Trigger disables it.
type RecordRule struct {
	Trigger  string
	Template turn.Record
	IDPrefix string
}

func (r RecordRule) enabled() bool {
	return strings.TrimSpace(r.Trigger) != ""
}

func (r RecordRule) matches(lastUserText string) bool {
	return r.enabled() && strings.Contains(lastUserText, r.Trigger)
}

// RandomRecordID returns prefix followed by four random digits.
func RandomRecordID(prefix string) string {
	return fmt.Sprintf("%s%04d", prefix, rand.IntN(9000))
}

// Scheduler runs a task after a delay. Schedule must return before task runs.
// The returned cancel func is idempotent and prevents a not-yet-run task from
// running.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) (cancel func())
}

// TimerScheduler schedules tasks on time.AfterFunc goroutines.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, task func()) func() {
	var once sync.Once
	timer := time.AfterFunc(delay, task)
	return func() {
		once.Do(func() { timer.Stop() })
	}
}
