package testutil

import (
	"sync"
	"time"

	"github.com/specialistvlad/tricore/internal/lifecycle"
)

// ExecutionRecord holds the start and end times of one phase of one kernel or
// module.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Timeline collects ExecutionRecords by name. Safe for concurrent use.
type Timeline struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{records: make(map[string]*ExecutionRecord)}
}

// Begin records the start of name. Only the first start is kept.
func (tl *Timeline) Begin(name string, at time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	r := tl.record(name)
	if r.Start.IsZero() {
		r.Start = at
	}
}

// End records the end of name. Only the first end is kept.
func (tl *Timeline) End(name string, at time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	r := tl.record(name)
	if r.End.IsZero() {
		r.End = at
	}
}

// Get returns the record for name.
func (tl *Timeline) Get(name string) (ExecutionRecord, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	r, ok := tl.records[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *r, true
}

func (tl *Timeline) record(name string) *ExecutionRecord {
	r, ok := tl.records[name]
	if !ok {
		r = &ExecutionRecord{}
		tl.records[name] = r
	}
	return r
}

// Journal records which module ran which phase, in call order. Safe for
// concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

// JournalEntry is one recorded call.
type JournalEntry struct {
	Module string
	Phase  lifecycle.Phase
}

// Record appends a call.
func (j *Journal) Record(module string, p lifecycle.Phase) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, JournalEntry{Module: module, Phase: p})
}

// Modules returns the modules that ran phase p, in order.
func (j *Journal) Modules(p lifecycle.Phase) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.entries {
		if e.Phase == p {
			out = append(out, e.Module)
		}
	}
	return out
}

// Count returns how many times module ran phase p.
func (j *Journal) Count(module string, p lifecycle.Phase) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.entries {
		if e.Module == module && e.Phase == p {
			n++
		}
	}
	return n
}
