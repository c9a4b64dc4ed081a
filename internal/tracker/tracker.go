// Package tracker remembers every object created on the remote prompt service
// during a session so they can be released in bulk.
package tracker

import (
	"context"
	"fmt"
	"sync"
)

// Deleter removes one remote object by name.
type Deleter interface {
	DeleteObject(ctx context.Context, name string) (string, error)
}

// Recorder receives one call-log entry per deletion attempt.
type Recorder interface {
	Record(endpoint, method string, payload, response any)
}

// ReleaseReport summarises a ReleaseAll pass.
type ReleaseReport struct {
	Attempted int      `json:"attempted"`
	Deleted   int      `json:"deleted"`
	Failed    []string `json:"failed"`
}

// Tracker is an append-only list of handles. Duplicates are kept.
type Tracker struct {
	mu      sync.Mutex
	handles []string
}

func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Track(handle string) {
	t.mu.Lock()
	t.handles = append(t.handles, handle)
	t.mu.Unlock()
}

// Handles returns the tracked handles in creation order.
func (t *Tracker) Handles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.handles...)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// ReleaseAll takes every handle tracked at call time and issues one delete
// per handle, whatever the individual outcomes are. Handles tracked while
// the release is running are kept for the next pass, and overlapping
// releases never see the same handle.
func (t *Tracker) ReleaseAll(ctx context.Context, d Deleter, rec Recorder) ReleaseReport {
	t.mu.Lock()
	snapshot := t.handles
	t.handles = nil
	t.mu.Unlock()

	report := ReleaseReport{Failed: []string{}}
	for _, name := range snapshot {
		report.Attempted++
		endpoint := "/objects/" + name
		_, err := d.DeleteObject(ctx, name)
		if err != nil {
			report.Failed = append(report.Failed, name)
			if rec != nil {
				rec.Record(endpoint, "DELETE", map[string]any{}, fmt.Sprintf("Error: %v", err))
			}
			continue
		}
		report.Deleted++
		if rec != nil {
			rec.Record(endpoint, "DELETE", map[string]any{}, "Deleted")
		}
	}

	return report
}
