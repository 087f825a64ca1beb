package server

import (
	"sync"
	"time"

	"doom-index/internal/apperr"
	"doom-index/internal/orchestrator"
)

// RunStatus is the last known scheduler state.
type RunStatus struct {
	Running      bool       `json:"running"`
	LastRunAt    *time.Time `json:"lastRunAt,omitempty"`
	LastStatus   string     `json:"lastStatus,omitempty"`
	LastReason   string     `json:"lastReason,omitempty"`
	LastBucket   string     `json:"lastBucket,omitempty"`
	LastPainting string     `json:"lastPaintingId,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	LastErrKind  string     `json:"lastErrorKind,omitempty"`
	LastSuccess  *time.Time `json:"lastSuccessAt,omitempty"`
	Runs         int64      `json:"runs"`
}

// Tracker records scheduler runs for /status.
type Tracker struct {
	mu sync.RWMutex
	st RunStatus
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin marks a run as in progress.
func (t *Tracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Running = true
}

// Finish records the outcome of a run.
func (t *Tracker) Finish(res *orchestrator.Result, err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	at = at.UTC()
	t.st.Running = false
	t.st.Runs++
	t.st.LastRunAt = &at
	t.st.LastReason, t.st.LastBucket, t.st.LastPainting = "", "", ""
	t.st.LastError, t.st.LastErrKind = "", ""

	if err != nil {
		t.st.LastStatus = "failed"
		t.st.LastError = err.Error()
		t.st.LastErrKind = string(apperr.KindOf(err))
		return
	}
	t.st.LastStatus = string(res.Status)
	t.st.LastReason = res.Reason
	t.st.LastBucket = res.Bucket
	if res.Status == orchestrator.StatusGenerated {
		t.st.LastPainting = res.PaintingID
		t.st.LastSuccess = &at
	}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.st
}
