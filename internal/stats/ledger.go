package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Point is one sample of a counter's time series.
type Point struct {
	Count     int   `json:"count"`
	TimeStamp int64 `json:"time_stamp"`
}

// Series maps each metric to its samples, oldest first.
type Series map[Metric][]Point

// Latest returns the newest count for m, or 0.
func (s Series) Latest(m Metric) int {
	pts := s[m]
	if len(pts) == 0 {
		return 0
	}
	return pts[len(pts)-1].Count
}

func (s Series) clone() Series {
	out := make(Series, len(s))
	for m, pts := range s {
		cp := make([]Point, len(pts))
		copy(cp, pts)
		out[m] = cp
	}
	return out
}

type ledgerState struct {
	Users     map[int]Series `json:"users"`
	Workspace Series         `json:"workspace"`
}

// Ledger is the in-memory time series store. Every event appends a new
// point whose count is the previous count plus the delta.
type Ledger struct {
	mu sync.Mutex
	st ledgerState
}

var _ Sink = (*Ledger)(nil)

func NewLedger() *Ledger {
	l := &Ledger{}
	l.Reset()
	return l
}

func (l *Ledger) Record(_ context.Context, events []Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range events {
		var series Series
		if e.Metric.PerUser() {
			series = l.st.Users[e.UserID]
			if series == nil {
				series = make(Series)
				l.st.Users[e.UserID] = series
			}
		} else {
			series = l.st.Workspace
		}
		series[e.Metric] = append(series[e.Metric], Point{
			Count:     series.Latest(e.Metric) + e.Delta,
			TimeStamp: e.At.Unix(),
		})
	}
	return nil
}

// User returns a copy of one user's series.
func (l *Ledger) User(userID int) Series {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Users[userID].clone()
}

// Workspace returns a copy of the workspace series.
func (l *Ledger) Workspace() Series {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Workspace.clone()
}

// Export encodes the ledger for snapshots.
func (l *Ledger) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(l.st)
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}
	return data, nil
}

// Import replaces the ledger with a previous Export.
func (l *Ledger) Import(data []byte) error {
	var st ledgerState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}
	if st.Users == nil {
		st.Users = make(map[int]Series)
	}
	if st.Workspace == nil {
		st.Workspace = make(Series)
	}
	l.mu.Lock()
	l.st = st
	l.mu.Unlock()
	return nil
}

// Reset drops every series.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st = ledgerState{
		Users:     make(map[int]Series),
		Workspace: make(Series),
	}
}
