// Package stats keeps the usage counters behind the user and workspace
// analytics endpoints. Counters move only through Events, so any number
// of sinks can observe the same stream.
package stats

import (
	"context"
	"errors"
	"time"
)

// Metric names one counter.
type Metric string

const (
	ChannelsJoined Metric = "channels_joined"
	DMsJoined      Metric = "dms_joined"
	MessagesSent   Metric = "messages_sent"

	ChannelsExist Metric = "channels_exist"
	DMsExist      Metric = "dms_exist"
	MessagesExist Metric = "messages_exist"
)

// UserMetrics are tracked per user.
var UserMetrics = []Metric{ChannelsJoined, DMsJoined, MessagesSent}

// WorkspaceMetrics are tracked once for the whole workspace.
var WorkspaceMetrics = []Metric{ChannelsExist, DMsExist, MessagesExist}

// PerUser reports whether m is kept per user.
func (m Metric) PerUser() bool {
	for _, um := range UserMetrics {
		if m == um {
			return true
		}
	}
	return false
}

// Event moves one counter by Delta. UserID is zero for workspace metrics.
// A zero Delta still records a data point; registration uses that to
// start a user's series at 0.
type Event struct {
	Metric Metric
	UserID int
	Delta  int
	At     time.Time
}

// UserEvent builds an event for a per-user metric.
func UserEvent(m Metric, userID, delta int, at time.Time) Event {
	return Event{Metric: m, UserID: userID, Delta: delta, At: at}
}

// WorkspaceEvent builds an event for a workspace metric.
func WorkspaceEvent(m Metric, delta int, at time.Time) Event {
	return Event{Metric: m, Delta: delta, At: at}
}

// Sink consumes events.
type Sink interface {
	Record(ctx context.Context, events []Event) error
}

// Fanout delivers every batch to each sink and joins their errors.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvolvementRate is a user's share of all activity: joined channels,
// joined DMs and sent messages over existing channels, DMs and messages.
// It is 0 for an empty workspace and never exceeds 1.
func InvolvementRate(channelsJoined, dmsJoined, messagesSent, channels, dms, messages int) float64 {
	denom := channels + dms + messages
	if denom == 0 {
		return 0
	}
	rate := float64(channelsJoined+dmsJoined+messagesSent) / float64(denom)
	if rate > 1 {
		return 1
	}
	return rate
}

// UtilizationRate is the share of active users in at least one channel
// or DM.
func UtilizationRate(engaged, activeUsers int) float64 {
	if activeUsers == 0 {
		return 0
	}
	return float64(engaged) / float64(activeUsers)
}
