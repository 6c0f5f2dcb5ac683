package service

import (
	"context"

	"github.com/lalith-99/streams/internal/stats"
)

func points(m stats.Metric, pts []stats.Point) []StatPoint {
	key := "num_" + string(m)
	out := make([]StatPoint, 0, len(pts))
	for _, p := range pts {
		out = append(out, StatPoint{key: int64(p.Count), "time_stamp": p.TimeStamp})
	}
	return out
}

// UserStats returns the caller's activity series and involvement rate.
func (s *Service) UserStats(ctx context.Context, actorID int) (UserStats, error) {
	var out UserStats
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		series := s.ledger.User(actorID)
		channels, dms, messages := s.counts()
		out = UserStats{
			ChannelsJoined: points(stats.ChannelsJoined, series[stats.ChannelsJoined]),
			DMsJoined:      points(stats.DMsJoined, series[stats.DMsJoined]),
			MessagesSent:   points(stats.MessagesSent, series[stats.MessagesSent]),
			InvolvementRate: stats.InvolvementRate(
				series.Latest(stats.ChannelsJoined),
				series.Latest(stats.DMsJoined),
				series.Latest(stats.MessagesSent),
				channels, dms, messages,
			),
		}
		return nil
	})
	return out, err
}

// WorkspaceStats returns the workspace series and utilization rate.
func (s *Service) WorkspaceStats(ctx context.Context, actorID int) (WorkspaceStats, error) {
	var out WorkspaceStats
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		series := s.ledger.Workspace()

		active, engaged := 0, 0
		for _, u := range s.store.Users().All() {
			if u.Removed {
				continue
			}
			active++
			if s.members.InAnyContainer(u.ID) {
				engaged++
			}
		}

		out = WorkspaceStats{
			ChannelsExist:   points(stats.ChannelsExist, series[stats.ChannelsExist]),
			DMsExist:        points(stats.DMsExist, series[stats.DMsExist]),
			MessagesExist:   points(stats.MessagesExist, series[stats.MessagesExist]),
			UtilizationRate: stats.UtilizationRate(engaged, active),
		}
		return nil
	})
	return out, err
}

// counts returns how many channels, DMs and messages exist right now.
func (s *Service) counts() (channels, dms, messages int) {
	for _, ch := range s.store.Channels().All() {
		channels++
		messages += len(ch.Messages)
	}
	for _, dm := range s.store.DMs().All() {
		dms++
		messages += len(dm.Messages)
	}
	return channels, dms, messages
}
