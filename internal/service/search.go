package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/notify"
)

// Search returns every message containing query in the caller's
// channels and DMs, newest first. Matching is a case-sensitive substring
// test.
func (s *Service) Search(ctx context.Context, actorID int, query string) ([]MessageView, error) {
	var out []MessageView
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		if n := utf8.RuneCountInString(query); n < 1 || n > MaxMessageLen {
			return apperr.Input("query must be between 1 and %d characters", MaxMessageLen)
		}

		var hits []*models.Message
		collect := func(msgs []*models.Message) {
			for _, m := range msgs {
				if strings.Contains(m.Body, query) {
					hits = append(hits, m)
				}
			}
		}
		for _, ch := range s.store.Channels().All() {
			if ch.Members.Has(actorID) {
				collect(ch.Messages)
			}
		}
		for _, dm := range s.store.DMs().All() {
			if dm.Members.Has(actorID) {
				collect(dm.Messages)
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].ID > hits[j].ID })

		out = messageViews(hits, actorID)
		return nil
	})
	return out, err
}

// Notifications returns the caller's most recent notifications without
// consuming them.
func (s *Service) Notifications(ctx context.Context, actorID int) ([]models.Notification, error) {
	var out []models.Notification
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		out = s.store.Notifications().Recent(actorID, notify.FeedLimit)
		return nil
	})
	return out, err
}
