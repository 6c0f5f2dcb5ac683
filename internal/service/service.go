// Package service implements every workspace operation on top of the
// in-memory store.
//
// One mutex serializes all operations. Each operation validates fully
// before it mutates, so an error leaves the store untouched. Work that
// leaves the process (the Redis stats mirror, websocket pushes, reset
// mail) happens after the lock is released.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/auth"
	"github.com/lalith-99/streams/internal/membership"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/notify"
	"github.com/lalith-99/streams/internal/repository"
	"github.com/lalith-99/streams/internal/stats"
)

// MaxMessageLen caps message, standup and share bodies.
const MaxMessageLen = 1000

// publishTimeout bounds the post-unlock side effects of one operation.
const publishTimeout = 5 * time.Second

// Options are the behavior switches read from config.
type Options struct {
	JWTSecret    string
	TokenTTL     time.Duration
	BaseURL      string
	PasswordCost int

	PinDeniedAsAccess      bool
	RevalidateDeferredSend bool
}

// Notifier pushes a freshly stored notification to a connected client.
type Notifier interface {
	Notify(userID int, n models.Notification)
}

// Scheduler runs f once after d. It must not block.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

type Service struct {
	mu sync.Mutex

	store   repository.Store
	members *membership.Engine
	ledger  *stats.Ledger

	mirror   stats.Sink
	notifier Notifier
	mailer   auth.ResetMailer

	opts   Options
	logger *zap.Logger

	now      func() time.Time
	schedule Scheduler

	// generation changes on Clear so deferred work scheduled against the
	// old store drops itself instead of landing in the new one.
	generation int
}

type Option func(*Service)

// WithStatsMirror copies every stats event to sink after the lock is
// released. Mirror failures are logged, never returned.
func WithStatsMirror(sink stats.Sink) Option {
	return func(s *Service) { s.mirror = sink }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMailer(m auth.ResetMailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithScheduler(fn Scheduler) Option {
	return func(s *Service) { s.schedule = fn }
}

func New(store repository.Store, opts Options, logger *zap.Logger, options ...Option) *Service {
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	s := &Service{
		store:    store,
		members:  membership.New(store.Users(), store.Channels(), store.DMs()),
		ledger:   stats.NewLedger(),
		mailer:   auth.NewLogMailer(logger),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		schedule: afterFunc,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// effects collects what an operation wants to happen once it succeeds.
type effects struct {
	at         time.Time
	events     []stats.Event
	deliveries []notify.Delivery
	resets     []resetMail
}

type resetMail struct {
	email string
	code  string
}

func (fx *effects) user(m stats.Metric, userID, delta int) {
	fx.events = append(fx.events, stats.UserEvent(m, userID, delta, fx.at))
}

func (fx *effects) workspace(m stats.Metric, delta int) {
	fx.events = append(fx.events, stats.WorkspaceEvent(m, delta, fx.at))
}

func (fx *effects) deliver(d notify.Delivery) {
	fx.deliveries = append(fx.deliveries, d)
}

// do runs fn under the lock. On success the collected notifications and
// stats are committed before unlocking and published after.
func (s *Service) do(ctx context.Context, fn func(fx *effects) error) error {
	fx := &effects{at: s.now()}

	s.mu.Lock()
	err := fn(fx)
	if err == nil {
		s.commit(fx)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.publish(ctx, fx)
	return nil
}

func (s *Service) commit(fx *effects) {
	for _, d := range fx.deliveries {
		s.store.Notifications().Push(d.UserID, d.Notification)
	}
	if len(fx.events) > 0 {
		// The ledger is in-memory and cannot fail.
		_ = s.ledger.Record(context.Background(), fx.events)
	}
}

func (s *Service) publish(ctx context.Context, fx *effects) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if s.notifier != nil {
		for _, d := range fx.deliveries {
			s.notifier.Notify(d.UserID, d.Notification)
		}
	}
	if s.mirror != nil && len(fx.events) > 0 {
		if err := s.mirror.Record(ctx, fx.events); err != nil {
			s.logger.Warn("stats mirror failed", zap.Error(err), zap.Int("events", len(fx.events)))
		}
	}
	for _, r := range fx.resets {
		if err := s.mailer.SendResetCode(ctx, r.email, r.code); err != nil {
			s.logger.Error("send reset code", zap.Error(err))
		}
	}
}

// actor resolves the caller. A caller whose account vanished since the
// token was checked is treated like an invalid token.
func (s *Service) actor(userID int) (*models.User, error) {
	u := s.store.Users().Get(userID)
	if u == nil || u.Removed {
		return nil, apperr.Access("invalid token")
	}
	return u, nil
}

// snapshotDoc is the persisted form of the whole service state.
type snapshotDoc struct {
	Store json.RawMessage `json:"store"`
	Stats json.RawMessage `json:"stats"`
}

// Snapshot encodes the store and stats ledger.
func (s *Service) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storeData, err := s.store.Export()
	if err != nil {
		return nil, err
	}
	statsData, err := s.ledger.Export()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snapshotDoc{Store: storeData, Stats: statsData})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces all state with a Snapshot and re-arms the timers of
// standups that were still running.
func (s *Service) Restore(data []byte) error {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Import(doc.Store); err != nil {
		return err
	}
	if len(doc.Stats) > 0 {
		if err := s.ledger.Import(doc.Stats); err != nil {
			return err
		}
	}
	for _, ch := range s.store.Channels().All() {
		if ch.Standup != nil {
			s.armStandup(ch.ID, ch.Standup)
		}
	}
	return nil
}

// Clear wipes every user, container and counter.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.store.Reset()
	s.ledger.Reset()
	s.generation++
	s.mu.Unlock()

	if c, ok := s.mirror.(interface{ Clear(context.Context) error }); ok {
		if err := c.Clear(ctx); err != nil {
			s.logger.Warn("clear stats mirror", zap.Error(err))
		}
	}
	s.logger.Info("workspace cleared")
	return nil
}
