package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/repository/memory"
	"github.com/lalith-99/streams/internal/stats"
)

// fakeScheduler queues deferred work so tests decide when it runs.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []task
}

type task struct {
	delay time.Duration
	fn    func()
}

func (f *fakeScheduler) schedule(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task{delay: d, fn: fn})
}

// runAll runs every queued task, including ones queued while running.
func (f *fakeScheduler) runAll() {
	for {
		f.mu.Lock()
		if len(f.tasks) == 0 {
			f.mu.Unlock()
			return
		}
		next := f.tasks[0]
		f.tasks = f.tasks[1:]
		f.mu.Unlock()
		next.fn()
	}
}

func (f *fakeScheduler) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int][]models.Notification
}

func (r *recordingNotifier) Notify(userID int, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[int][]models.Notification)
	}
	r.sent[userID] = append(r.sent[userID], n)
}

type env struct {
	svc      *Service
	sched    *fakeScheduler
	notifier *recordingNotifier
	now      time.Time
}

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newEnv(t *testing.T, opts ...func(*Options)) *env {
	t.Helper()
	o := Options{
		JWTSecret:    "test-secret",
		BaseURL:      "http://localhost:8080/",
		PasswordCost: bcrypt.MinCost,
	}
	for _, fn := range opts {
		fn(&o)
	}
	e := &env{sched: &fakeScheduler{}, notifier: &recordingNotifier{}, now: testEpoch}
	e.svc = New(memory.New(), o, zap.NewNop(),
		WithScheduler(e.sched.schedule),
		WithNotifier(e.notifier),
		WithClock(func() time.Time { return e.now }),
	)
	return e
}

func (e *env) register(t *testing.T, first, last string) AuthResult {
	t.Helper()
	email := strings.ToLower(first+"."+last) + "@example.com"
	res, err := e.svc.Register(context.Background(), email, "hunter22", first, last)
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return res
}

func (e *env) channel(t *testing.T, actor int, name string, public bool) int {
	t.Helper()
	id, err := e.svc.CreateChannel(context.Background(), actor, name, public)
	if err != nil {
		t.Fatalf("CreateChannel(%s) error = %v", name, err)
	}
	return id
}

func (e *env) send(t *testing.T, actor, channelID int, text string) int {
	t.Helper()
	id, err := e.svc.SendMessage(context.Background(), actor, channelID, text)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	return id
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("error = %v, want %v", err, kind)
	}
}

func TestRegisterHandlesAndFirstOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.register(t, "Alice", "Smith")
	b, err := e.svc.Register(ctx, "other@example.com", "hunter22", "Alice", "Smith")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	c, err := e.svc.Register(ctx, "third@example.com", "hunter22", "Alice", "Smith")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	want := map[int]string{a.AuthUserID: "alicesmith", b.AuthUserID: "alicesmith0", c.AuthUserID: "alicesmith1"}
	for id, handle := range want {
		p, err := e.svc.Profile(ctx, a.AuthUserID, id)
		if err != nil {
			t.Fatalf("Profile(%d) error = %v", id, err)
		}
		if p.Handle != handle {
			t.Errorf("handle of %d = %q, want %q", id, p.Handle, handle)
		}
	}

	if err := e.svc.ChangePermission(ctx, b.AuthUserID, c.AuthUserID, models.RoleOwner); !apperr.Is(err, apperr.KindAccess) {
		t.Errorf("member changing permissions: error = %v, want access", err)
	}
	if err := e.svc.ChangePermission(ctx, a.AuthUserID, c.AuthUserID, models.RoleOwner); err != nil {
		t.Errorf("owner changing permissions: error = %v", err)
	}
}

func TestRegisterHandleIsASCII(t *testing.T) {
	e := newEnv(t)
	res, err := e.svc.Register(context.Background(), "jose@example.com", "hunter22", "José", "Núñez-O'Brien")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	p, err := e.svc.Profile(context.Background(), res.AuthUserID, res.AuthUserID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Handle != "josnezobrien" {
		t.Errorf("handle = %q, want josnezobrien", p.Handle)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "Alice", "Smith")

	cases := []struct {
		name, email, password, first, last string
	}{
		{"bad email", "not-an-email", "hunter22", "A", "B"},
		{"short password", "x@example.com", "12345", "A", "B"},
		{"empty first", "x@example.com", "hunter22", "", "B"},
		{"long last", "x@example.com", "hunter22", "A", strings.Repeat("b", 51)},
		{"taken email", "alice.smith@example.com", "hunter22", "A", "B"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Register(ctx, tc.email, tc.password, tc.first, tc.last)
			wantKind(t, err, apperr.KindInput)
		})
	}
}

func TestLoginLogoutAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := e.register(t, "Alice", "Smith")

	login, err := e.svc.Login(ctx, "alice.smith@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.AuthUserID != reg.AuthUserID || login.Token == reg.Token {
		t.Fatalf("Login() = %+v, want a second session for %d", login, reg.AuthUserID)
	}

	id, err := e.svc.Authenticate(login.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if err := e.svc.Logout(ctx, id); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	_, err = e.svc.Authenticate(login.Token)
	wantKind(t, err, apperr.KindAccess)

	if _, err := e.svc.Authenticate(reg.Token); err != nil {
		t.Errorf("other session should stay open: %v", err)
	}

	_, err = e.svc.Login(ctx, "alice.smith@example.com", "wrong-password")
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.Login(ctx, "nobody@example.com", "hunter22")
	wantKind(t, err, apperr.KindInput)
}

type captureMailer struct {
	codes map[string]string
}

func (m *captureMailer) SendResetCode(_ context.Context, email, code string) error {
	m.codes[email] = code
	return nil
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t)
	mailer := &captureMailer{codes: map[string]string{}}
	e.svc.mailer = mailer
	ctx := context.Background()
	reg := e.register(t, "Alice", "Smith")

	if err := e.svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email should succeed silently: %v", err)
	}
	if err := e.svc.RequestPasswordReset(ctx, "alice.smith@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	_, err := e.svc.Authenticate(reg.Token)
	wantKind(t, err, apperr.KindAccess)

	code := mailer.codes["alice.smith@example.com"]
	if code == "" {
		t.Fatal("no reset code mailed")
	}
	wantKind(t, e.svc.ResetPassword(ctx, code, "short"), apperr.KindInput)
	if err := e.svc.ResetPassword(ctx, code, "new-password"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	wantKind(t, e.svc.ResetPassword(ctx, code, "new-password"), apperr.KindInput)

	if _, err := e.svc.Login(ctx, "alice.smith@example.com", "new-password"); err != nil {
		t.Errorf("Login with new password error = %v", err)
	}
}

func TestJoinLeaveScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID

	pub := e.channel(t, b, "general", true)
	priv := e.channel(t, b, "secret", false)

	if err := e.svc.Join(ctx, a, pub); err != nil {
		t.Fatalf("Join(public) error = %v", err)
	}
	wantKind(t, e.svc.Join(ctx, a, pub), apperr.KindInput)
	// Global owners may join private channels.
	if err := e.svc.Join(ctx, a, priv); err != nil {
		t.Fatalf("global owner Join(private) error = %v", err)
	}

	c := e.register(t, "Carol", "White").AuthUserID
	wantKind(t, e.svc.Join(ctx, c, priv), apperr.KindAccess)
	wantKind(t, e.svc.Join(ctx, c, 999), apperr.KindInput)

	list, err := e.svc.ListChannels(ctx, a)
	if err != nil {
		t.Fatalf("ListChannels() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListChannels() = %v, want 2 channels", list)
	}

	if err := e.svc.Leave(ctx, a, pub); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	wantKind(t, e.svc.Leave(ctx, a, pub), apperr.KindAccess)

	details, err := e.svc.ChannelDetails(ctx, b, pub)
	if err != nil {
		t.Fatalf("ChannelDetails() error = %v", err)
	}
	if len(details.AllMembers) != 1 || details.AllMembers[0].UID != b {
		t.Errorf("AllMembers = %+v, want only %d", details.AllMembers, b)
	}
	_, err = e.svc.ChannelDetails(ctx, a, pub)
	wantKind(t, err, apperr.KindAccess)

	all, err := e.svc.ListAllChannels(ctx, c)
	if err != nil {
		t.Fatalf("ListAllChannels() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListAllChannels() = %v, want private channels included", all)
	}
}

func TestOwnerManagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	c := e.register(t, "Carol", "White").AuthUserID

	ch := e.channel(t, b, "general", true)
	if err := e.svc.Invite(ctx, b, ch, c); err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	wantKind(t, e.svc.Invite(ctx, b, ch, c), apperr.KindInput)
	wantKind(t, e.svc.Invite(ctx, a, ch, c), apperr.KindInput)

	wantKind(t, e.svc.AddOwner(ctx, c, ch, c), apperr.KindAccess)
	wantKind(t, e.svc.AddOwner(ctx, b, ch, a), apperr.KindInput)
	if err := e.svc.AddOwner(ctx, b, ch, c); err != nil {
		t.Fatalf("AddOwner() error = %v", err)
	}
	wantKind(t, e.svc.AddOwner(ctx, b, ch, c), apperr.KindInput)

	if err := e.svc.RemoveOwner(ctx, c, ch, b); err != nil {
		t.Fatalf("RemoveOwner() error = %v", err)
	}
	wantKind(t, e.svc.RemoveOwner(ctx, c, ch, c), apperr.KindInput)

	notes, err := e.svc.Notifications(ctx, c)
	if err != nil {
		t.Fatalf("Notifications() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Text != "bobjones added you to general" {
		t.Errorf("Notifications() = %+v", notes)
	}
	if got := e.notifier.sent[c]; len(got) != 1 {
		t.Errorf("pushed notifications = %+v, want 1", got)
	}
}

func TestDMLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	c := e.register(t, "Carol", "White").AuthUserID

	_, err := e.svc.CreateDM(ctx, a, []int{b, b})
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.CreateDM(ctx, a, []int{42})
	wantKind(t, err, apperr.KindInput)

	dm, err := e.svc.CreateDM(ctx, b, []int{c, a})
	if err != nil {
		t.Fatalf("CreateDM() error = %v", err)
	}
	details, err := e.svc.DMDetails(ctx, a, dm)
	if err != nil {
		t.Fatalf("DMDetails() error = %v", err)
	}
	if details.Name != "alicesmith, bobjones, carolwhite" {
		t.Errorf("Name = %q", details.Name)
	}

	if _, err := e.svc.SendDM(ctx, a, dm, "hi all"); err != nil {
		t.Fatalf("SendDM() error = %v", err)
	}
	wantKind(t, e.svc.RemoveDM(ctx, a, dm), apperr.KindAccess)

	if err := e.svc.LeaveDM(ctx, c, dm); err != nil {
		t.Fatalf("LeaveDM() error = %v", err)
	}
	_, err = e.svc.DMMessages(ctx, c, dm, 0)
	wantKind(t, err, apperr.KindAccess)

	list, err := e.svc.ListDMs(ctx, c)
	if err != nil {
		t.Fatalf("ListDMs() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListDMs() after leave = %v", list)
	}

	if err := e.svc.RemoveDM(ctx, b, dm); err != nil {
		t.Fatalf("RemoveDM() error = %v", err)
	}
	_, err = e.svc.DMDetails(ctx, a, dm)
	wantKind(t, err, apperr.KindInput)

	ws, err := e.svc.WorkspaceStats(ctx, a)
	if err != nil {
		t.Fatalf("WorkspaceStats() error = %v", err)
	}
	last := ws.MessagesExist[len(ws.MessagesExist)-1]
	if last["num_messages_exist"] != 0 {
		t.Errorf("messages_exist after RemoveDM = %v, want 0", last)
	}
}

func TestPaginationWindows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	ch := e.channel(t, a, "general", true)

	for i := 0; i < 51; i++ {
		e.send(t, a, ch, fmt.Sprintf("message %d", i))
	}

	first, err := e.svc.ChannelMessages(ctx, a, ch, 0)
	if err != nil {
		t.Fatalf("ChannelMessages(0) error = %v", err)
	}
	if len(first.Messages) != 50 || first.End != 50 {
		t.Fatalf("first page len=%d end=%d, want 50/50", len(first.Messages), first.End)
	}
	if first.Messages[0].Message != "message 50" {
		t.Errorf("newest message = %q, want message 50", first.Messages[0].Message)
	}

	second, err := e.svc.ChannelMessages(ctx, a, ch, 50)
	if err != nil {
		t.Fatalf("ChannelMessages(50) error = %v", err)
	}
	if len(second.Messages) != 1 || second.End != -1 {
		t.Errorf("second page len=%d end=%d, want 1/-1", len(second.Messages), second.End)
	}

	_, err = e.svc.ChannelMessages(ctx, a, ch, 52)
	wantKind(t, err, apperr.KindInput)
}

func TestEditRemoveAndPermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	c := e.register(t, "Carol", "White").AuthUserID

	ch := e.channel(t, b, "general", true)
	for _, u := range []int{a, c} {
		if err := e.svc.Join(ctx, u, ch); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
	}
	msg := e.send(t, c, ch, "original")

	wantKind(t, e.svc.EditMessage(ctx, c, msg, strings.Repeat("x", 1001)), apperr.KindInput)
	wantKind(t, e.svc.EditMessage(ctx, c, 999, "x"), apperr.KindInput)

	other := e.send(t, b, ch, "bob speaking")
	wantKind(t, e.svc.EditMessage(ctx, c, other, "hijack"), apperr.KindAccess)

	// Only channel owners may edit someone else's message; a global owner
	// who is merely a member may not.
	if err := e.svc.EditMessage(ctx, b, msg, "edited by owner"); err != nil {
		t.Fatalf("owner edit error = %v", err)
	}
	wantKind(t, e.svc.EditMessage(ctx, a, msg, "edited by global owner"), apperr.KindAccess)
	wantKind(t, e.svc.RemoveMessage(ctx, a, other), apperr.KindAccess)

	if err := e.svc.EditMessage(ctx, c, msg, ""); err != nil {
		t.Fatalf("empty edit error = %v", err)
	}
	wantKind(t, e.svc.RemoveMessage(ctx, c, msg), apperr.KindInput)

	if err := e.svc.RemoveMessage(ctx, b, other); err != nil {
		t.Fatalf("RemoveMessage() error = %v", err)
	}
	page, err := e.svc.ChannelMessages(ctx, a, ch, 0)
	if err != nil {
		t.Fatalf("ChannelMessages() error = %v", err)
	}
	if len(page.Messages) != 0 {
		t.Errorf("messages after removals = %+v", page.Messages)
	}
}

func TestSendRejectsBadBodies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	ch := e.channel(t, a, "general", true)

	_, err := e.svc.SendMessage(ctx, a, ch, "")
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.SendMessage(ctx, a, ch, strings.Repeat("x", 1001))
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.SendMessage(ctx, b, ch, "hello")
	wantKind(t, err, apperr.KindAccess)
	_, err = e.svc.SendMessage(ctx, a, 999, "hello")
	wantKind(t, err, apperr.KindInput)
}

func TestReactIsStrict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	ch := e.channel(t, a, "general", true)
	if err := e.svc.Join(ctx, b, ch); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	msg := e.send(t, a, ch, "react to me")

	wantKind(t, e.svc.React(ctx, b, msg, 7), apperr.KindInput)
	if err := e.svc.React(ctx, b, msg, models.ReactLike); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	wantKind(t, e.svc.React(ctx, b, msg, models.ReactLike), apperr.KindInput)

	page, err := e.svc.ChannelMessages(ctx, b, ch, 0)
	if err != nil {
		t.Fatalf("ChannelMessages() error = %v", err)
	}
	r := page.Messages[0].Reacts[0]
	if len(r.UIDs) != 1 || r.UIDs[0] != b || !r.IsThisUserReacted {
		t.Errorf("react view = %+v", r)
	}

	notes, _ := e.svc.Notifications(ctx, a)
	if len(notes) != 1 || notes[0].Text != "bobjones reacted to your message in general" {
		t.Errorf("Notifications() = %+v", notes)
	}

	if err := e.svc.Unreact(ctx, b, msg, models.ReactLike); err != nil {
		t.Fatalf("Unreact() error = %v", err)
	}
	wantKind(t, e.svc.Unreact(ctx, b, msg, models.ReactLike), apperr.KindInput)
}

func TestPinPermissions(t *testing.T) {
	ctx := context.Background()
	for _, asAccess := range []bool{false, true} {
		t.Run(fmt.Sprintf("denied_as_access=%v", asAccess), func(t *testing.T) {
			e := newEnv(t, func(o *Options) { o.PinDeniedAsAccess = asAccess })
			a := e.register(t, "Alice", "Smith").AuthUserID
			b := e.register(t, "Bob", "Jones").AuthUserID
			ch := e.channel(t, a, "general", true)
			if err := e.svc.Join(ctx, b, ch); err != nil {
				t.Fatalf("Join() error = %v", err)
			}
			msg := e.send(t, b, ch, "pin me")

			want := apperr.KindInput
			if asAccess {
				want = apperr.KindAccess
			}
			wantKind(t, e.svc.Pin(ctx, b, msg), want)

			if err := e.svc.Pin(ctx, a, msg); err != nil {
				t.Fatalf("Pin() error = %v", err)
			}
			wantKind(t, e.svc.Pin(ctx, a, msg), apperr.KindInput)
			if err := e.svc.Unpin(ctx, a, msg); err != nil {
				t.Fatalf("Unpin() error = %v", err)
			}
			wantKind(t, e.svc.Unpin(ctx, a, msg), apperr.KindInput)
		})
	}
}

func TestPinRequiresChannelOwnership(t *testing.T) {
	ctx := context.Background()
	for _, asAccess := range []bool{false, true} {
		t.Run(fmt.Sprintf("denied_as_access=%v", asAccess), func(t *testing.T) {
			e := newEnv(t, func(o *Options) { o.PinDeniedAsAccess = asAccess })
			a := e.register(t, "Alice", "Smith").AuthUserID
			b := e.register(t, "Bob", "Jones").AuthUserID
			ch := e.channel(t, b, "general", true)
			if err := e.svc.Join(ctx, a, ch); err != nil {
				t.Fatalf("Join() error = %v", err)
			}
			msg := e.send(t, b, ch, "pin me")

			want := apperr.KindInput
			if asAccess {
				want = apperr.KindAccess
			}
			// Alice is the global owner but not an owner of this channel.
			wantKind(t, e.svc.Pin(ctx, a, msg), want)

			if err := e.svc.Pin(ctx, b, msg); err != nil {
				t.Fatalf("Pin() error = %v", err)
			}
			wantKind(t, e.svc.Unpin(ctx, a, msg), want)
		})
	}
}

func TestShareMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	ch := e.channel(t, a, "general", true)
	other := e.channel(t, b, "other", true)
	dm, err := e.svc.CreateDM(ctx, a, []int{b})
	if err != nil {
		t.Fatalf("CreateDM() error = %v", err)
	}
	msg := e.send(t, a, ch, "original")

	_, err = e.svc.ShareMessage(ctx, a, msg, "", ch, dm)
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.ShareMessage(ctx, a, msg, "", -1, -1)
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.ShareMessage(ctx, a, msg, "", 999, -1)
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.ShareMessage(ctx, b, msg, "", -1, dm)
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.ShareMessage(ctx, a, msg, "", other, -1)
	wantKind(t, err, apperr.KindAccess)

	shared, err := e.svc.ShareMessage(ctx, a, msg, "look", -1, dm)
	if err != nil {
		t.Fatalf("ShareMessage() error = %v", err)
	}
	page, err := e.svc.DMMessages(ctx, b, dm, 0)
	if err != nil {
		t.Fatalf("DMMessages() error = %v", err)
	}
	if page.Messages[0].MessageID != shared || page.Messages[0].Message != "original look" {
		t.Errorf("shared message = %+v", page.Messages[0])
	}
}

func TestTagNotifications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	c := e.register(t, "Carol", "White").AuthUserID
	ch := e.channel(t, a, "general", true)
	if err := e.svc.Join(ctx, b, ch); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	e.send(t, a, ch, "hey @bobjones can you check this")
	e.send(t, a, ch, "@carolwhite is not here")

	notes, _ := e.svc.Notifications(ctx, b)
	if len(notes) != 1 || notes[0].Text != "alicesmith tagged you in general: hey @bobjones can yo" {
		t.Errorf("Notifications(b) = %+v", notes)
	}
	if notes[0].ChannelID != ch || notes[0].DMID != -1 {
		t.Errorf("notification target = %+v", notes[0])
	}
	if notes, _ := e.svc.Notifications(ctx, c); len(notes) != 0 {
		t.Errorf("non-member tagged: %+v", notes)
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	ch := e.channel(t, a, "general", true)
	hidden := e.channel(t, b, "hidden", true)

	first := e.send(t, a, ch, "deploy today")
	e.send(t, a, ch, "unrelated")
	second := e.send(t, a, ch, "Deploy done, deploy again")
	e.send(t, b, hidden, "deploy in hidden")

	_, err := e.svc.Search(ctx, a, "")
	wantKind(t, err, apperr.KindInput)

	hits, err := e.svc.Search(ctx, a, "deploy")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	var ids []int
	for _, h := range hits {
		ids = append(ids, h.MessageID)
	}
	if len(ids) != 2 || ids[0] != second || ids[1] != first {
		t.Errorf("Search() ids = %v, want [%d %d]", ids, second, first)
	}
}

func TestSendLater(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	ch := e.channel(t, a, "general", true)

	_, err := e.svc.SendLater(ctx, a, ch, "too early", e.now.Unix()-1)
	wantKind(t, err, apperr.KindInput)

	at := e.now.Unix() + 60
	id, err := e.svc.SendLater(ctx, a, ch, "later", at)
	if err != nil {
		t.Fatalf("SendLater() error = %v", err)
	}
	now := e.send(t, a, ch, "now")
	if now <= id {
		t.Errorf("id reserved at schedule time: later=%d now=%d", id, now)
	}

	page, _ := e.svc.ChannelMessages(ctx, a, ch, 0)
	if len(page.Messages) != 1 {
		t.Fatalf("message delivered early: %+v", page.Messages)
	}
	if got := e.sched.tasks[0].delay; got != time.Minute {
		t.Errorf("scheduled delay = %v, want 1m", got)
	}

	e.sched.runAll()
	page, _ = e.svc.ChannelMessages(ctx, a, ch, 0)
	if len(page.Messages) != 2 {
		t.Fatalf("messages after delivery = %+v", page.Messages)
	}
	if m := page.Messages[0]; m.MessageID != id || m.TimeSent != at {
		t.Errorf("delivered message = %+v, want id %d at %d", m, id, at)
	}
}

func TestSendLaterDroppedAfterDMRemoved(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	dm, err := e.svc.CreateDM(ctx, a, []int{b})
	if err != nil {
		t.Fatalf("CreateDM() error = %v", err)
	}
	if _, err := e.svc.SendLaterDM(ctx, b, dm, "later", e.now.Unix()+10); err != nil {
		t.Fatalf("SendLaterDM() error = %v", err)
	}
	if err := e.svc.RemoveDM(ctx, a, dm); err != nil {
		t.Fatalf("RemoveDM() error = %v", err)
	}
	e.sched.runAll()

	ws, _ := e.svc.WorkspaceStats(ctx, a)
	if last := ws.MessagesExist[len(ws.MessagesExist)-1]; last["num_messages_exist"] != 0 {
		t.Errorf("dropped message counted: %v", last)
	}
}

func TestStandup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	ch := e.channel(t, a, "general", true)

	_, err := e.svc.StartStandup(ctx, a, ch, -1)
	wantKind(t, err, apperr.KindInput)
	_, err = e.svc.StartStandup(ctx, b, ch, 5)
	wantKind(t, err, apperr.KindAccess)
	wantKind(t, e.svc.StandupSend(ctx, a, ch, "too soon"), apperr.KindInput)

	finish, err := e.svc.StartStandup(ctx, a, ch, 5)
	if err != nil {
		t.Fatalf("StartStandup() error = %v", err)
	}
	if finish != e.now.Unix()+5 {
		t.Errorf("finish = %d, want %d", finish, e.now.Unix()+5)
	}
	_, err = e.svc.StartStandup(ctx, a, ch, 5)
	wantKind(t, err, apperr.KindInput)

	status, err := e.svc.StandupActive(ctx, a, ch)
	if err != nil {
		t.Fatalf("StandupActive() error = %v", err)
	}
	if !status.IsActive || status.TimeFinish == nil || *status.TimeFinish != finish {
		t.Errorf("StandupActive() = %+v", status)
	}

	if err := e.svc.StandupSend(ctx, a, ch, "shipped login"); err != nil {
		t.Fatalf("StandupSend() error = %v", err)
	}
	wantKind(t, e.svc.StandupSend(ctx, b, ch, "not a member"), apperr.KindAccess)
	if err := e.svc.Join(ctx, b, ch); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := e.svc.StandupSend(ctx, b, ch, "fixed tests"); err != nil {
		t.Fatalf("StandupSend() error = %v", err)
	}

	e.now = e.now.Add(5 * time.Second)
	e.sched.runAll()

	status, _ = e.svc.StandupActive(ctx, a, ch)
	if status.IsActive || status.TimeFinish != nil {
		t.Errorf("standup still active: %+v", status)
	}
	page, _ := e.svc.ChannelMessages(ctx, a, ch, 0)
	if len(page.Messages) != 1 {
		t.Fatalf("messages = %+v, want one summary", page.Messages)
	}
	m := page.Messages[0]
	if m.UID != a || m.Message != "alicesmith: shipped login\nbobjones: fixed tests" {
		t.Errorf("summary = %+v", m)
	}
}

func TestEmptyStandupPostsNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	ch := e.channel(t, a, "general", true)

	if _, err := e.svc.StartStandup(ctx, a, ch, 0); err != nil {
		t.Fatalf("StartStandup() error = %v", err)
	}
	e.sched.runAll()
	page, _ := e.svc.ChannelMessages(ctx, a, ch, 0)
	if len(page.Messages) != 0 {
		t.Errorf("empty standup posted %+v", page.Messages)
	}
}

func TestAdminRemoveUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	bRes := e.register(t, "Bob", "Jones")
	b := bRes.AuthUserID
	ch := e.channel(t, a, "general", true)
	if err := e.svc.Join(ctx, b, ch); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	dm, err := e.svc.CreateDM(ctx, b, []int{a})
	if err != nil {
		t.Fatalf("CreateDM() error = %v", err)
	}
	e.send(t, b, ch, "bye")
	if _, err := e.svc.SendDM(ctx, b, dm, "dm bye"); err != nil {
		t.Fatalf("SendDM() error = %v", err)
	}

	wantKind(t, e.svc.RemoveUser(ctx, b, a), apperr.KindAccess)
	wantKind(t, e.svc.RemoveUser(ctx, a, a), apperr.KindInput)
	wantKind(t, e.svc.RemoveUser(ctx, a, 999), apperr.KindInput)

	if err := e.svc.RemoveUser(ctx, a, b); err != nil {
		t.Fatalf("RemoveUser() error = %v", err)
	}

	_, err = e.svc.Authenticate(bRes.Token)
	wantKind(t, err, apperr.KindAccess)

	p, err := e.svc.Profile(ctx, a, b)
	if err != nil {
		t.Fatalf("Profile(removed) error = %v", err)
	}
	if p.NameFirst != "Removed" || p.NameLast != "user" || p.Email != "" || p.Handle != "" {
		t.Errorf("removed profile = %+v", p)
	}
	users, _ := e.svc.AllUsers(ctx, a)
	if len(users) != 1 {
		t.Errorf("AllUsers() = %+v, want removed user hidden", users)
	}

	page, _ := e.svc.ChannelMessages(ctx, a, ch, 0)
	if m := page.Messages[0]; m.UID != models.RemovedUserID || m.Message != "bye" {
		t.Errorf("channel message after removal = %+v", m)
	}
	dms, _ := e.svc.DMMessages(ctx, a, dm, 0)
	if m := dms.Messages[0]; m.UID != models.RemovedUserID || m.Message != models.RemovedUserText {
		t.Errorf("dm message after removal = %+v", m)
	}
	// The DM lost its creator, so nobody can remove it.
	wantKind(t, e.svc.RemoveDM(ctx, a, dm), apperr.KindAccess)

	// The email and handle are free again.
	if _, err := e.svc.Register(ctx, "bob.jones@example.com", "hunter22", "Bob", "Jones"); err != nil {
		t.Errorf("re-register removed email error = %v", err)
	}
}

func TestChangePermissionGuardsLastOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID

	wantKind(t, e.svc.ChangePermission(ctx, a, a, models.RoleMember), apperr.KindInput)
	wantKind(t, e.svc.ChangePermission(ctx, a, b, 3), apperr.KindInput)
	if err := e.svc.ChangePermission(ctx, a, b, models.RoleOwner); err != nil {
		t.Fatalf("promote error = %v", err)
	}
	if err := e.svc.ChangePermission(ctx, b, a, models.RoleMember); err != nil {
		t.Fatalf("demote with two owners error = %v", err)
	}
	wantKind(t, e.svc.ChangePermission(ctx, a, b, models.RoleMember), apperr.KindAccess)
}

func TestUserProfileUpdates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	e.register(t, "Bob", "Jones")

	wantKind(t, e.svc.SetName(ctx, a, "", "x"), apperr.KindInput)
	if err := e.svc.SetName(ctx, a, "Al", "S"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}

	wantKind(t, e.svc.SetEmail(ctx, a, "bob.jones@example.com"), apperr.KindInput)
	wantKind(t, e.svc.SetEmail(ctx, a, "nope"), apperr.KindInput)
	if err := e.svc.SetEmail(ctx, a, "al@example.com"); err != nil {
		t.Fatalf("SetEmail() error = %v", err)
	}

	for _, bad := range []string{"ab", strings.Repeat("a", 21), "has space", "bobjones", "josé1"} {
		wantKind(t, e.svc.SetHandle(ctx, a, bad), apperr.KindInput)
	}
	if err := e.svc.SetHandle(ctx, a, "al123"); err != nil {
		t.Fatalf("SetHandle() error = %v", err)
	}

	p, _ := e.svc.Profile(ctx, a, a)
	if p.NameFirst != "Al" || p.Email != "al@example.com" || p.Handle != "al123" {
		t.Errorf("profile = %+v", p)
	}
	_, err := e.svc.Profile(ctx, a, 999)
	wantKind(t, err, apperr.KindInput)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	b := e.register(t, "Bob", "Jones").AuthUserID
	ch := e.channel(t, a, "general", true)
	e.send(t, a, ch, "one")
	e.send(t, a, ch, "two")

	us, err := e.svc.UserStats(ctx, a)
	if err != nil {
		t.Fatalf("UserStats() error = %v", err)
	}
	// Joined 1 of 1 channel and sent 2 of 2 messages: (1+0+2)/(1+0+2).
	if us.InvolvementRate != 1 {
		t.Errorf("InvolvementRate = %v, want 1", us.InvolvementRate)
	}
	if got := us.MessagesSent[len(us.MessagesSent)-1]["num_messages_sent"]; got != 2 {
		t.Errorf("messages_sent = %d, want 2", got)
	}
	if got := us.ChannelsJoined[0]["num_channels_joined"]; got != 0 {
		t.Errorf("first channels_joined sample = %d, want 0", got)
	}

	bs, _ := e.svc.UserStats(ctx, b)
	if bs.InvolvementRate != 0 {
		t.Errorf("idle user InvolvementRate = %v", bs.InvolvementRate)
	}

	ws, err := e.svc.WorkspaceStats(ctx, b)
	if err != nil {
		t.Fatalf("WorkspaceStats() error = %v", err)
	}
	if ws.UtilizationRate != 0.5 {
		t.Errorf("UtilizationRate = %v, want 0.5", ws.UtilizationRate)
	}
	if got := ws.ChannelsExist[len(ws.ChannelsExist)-1]["num_channels_exist"]; got != 1 {
		t.Errorf("channels_exist = %d, want 1", got)
	}
}

type memorySink struct {
	mu     sync.Mutex
	events []stats.Event
}

func (m *memorySink) Record(_ context.Context, events []stats.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func TestStatsMirrorReceivesEvents(t *testing.T) {
	e := newEnv(t)
	sink := &memorySink{}
	e.svc.mirror = sink
	a := e.register(t, "Alice", "Smith").AuthUserID
	e.channel(t, a, "general", true)

	var metrics []string
	for _, ev := range sink.events {
		if ev.Delta != 0 {
			metrics = append(metrics, string(ev.Metric))
		}
	}
	sort.Strings(metrics)
	if strings.Join(metrics, ",") != "channels_exist,channels_joined" {
		t.Errorf("mirrored metrics = %v", metrics)
	}
}

func TestSnapshotRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith")
	ch := e.channel(t, a.AuthUserID, "general", true)
	msg := e.send(t, a.AuthUserID, ch, "persist me")
	if _, err := e.svc.StartStandup(ctx, a.AuthUserID, ch, 30); err != nil {
		t.Fatalf("StartStandup() error = %v", err)
	}

	data, err := e.svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	restored := newEnv(t)
	if err := restored.svc.Restore(data); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.sched.pending() != 1 {
		t.Errorf("standup timers re-armed = %d, want 1", restored.sched.pending())
	}

	if _, err := restored.svc.Authenticate(a.Token); err != nil {
		t.Errorf("session lost across restore: %v", err)
	}
	page, err := restored.svc.ChannelMessages(ctx, a.AuthUserID, ch, 0)
	if err != nil {
		t.Fatalf("ChannelMessages() error = %v", err)
	}
	if len(page.Messages) != 1 || page.Messages[0].MessageID != msg {
		t.Errorf("restored messages = %+v", page.Messages)
	}
	next := restored.send(t, a.AuthUserID, ch, "after restore")
	if next != msg+1 {
		t.Errorf("next id = %d, want %d", next, msg+1)
	}
	us, _ := restored.svc.UserStats(ctx, a.AuthUserID)
	if len(us.MessagesSent) != 3 {
		t.Errorf("restored messages_sent samples = %d, want 3", len(us.MessagesSent))
	}

	if err := restored.svc.Restore([]byte("{broken")); err == nil {
		t.Error("Restore(garbage) should fail")
	}
}

func TestClearDropsDeferredWork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "Alice", "Smith").AuthUserID
	ch := e.channel(t, a, "general", true)
	if _, err := e.svc.SendLater(ctx, a, ch, "later", e.now.Unix()+5); err != nil {
		t.Fatalf("SendLater() error = %v", err)
	}

	if err := e.svc.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	a2 := e.register(t, "Alice", "Smith").AuthUserID
	ch2 := e.channel(t, a2, "general", true)
	e.sched.runAll()

	page, _ := e.svc.ChannelMessages(ctx, a2, ch2, 0)
	if len(page.Messages) != 0 {
		t.Errorf("message from before Clear delivered: %+v", page.Messages)
	}
	if a2 != 1 || ch2 != 1 {
		t.Errorf("ids after Clear = user %d channel %d, want 1/1", a2, ch2)
	}
}
