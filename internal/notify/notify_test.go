package notify

import (
	"strings"
	"testing"

	"github.com/lalith-99/streams/internal/models"
)

func TestTaggedHandle(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"hello @alice how are you", "alice", true},
		{"@bob", "bob", true},
		{"@carol, and @dave", "carol", true},
		{"ping @erin99!", "erin99", true},
		{"no mention here", "", false},
		{"trailing @", "", false},
		{"@ alice", "", false},
		{"@@alice", "", false},
	}
	for _, tt := range tests {
		got, ok := TaggedHandle(tt.text)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("TaggedHandle(%q) = %q, %v, want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

type handles map[string]*models.User

func (h handles) ByHandle(handle string) *models.User { return h[handle] }

func TestTagged(t *testing.T) {
	sender := &models.User{ID: 1, Handle: "sender"}
	alice := &models.User{ID: 2, Handle: "alice"}
	bob := &models.User{ID: 3, Handle: "bob"}
	users := handles{"alice": alice, "bob": bob}
	target := Target{Ref: models.ContainerRef{Kind: models.KindChannel, ID: 7}, Name: "general"}
	members := models.IDs{1, 2}

	text := "@alice please review the deploy plan today"
	d, ok := Tagged(users, members, sender, target, text)
	if !ok {
		t.Fatal("Tagged() ok = false")
	}
	if d.UserID != alice.ID {
		t.Fatalf("UserID = %d, want %d", d.UserID, alice.ID)
	}
	want := "sender tagged you in general: " + text[:20]
	if d.Notification.Text != want {
		t.Fatalf("Text = %q, want %q", d.Notification.Text, want)
	}
	if !strings.HasSuffix(d.Notification.Text, ": @alice please review") {
		t.Fatalf("Text does not end with the 20-char preview: %q", d.Notification.Text)
	}
	if d.Notification.ChannelID != 7 || d.Notification.DMID != -1 {
		t.Fatalf("target ids = %d/%d, want 7/-1", d.Notification.ChannelID, d.Notification.DMID)
	}

	if _, ok := Tagged(users, members, sender, target, "hi @bob"); ok {
		t.Fatal("Tagged() notified a non-member")
	}
	if _, ok := Tagged(users, members, sender, target, "hi @nobody"); ok {
		t.Fatal("Tagged() notified an unknown handle")
	}
	if _, ok := Tagged(users, members, sender, target, "hi @bob and @alice"); ok {
		t.Fatal("Tagged() looked past the first mention")
	}
}

func TestReacted(t *testing.T) {
	reactor := &models.User{ID: 1, Handle: "rita"}
	target := Target{Ref: models.ContainerRef{Kind: models.KindDM, ID: 3}, Name: "alice, rita"}

	d, ok := Reacted(reactor, 2, target)
	if !ok {
		t.Fatal("Reacted() ok = false")
	}
	if d.Notification.Text != "rita reacted to your message in alice, rita" {
		t.Fatalf("Text = %q", d.Notification.Text)
	}
	if d.Notification.DMID != 3 || d.Notification.ChannelID != -1 {
		t.Fatalf("target ids = %d/%d, want -1/3", d.Notification.ChannelID, d.Notification.DMID)
	}
	if _, ok := Reacted(reactor, models.RemovedUserID, target); ok {
		t.Fatal("Reacted() notified a removed author")
	}
}

func TestAdded(t *testing.T) {
	inviter := &models.User{ID: 1, Handle: "ivan"}
	d := Added(inviter, 5, Target{Ref: models.ContainerRef{Kind: models.KindChannel, ID: 2}, Name: "ops"})
	if d.UserID != 5 || d.Notification.Text != "ivan added you to ops" {
		t.Fatalf("Added() = %+v", d)
	}
}
