// Package notify derives notification records from message text and
// membership events.
package notify

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lalith-99/streams/internal/models"
)

// FeedLimit caps how many notifications a read returns.
const FeedLimit = 20

// tagPreviewLen is how much of a tagging message the notification quotes.
const tagPreviewLen = 20

// Target is where a notification points and what it is called.
type Target struct {
	Ref  models.ContainerRef
	Name string
}

// Delivery is a notification bound for one user.
type Delivery struct {
	UserID       int
	Notification models.Notification
}

// TaggedHandle returns the handle named by the first '@' in text: the
// longest run of letters and digits right after it. Later '@'s are
// ignored. ok is false when there is no '@' or nothing follows it.
func TaggedHandle(text string) (handle string, ok bool) {
	i := strings.IndexByte(text, '@')
	if i < 0 {
		return "", false
	}
	rest := text[i+1:]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

// HandleLookup resolves active users by handle.
type HandleLookup interface {
	ByHandle(handle string) *models.User
}

// Tagged builds the notification for a message that mentions a member of
// the target container. ok is false if nobody eligible is tagged.
func Tagged(users HandleLookup, members models.IDs, sender *models.User, target Target, text string) (Delivery, bool) {
	handle, ok := TaggedHandle(text)
	if !ok {
		return Delivery{}, false
	}
	tagged := users.ByHandle(handle)
	if tagged == nil || !members.Has(tagged.ID) {
		return Delivery{}, false
	}
	msg := fmt.Sprintf("%s tagged you in %s: %s", sender.Handle, target.Name, preview(text))
	return Delivery{UserID: tagged.ID, Notification: build(target, msg)}, true
}

// Reacted builds the notification telling authorID someone reacted.
// Messages by removed users get none.
func Reacted(reactor *models.User, authorID int, target Target) (Delivery, bool) {
	if authorID == models.RemovedUserID {
		return Delivery{}, false
	}
	msg := fmt.Sprintf("%s reacted to your message in %s", reactor.Handle, target.Name)
	return Delivery{UserID: authorID, Notification: build(target, msg)}, true
}

// Added builds the notification telling addedID they joined target.
func Added(inviter *models.User, addedID int, target Target) Delivery {
	msg := fmt.Sprintf("%s added you to %s", inviter.Handle, target.Name)
	return Delivery{UserID: addedID, Notification: build(target, msg)}
}

// preview is a hard cut at tagPreviewLen characters.
func preview(text string) string {
	r := []rune(text)
	if len(r) > tagPreviewLen {
		r = r[:tagPreviewLen]
	}
	return string(r)
}

func build(target Target, text string) models.Notification {
	n := models.Notification{ChannelID: -1, DMID: -1, Text: text}
	switch target.Ref.Kind {
	case models.KindChannel:
		n.ChannelID = target.Ref.ID
	case models.KindDM:
		n.DMID = target.Ref.ID
	}
	return n
}
