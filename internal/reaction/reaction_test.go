package reaction

import (
	"testing"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
)

func TestReactIsNotIdempotent(t *testing.T) {
	msg := models.NewMessage(1, 10, "hello", 0)

	if err := React(msg, 20, models.ReactLike); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if !HasReacted(msg, 20, models.ReactLike) {
		t.Fatal("HasReacted() = false after React")
	}
	if err := React(msg, 20, models.ReactLike); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("second React() error = %v, want input error", err)
	}

	if err := Unreact(msg, 20, models.ReactLike); err != nil {
		t.Fatalf("Unreact() error = %v", err)
	}
	if err := Unreact(msg, 20, models.ReactLike); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("second Unreact() error = %v, want input error", err)
	}
	if err := React(msg, 20, models.ReactLike); err != nil {
		t.Fatalf("React() after Unreact error = %v", err)
	}
}

func TestUnknownKind(t *testing.T) {
	msg := models.NewMessage(1, 10, "hello", 0)
	if err := React(msg, 20, 2); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("React(kind=2) error = %v, want input error", err)
	}
	if err := Unreact(msg, 20, 0); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("Unreact(kind=0) error = %v, want input error", err)
	}
	if len(msg.Reacts) != 1 {
		t.Fatalf("len(Reacts) = %d, want 1", len(msg.Reacts))
	}
}

func TestReactRestoresMissingSlot(t *testing.T) {
	msg := &models.Message{ID: 4}
	if err := React(msg, 1, models.ReactLike); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if !HasReacted(msg, 1, models.ReactLike) {
		t.Fatal("HasReacted() = false")
	}
}

func TestUnreactWithoutSlotLeavesMessageUnchanged(t *testing.T) {
	msg := &models.Message{ID: 4}
	if err := Unreact(msg, 1, models.ReactLike); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("Unreact() error = %v, want input error", err)
	}
	if len(msg.Reacts) != 0 {
		t.Fatalf("Reacts = %+v, want none", msg.Reacts)
	}
}

func TestPinToggle(t *testing.T) {
	msg := models.NewMessage(1, 10, "hello", 0)

	if err := Unpin(msg); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("Unpin() on unpinned error = %v, want input error", err)
	}
	if err := Pin(msg); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	if err := Pin(msg); !apperr.Is(err, apperr.KindInput) {
		t.Fatalf("second Pin() error = %v, want input error", err)
	}
	if err := Unpin(msg); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}
	if msg.Pinned {
		t.Fatal("Pinned = true after Unpin")
	}
}
