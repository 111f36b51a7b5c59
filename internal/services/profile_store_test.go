package services

import (
	"testing"

	"bountyboard/internal/models"
)

func profileNamed(name string) *models.Profile {
	return &models.Profile{UserID: "user-1", DisplayName: name}
}

func TestProfileStoreSubscribeDeliversCurrent(t *testing.T) {
	store := NewProfileStore()

	var early []string
	store.Subscribe(func(p *models.Profile) {
		early = append(early, p.DisplayName)
	})
	if len(early) != 0 {
		t.Errorf("empty store must not deliver on subscribe, got %v", early)
	}

	store.Update(profileNamed("alice"))

	var late []string
	store.Subscribe(func(p *models.Profile) {
		late = append(late, p.DisplayName)
	})
	if len(late) != 1 || late[0] != "alice" {
		t.Errorf("expected synchronous delivery of current profile, got %v", late)
	}
}

func TestProfileStoreFanOut(t *testing.T) {
	store := NewProfileStore()

	var a, b []string
	store.Subscribe(func(p *models.Profile) { a = append(a, p.DisplayName) })
	store.Subscribe(func(p *models.Profile) { b = append(b, p.DisplayName) })

	store.Update(profileNamed("alice"))
	store.Update(profileNamed("bob"))

	for name, got := range map[string][]string{"a": a, "b": b} {
		if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
			t.Errorf("listener %s saw %v, want [alice bob]", name, got)
		}
	}
	if store.Current().DisplayName != "bob" {
		t.Errorf("current = %s, want bob", store.Current().DisplayName)
	}
}

func TestProfileStoreUnsubscribe(t *testing.T) {
	store := NewProfileStore()

	var got []string
	unsubscribe := store.Subscribe(func(p *models.Profile) {
		got = append(got, p.DisplayName)
	})

	store.Update(profileNamed("alice"))
	unsubscribe()
	store.Update(profileNamed("bob"))

	if len(got) != 1 || got[0] != "alice" {
		t.Errorf("unsubscribed listener saw %v, want [alice]", got)
	}
}

func TestProfileStoreReentrantUpdateQueued(t *testing.T) {
	store := NewProfileStore()

	var order []string
	store.Subscribe(func(p *models.Profile) {
		order = append(order, "first:"+p.DisplayName)
		// Publishing from inside a notification must not re-enter the
		// fan-out; it runs after the current round completes.
		if p.DisplayName == "alice" {
			store.Update(profileNamed("bob"))
			order = append(order, "first-returned")
		}
	})
	store.Subscribe(func(p *models.Profile) {
		order = append(order, "second:"+p.DisplayName)
	})

	store.Update(profileNamed("alice"))

	want := []string{
		"first:alice", "first-returned", "second:alice",
		"first:bob", "second:bob",
	}
	if len(order) != len(want) {
		t.Fatalf("delivery order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order %v, want %v", order, want)
		}
	}
	if store.Current().DisplayName != "bob" {
		t.Errorf("current = %s, want the queued update", store.Current().DisplayName)
	}
}

func TestProfileStoreClear(t *testing.T) {
	store := NewProfileStore()
	store.Update(profileNamed("alice"))

	var calls int
	store.Subscribe(func(*models.Profile) { calls++ })
	if calls != 1 {
		t.Fatalf("expected initial delivery, got %d", calls)
	}

	store.Clear()
	if store.Current() != nil {
		t.Error("expected nil profile after clear")
	}
	if calls != 1 {
		t.Errorf("clear must not notify, got %d calls", calls)
	}

	var late []string
	store.Subscribe(func(p *models.Profile) { late = append(late, p.DisplayName) })
	if len(late) != 0 {
		t.Errorf("cleared store must not deliver on subscribe, got %v", late)
	}
}
