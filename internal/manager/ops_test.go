package manager

import (
	"errors"
	"testing"

	"chatd/internal/decoding"
)

func TestSwitchActive_LoadsAndSetsActive(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, "a", "b")
	if m.Ready() {
		t.Fatalf("ready before any switch")
	}
	name, err := m.SwitchActive(testCtx(t), "A")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if name != "a" || m.Active() != "a" || !m.Ready() {
		t.Fatalf("active = %q (%q), ready=%v", m.Active(), name, m.Ready())
	}
	if _, err := m.SwitchActive(testCtx(t), "b"); err != nil {
		t.Fatalf("switch b: %v", err)
	}
	if !m.IsLoaded("a") {
		t.Fatalf("previous active must stay loaded")
	}
	if b.loadCount("a") != 1 {
		t.Fatalf("a loaded %d times", b.loadCount("a"))
	}
}

func TestSwitchActive_FailureKeepsPrevious(t *testing.T) {
	b := newFakeBackend()
	b.setFail("b", errors.New("nope"))
	m := newTestManager(t, b, "a", "b")
	if _, err := m.SwitchActive(testCtx(t), "a"); err != nil {
		t.Fatalf("switch a: %v", err)
	}
	if _, err := m.SwitchActive(testCtx(t), "b"); !IsLoadFailed(err) {
		t.Fatalf("expected LoadFailed, got %v", err)
	}
	if m.Active() != "a" {
		t.Fatalf("active changed to %q", m.Active())
	}
	if _, err := m.SwitchActive(testCtx(t), "zzz"); err == nil {
		t.Fatalf("expected NotFound")
	}
	if m.Active() != "a" {
		t.Fatalf("active changed to %q", m.Active())
	}
}

// Switch, chat, switch away, then unload the old model.
func TestLifecycleScenario(t *testing.T) {
	b := newFakeBackend()
	b.tokens = []string{"Hi", " there"}
	m := newTestManager(t, b, "TinyLlama-1.1B-chat", "Qwen2.5-3B")

	if _, err := m.SwitchActive(testCtx(t), "TinyLlama-1.1B-chat"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	l, err := m.AcquireActive(testCtx(t))
	if err != nil {
		t.Fatalf("AcquireActive: %v", err)
	}
	res, err := l.Generate(testCtx(t), "hello", decoding.Defaults(), nil)
	if err != nil || res.Content != "Hi there" {
		t.Fatalf("Generate = %q, %v", res.Content, err)
	}
	l.Release()

	if err := m.Unload("TinyLlama-1.1B-chat"); !IsProtected(err) {
		t.Fatalf("expected Protected, got %v", err)
	}
	if _, err := m.SwitchActive(testCtx(t), "Qwen2.5-3B"); err != nil {
		t.Fatalf("switch qwen: %v", err)
	}
	if err := m.Unload("TinyLlama-1.1B-chat"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if m.IsLoaded("TinyLlama-1.1B-chat") || !b.lastModel("TinyLlama-1.1B-chat").closed.Load() {
		t.Fatalf("old model should be destroyed")
	}
	if got := m.Loaded(); len(got) != 1 || got[0] != "Qwen2.5-3B" {
		t.Fatalf("Loaded = %v", got)
	}
}

func TestActiveModelProtectedUntilReplaced(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, "TinyLlama", "Other")
	if _, err := m.SwitchActive(testCtx(t), "TinyLlama"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	leases := make(chan *Lease, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			l, err := m.Acquire(testCtx(t), "TinyLlama")
			if err != nil {
				errs <- err
				return
			}
			leases <- l
		}()
	}
	var held []*Lease
	for len(held) < 2 {
		select {
		case l := <-leases:
			held = append(held, l)
		case err := <-errs:
			t.Fatalf("Acquire: %v", err)
		}
	}
	if got := m.InFlight("TinyLlama"); got != 2 {
		t.Fatalf("InFlight = %d, want 2", got)
	}
	for _, l := range held {
		l.Release()
	}
	if got := m.InFlight("TinyLlama"); got != 0 {
		t.Fatalf("InFlight = %d, want 0", got)
	}
	if err := m.Unload("TinyLlama"); !IsProtected(err) {
		t.Fatalf("expected Protected, got %v", err)
	}
	if _, err := m.SwitchActive(testCtx(t), "Other"); err != nil {
		t.Fatalf("switch other: %v", err)
	}
	if err := m.Unload("TinyLlama"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if b.loadCount("TinyLlama") != 1 {
		t.Fatalf("TinyLlama loaded %d times", b.loadCount("TinyLlama"))
	}
}
