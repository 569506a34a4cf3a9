package state

import "testing"

func TestMemoryManagerStates(t *testing.T) {
	m := NewMemoryManager()

	if m.GetState(1) != Idle {
		t.Fatal("fresh user should be idle")
	}
	if m.InProgress(1) {
		t.Fatal("fresh user should not be in progress")
	}

	m.SetState(1, AwaitingName)
	if m.GetState(1) != AwaitingName {
		t.Fatal("state not set")
	}
	if !m.InProgress(1) {
		t.Fatal("user should be in progress")
	}
	if m.InProgress(2) {
		t.Fatal("state leaked to another user")
	}

	m.ClearState(1)
	if m.GetState(1) != Idle {
		t.Fatal("state not cleared")
	}
}

func TestMemoryManagerTemp(t *testing.T) {
	m := NewMemoryManager()

	m.SetTemp(7, "tariff_id", int64(42))
	got, ok := m.GetTempInt64(7, "tariff_id")
	if !ok || got != 42 {
		t.Fatalf("GetTempInt64 = %d, %v", got, ok)
	}

	m.SetTemp(7, "note", "text")
	if _, ok := m.GetTempInt64(7, "note"); ok {
		t.Fatal("non-int64 value should not assert")
	}

	m.ClearTemp(7, "tariff_id")
	if _, ok := m.GetTemp(7, "tariff_id"); ok {
		t.Fatal("temp not cleared")
	}

	m.SetState(7, AwaitingName)
	m.Clear(7)
	if m.GetState(7) != Idle {
		t.Fatal("Clear should drop the session")
	}
}
