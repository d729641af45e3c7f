package pikala

import (
	"bytes"
	"testing"
)

func TestEncodeMemoPublishLookup(t *testing.T) {
	m := newEncodeMemo()
	if id := m.lookup(42); id != 0 {
		t.Fatalf("expected 0 for unpublished ptr, got %d", id)
	}
	id1 := m.publish(42)
	if id1 != 1 {
		t.Fatalf("expected first published id 1, got %d", id1)
	}
	id2 := m.publish(43)
	if id2 != 2 {
		t.Fatalf("expected second published id 2, got %d", id2)
	}
	if got := m.lookup(42); got != id1 {
		t.Fatalf("lookup mismatch: got %d want %d", got, id1)
	}
}

func TestDecodeMemoReserveSetGet(t *testing.T) {
	m := newDecodeMemo()
	id := m.reserve()
	if _, err := m.get(id); err != nil {
		t.Fatalf("reserved slot should resolve to nil without error: %v", err)
	}
	m.set(id, "value")
	v, err := m.get(id)
	if err != nil {
		t.Fatal(err)
	}
	if v != "value" {
		t.Errorf("got %v, want %q", v, "value")
	}
}

func TestDecodeMemoGetUnpublishedIsBadMemoError(t *testing.T) {
	m := newDecodeMemo()
	_, err := m.get(1)
	if _, ok := err.(*BadMemoError); !ok {
		t.Fatalf("expected *BadMemoError, got %T (%v)", err, err)
	}
}

func TestMemoIdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMemoId(&buf, 12345); err != nil {
		t.Fatal(err)
	}
	got, err := readMemoId(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 12345 {
		t.Errorf("got %d, want 12345", got)
	}
}

func TestMemoProbeCapsAtZero(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMemoProbe(&buf, 0x8000); err != nil {
		t.Fatal(err)
	}
	got, err := readMemoProbe(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("expected probe to fall back to 0 for an id too large, got %d", got)
	}
}

func TestMemoProbeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMemoProbe(&buf, 100); err != nil {
		t.Fatal(err)
	}
	got, err := readMemoProbe(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}
