package pikala

import (
	"bytes"
	"testing"
)

func TestVarUint32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 1 << 28, 0xFFFFFFFF}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := writeVarUint32(&buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := readVarUint32(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Errorf("roundtrip %d: got %d", v, got)
		}
	}
}

func TestVarInt32RoundTripNegative(t *testing.T) {
	var buf bytes.Buffer
	if err := writeVarInt32(&buf, -1); err != nil {
		t.Fatal(err)
	}
	got, err := readVarInt32(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}

func TestVar15RoundTrip(t *testing.T) {
	cases := []uint16{0, 1, 0x7F, 0x80, 0x7FFF}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := writeVar15(&buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := readVar15(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Errorf("roundtrip %d: got %d", v, got)
		}
	}
}

func TestVar15OneByteBelow0x80(t *testing.T) {
	var buf bytes.Buffer
	writeVar15(&buf, 5)
	if buf.Len() != 1 {
		t.Errorf("expected 1 byte encoding for 5, got %d", buf.Len())
	}
}

func TestVar15TwoBytesAtOrAbove0x80(t *testing.T) {
	var buf bytes.Buffer
	writeVar15(&buf, 0x80)
	if buf.Len() != 2 {
		t.Errorf("expected 2 byte encoding for 0x80, got %d", buf.Len())
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "hello", "世界", string(make([]byte, 300))}
	for _, s := range cases {
		var buf bytes.Buffer
		if err := writeString(&buf, s); err != nil {
			t.Fatalf("write %q: %v", s, err)
		}
		got, err := readString(&buf)
		if err != nil {
			t.Fatalf("read %q: %v", s, err)
		}
		if got != s {
			t.Errorf("roundtrip mismatch: got %q want %q", got, s)
		}
	}
}

func TestNullableStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeNullableString(&buf, nil); err != nil {
		t.Fatal(err)
	}
	got, err := readNullableString(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", *got)
	}

	s := "hi"
	buf.Reset()
	if err := writeNullableString(&buf, &s); err != nil {
		t.Fatal(err)
	}
	got, err = readNullableString(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != s {
		t.Errorf("got %v, want %q", got, s)
	}
}

func TestCompressedUintRoundTrip(t *testing.T) {
	cases := []uint32{0, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFFFF}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := writeCompressedUint(&buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := readCompressedUint(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Errorf("roundtrip %d: got %d", v, got)
		}
	}
}

func TestCompressedUintWidths(t *testing.T) {
	widths := []struct {
		v    uint32
		want int
	}{
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 4},
	}
	for _, w := range widths {
		var buf bytes.Buffer
		writeCompressedUint(&buf, w.v)
		if buf.Len() != w.want {
			t.Errorf("%d: expected %d bytes, got %d", w.v, w.want, buf.Len())
		}
	}
}
