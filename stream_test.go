package pikala

import (
	"bytes"
	"testing"
)

func TestStreamHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := writeHeader(w); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	version, err := readHeader(r)
	if err != nil {
		t.Fatal(err)
	}
	if version.String() != StreamVersion.String() {
		t.Errorf("got version %s, want %s", version, StreamVersion)
	}
}

func TestStreamHeaderBadMagic(t *testing.T) {
	r := newStreamReader(bytes.NewReader([]byte("XXXX")))
	_, err := readHeader(r)
	if _, ok := err.(*StreamFormatError); !ok {
		t.Fatalf("expected *StreamFormatError for bad magic, got %T (%v)", err, err)
	}
}

func TestPeekStreamVersion(t *testing.T) {
	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	writeHeader(w)
	w.Flush()

	v, err := PeekStreamVersion(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if v != StreamVersion.String() {
		t.Errorf("got %s, want %s", v, StreamVersion)
	}
}

func TestStreamScalarRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	w.writeBool(true)
	w.writeInt64(-123456789)
	w.writeFloat64(3.14159)
	w.Flush()

	r := newStreamReader(&buf)
	b, err := r.readBool()
	if err != nil || !b {
		t.Fatalf("readBool: %v %v", b, err)
	}
	i, err := r.readInt64()
	if err != nil || i != -123456789 {
		t.Fatalf("readInt64: %v %v", i, err)
	}
	f, err := r.readFloat64()
	if err != nil || f != 3.14159 {
		t.Fatalf("readFloat64: %v %v", f, err)
	}
}
