package pikala

import (
	"bytes"
	"testing"
)

func TestWellKnownTypeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := writeWellKnownType(w, builtinInt32); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	got, err := readWellKnownType(r)
	if err != nil {
		t.Fatal(err)
	}
	if got != builtinInt32 {
		t.Errorf("got %v, want builtinInt32", got)
	}
}

func TestWellKnownTypeOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(numBuiltins) + 10)
	r := newStreamReader(&buf)
	_, err := readWellKnownType(r)
	if _, ok := err.(*StreamFormatError); !ok {
		t.Fatalf("expected *StreamFormatError, got %T (%v)", err, err)
	}
}

func TestResolveBuiltinByName(t *testing.T) {
	h, ok := resolveBuiltinByName("System.String")
	if !ok || h != builtinString {
		t.Fatalf("got %v, %v, want builtinString, true", h, ok)
	}
	_, ok = resolveBuiltinByName("System.NoSuchType")
	if ok {
		t.Error("expected lookup of an unknown name to fail")
	}
}

func TestNonIntegerBuiltinsDoNotFastPath(t *testing.T) {
	for _, h := range []builtinHandle{builtinObject, builtinString, builtinDecimal, builtinGuid} {
		info := builtinTypeInfo[h]
		if _, ok := fastPathWidth(info.TypeCode); ok {
			t.Errorf("%s: TypeCode %v unexpectedly qualifies for the array fast path", builtinNames[h], info.TypeCode)
		}
	}
}

func TestBuiltinTypeInfoRegistered(t *testing.T) {
	for h := builtinHandle(0); h < numBuiltins; h++ {
		info, ok := builtinTypeInfo[h]
		if !ok {
			t.Fatalf("builtin %v missing from builtinTypeInfo", builtinNames[h])
		}
		if info.Mode != ModeBuiltin {
			t.Errorf("builtin %v: mode = %v, want ModeBuiltin", builtinNames[h], info.Mode)
		}
	}
}
