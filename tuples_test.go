package pikala

import (
	"bytes"
	"testing"
)

func TestTupleRoundTrip(t *testing.T) {
	tv := &TupleValue{
		ElementTypes: []TypeHandle{1, 2},
		Elements:     []any{int32(42), "hello"},
	}
	codec := stubElementCodec{}

	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := encodeTupleValue(w, tv, identityOf(tv), newEncodeMemo(), codec); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	memo := newDecodeMemo()
	got, hit, err := decodeTupleValue(r, memo, codec)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("expected a fresh tuple, not a probe hit")
	}
	if len(got.Elements) != 2 || got.Elements[0].(int32) != 42 || got.Elements[1].(string) != "hello" {
		t.Errorf("got %+v", got)
	}
}

func TestTupleMemoProbeShortcut(t *testing.T) {
	tv := &TupleValue{ElementTypes: []TypeHandle{1}, Elements: []any{int32(7)}}
	codec := stubElementCodec{}
	id := identityOf(tv)

	encMemo := newEncodeMemo()
	encMemo.publish(id + 1) // two unrelated entries ahead of tv, landing it at id 3
	encMemo.publish(id + 2)
	encMemo.publish(id)

	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := encodeTupleValue(w, tv, id, encMemo, codec); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	memo := newDecodeMemo()
	memo.reserve()
	memo.reserve()
	memo.reserve()
	memo.set(3, tv)

	got, hit, err := decodeTupleValue(r, memo, codec)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("expected probe hit")
	}
	if got != tv {
		t.Errorf("expected the same memoized instance back")
	}
}

func TestTupleAliasedThroughRealDriverDecodesToSameInstance(t *testing.T) {
	inner := &TupleValue{ElementTypes: []TypeHandle{builtinInt32}, Elements: []any{int32(9)}}
	outer := &ArrayValue{
		ElementType: builtinObject,
		Elements:    []any{inner, inner},
	}

	var buf bytes.Buffer
	p := NewPickler(noopFacade{})
	if err := p.Pickle(&buf, outer); err != nil {
		t.Fatal(err)
	}
	u := NewUnpickler(noopFacade{})
	gotAny, err := u.Unpickle(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got := gotAny.(*ArrayValue)
	a := got.Elements[0].(*TupleValue)
	b := got.Elements[1].(*TupleValue)
	if a != b {
		t.Error("expected the two occurrences of the aliased tuple to decode to the same memoized instance")
	}
}
