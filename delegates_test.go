package pikala

import (
	"bytes"
	"testing"
)

func TestDelegateRoundTrip(t *testing.T) {
	dv := &DelegateValue{
		DelegateType: 1,
		Invocations: []DelegateInvocation{
			{Method: &PickledMethod{Sig: Signature{Name: "Handler1"}}, Target: "obj1"},
			{Method: &PickledMethod{Sig: Signature{Name: "Handler2"}}, Target: nil},
		},
	}
	codec := stubElementCodec{}

	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := encodeDelegateValue(w, dv, identityOf(dv), newEncodeMemo(), codec); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	memo := newDecodeMemo()
	got, hit, err := decodeDelegateValue(r, memo, codec)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("expected a fresh delegate, not a probe hit")
	}
	if len(got.Invocations) != 2 {
		t.Fatalf("got %d invocations, want 2", len(got.Invocations))
	}
	if got.Invocations[0].Method.Sig.Name != "Handler1" || got.Invocations[0].Target.(string) != "obj1" {
		t.Errorf("invocation 0: got %+v", got.Invocations[0])
	}
	if got.Invocations[1].Method.Sig.Name != "Handler2" || got.Invocations[1].Target != nil {
		t.Errorf("invocation 1: got %+v", got.Invocations[1])
	}
}

func TestDelegateMemoProbeShortcut(t *testing.T) {
	dv := &DelegateValue{DelegateType: 1, Invocations: nil}
	codec := stubElementCodec{}
	id := identityOf(dv)

	encMemo := newEncodeMemo()
	for i := 0; i < 4; i++ {
		encMemo.publish(id + uintptr(i) + 1)
	}
	encMemo.publish(id)

	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := encodeDelegateValue(w, dv, id, encMemo, codec); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	memo := newDecodeMemo()
	for i := 0; i < 4; i++ {
		memo.reserve()
	}
	memo.reserve()
	memo.set(5, dv)

	got, hit, err := decodeDelegateValue(r, memo, codec)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("expected probe hit")
	}
	if got != dv {
		t.Error("expected the same memoized instance back")
	}
}

func TestDelegateAliasedThroughRealDriverDecodesToSameInstance(t *testing.T) {
	inner := &DelegateValue{
		DelegateType: builtinObject,
		Invocations: []DelegateInvocation{
			{Method: &PickledMethod{DeclaringType: builtinObject, Sig: Signature{Name: "Handler", Return: Location{Element: TypeExprType{Handle: builtinObject}}}}, Target: "obj"},
		},
	}
	outer := &ArrayValue{
		ElementType: builtinObject,
		Elements:    []any{inner, inner},
	}

	var buf bytes.Buffer
	p := NewPickler(fakeDispatchFacade{})
	if err := p.Pickle(&buf, outer); err != nil {
		t.Fatal(err)
	}
	u := NewUnpickler(fakeDispatchFacade{})
	gotAny, err := u.Unpickle(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got := gotAny.(*ArrayValue)
	a := got.Elements[0].(*DelegateValue)
	b := got.Elements[1].(*DelegateValue)
	if a != b {
		t.Error("expected the two occurrences of the aliased delegate to decode to the same memoized instance")
	}
}
