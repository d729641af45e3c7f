package pikala

import (
	"bytes"
	"hash/maphash"
	"testing"
)

type stubTypeRefCodec struct{}

func (stubTypeRefCodec) encodeTypeRef(w *streamWriter, t TypeHandle) error {
	return writeVarUint32(w, uint32(t.(int)))
}
func (stubTypeRefCodec) decodeTypeRef(r *streamReader) (TypeHandle, error) {
	v, err := readVarUint32(r)
	return int(v), err
}

func TestTypeExprEqual(t *testing.T) {
	a := TypeExprGeneric{Def: TypeExprType{Handle: 1}, Args: []TypeExpr{TypeExprTVar{Index: 0}}}
	b := TypeExprGeneric{Def: TypeExprType{Handle: 1}, Args: []TypeExpr{TypeExprTVar{Index: 0}}}
	c := TypeExprGeneric{Def: TypeExprType{Handle: 2}, Args: []TypeExpr{TypeExprTVar{Index: 0}}}
	if !typeExprEqual(a, b) {
		t.Error("expected a == b")
	}
	if typeExprEqual(a, c) {
		t.Error("expected a != c")
	}
}

func TestSigEqual(t *testing.T) {
	sig1 := Signature{Name: "M", Return: Location{Element: TypeExprType{Handle: 1}}}
	sig2 := Signature{Name: "M", Return: Location{Element: TypeExprType{Handle: 1}}}
	sig3 := Signature{Name: "M", Return: Location{Element: TypeExprType{Handle: 2}}}
	if !sigEqual(sig1, sig2) {
		t.Error("expected sig1 == sig2")
	}
	if sigEqual(sig1, sig3) {
		t.Error("expected sig1 != sig3")
	}
}

func TestSignatureStructuralHashConsistentWithEquality(t *testing.T) {
	seed := maphash.MakeSeed()
	sig1 := Signature{Name: "M", Params: []Location{{Element: TypeExprTVar{Index: 0}}}}
	sig2 := Signature{Name: "M", Params: []Location{{Element: TypeExprTVar{Index: 0}}}}
	if signatureStructuralHash(seed, sig1) != signatureStructuralHash(seed, sig2) {
		t.Error("equal signatures must hash equally under the same seed")
	}
}

func TestTypeExprRoundTrip(t *testing.T) {
	codec := stubTypeRefCodec{}
	exprs := []TypeExpr{
		TypeExprType{Handle: 7},
		TypeExprTVar{Index: 2},
		TypeExprMVar{Index: 1},
		TypeExprArray{Rank: 2, Elem: TypeExprType{Handle: 3}},
		TypeExprByRef{Elem: TypeExprType{Handle: 4}},
		TypeExprPointer{Elem: TypeExprType{Handle: 5}},
		TypeExprGeneric{Def: TypeExprType{Handle: 1}, Args: []TypeExpr{TypeExprTVar{Index: 0}, TypeExprType{Handle: 9}}},
	}
	for _, e := range exprs {
		var buf bytes.Buffer
		w := newStreamWriter(&buf)
		if err := encodeTypeExpr(w, e, codec); err != nil {
			t.Fatalf("encode %#v: %v", e, err)
		}
		w.Flush()
		r := newStreamReader(&buf)
		got, err := decodeTypeExpr(r, codec)
		if err != nil {
			t.Fatalf("decode %#v: %v", e, err)
		}
		if !typeExprEqual(e, got) {
			t.Errorf("roundtrip mismatch: got %#v want %#v", got, e)
		}
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	codec := stubTypeRefCodec{}
	sig := Signature{
		Name:              "DoThing",
		CallingConvention: 1,
		GenericParamCount: 1,
		Return:            Location{Element: TypeExprType{Handle: 1}},
		Params: []Location{
			{Element: TypeExprTVar{Index: 0}, RequiredMods: []TypeHandle{2}},
			{Element: TypeExprType{Handle: 3}},
		},
	}

	var buf bytes.Buffer
	w := newStreamWriter(&buf)
	if err := encodeSignature(w, sig, codec); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	r := newStreamReader(&buf)
	got, err := decodeSignature(r, codec)
	if err != nil {
		t.Fatal(err)
	}
	if !sigEqual(sig, got) {
		t.Errorf("roundtrip mismatch: got %#v want %#v", got, sig)
	}
}

func TestSignatureCacheGetSet(t *testing.T) {
	c := newSignatureCache()
	sig := Signature{Name: "Foo"}
	if _, ok := c.get(1, sigKindMethod, sig); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.set(1, sigKindMethod, sig, "member")
	v, ok := c.get(1, sigKindMethod, sig)
	if !ok || v != "member" {
		t.Fatalf("got %v, %v, want %q, true", v, ok, "member")
	}
	if _, ok := c.get(1, sigKindProperty, sig); ok {
		t.Error("expected distinct member kind to miss")
	}
}
