package pikala

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"io"

	"github.com/aristanetworks/gomap"
	"github.com/spaolacci/murmur3"
)

// TypeExpr is the recursive element tree of §3's Signature model:
//
//	Type | TVar i | MVar i | Generic(def, args) | Array(rank, elt) | ByRef(elt) | Pointer(elt)
type TypeExpr interface {
	isTypeExpr()
}

// TypeExprType names a concrete, already-resolved type via an opaque
// façade handle.
type TypeExprType struct{ Handle TypeHandle }

// TypeExprTVar is the i-th generic parameter of the enclosing type.
type TypeExprTVar struct{ Index int }

// TypeExprMVar is the i-th generic parameter of the enclosing method.
type TypeExprMVar struct{ Index int }

// TypeExprGeneric is a generic type instantiated with concrete or
// still-open arguments.
type TypeExprGeneric struct {
	Def  TypeExpr
	Args []TypeExpr
}

// TypeExprArray is an array type constructor. Rank 0 means a vector
// (SZ array); rank >= 1 means multi-dimensional (§3 PickledType ArrayOf).
type TypeExprArray struct {
	Rank int
	Elem TypeExpr
}

// TypeExprByRef and TypeExprPointer are the adjunct type constructors
// of §3's PickledType (ByRefOf/PointerOf).
type TypeExprByRef struct{ Elem TypeExpr }
type TypeExprPointer struct{ Elem TypeExpr }

func (TypeExprType) isTypeExpr()    {}
func (TypeExprTVar) isTypeExpr()    {}
func (TypeExprMVar) isTypeExpr()    {}
func (TypeExprGeneric) isTypeExpr() {}
func (TypeExprArray) isTypeExpr()   {}
func (TypeExprByRef) isTypeExpr()   {}
func (TypeExprPointer) isTypeExpr() {}

// Location is an element together with its required/optional custom
// modifiers, as carried by a Signature's return and parameter slots.
type Location struct {
	Element      TypeExpr
	RequiredMods []TypeHandle
	OptionalMods []TypeHandle
}

// Signature is the structural key for a method/property/constructor
// signature (§3): two signatures are equal, independent of which side
// produced them, iff their structure matches element-wise.
type Signature struct {
	Name              string
	CallingConvention byte
	GenericParamCount int
	Return            Location
	Params            []Location
}

// typeExprEqual implements structural equality over the TypeExpr tree.
func typeExprEqual(a, b TypeExpr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case TypeExprType:
		bv, ok := b.(TypeExprType)
		return ok && av.Handle == bv.Handle
	case TypeExprTVar:
		bv, ok := b.(TypeExprTVar)
		return ok && av.Index == bv.Index
	case TypeExprMVar:
		bv, ok := b.(TypeExprMVar)
		return ok && av.Index == bv.Index
	case TypeExprGeneric:
		bv, ok := b.(TypeExprGeneric)
		if !ok || len(av.Args) != len(bv.Args) || !typeExprEqual(av.Def, bv.Def) {
			return false
		}
		for i := range av.Args {
			if !typeExprEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case TypeExprArray:
		bv, ok := b.(TypeExprArray)
		return ok && av.Rank == bv.Rank && typeExprEqual(av.Elem, bv.Elem)
	case TypeExprByRef:
		bv, ok := b.(TypeExprByRef)
		return ok && typeExprEqual(av.Elem, bv.Elem)
	case TypeExprPointer:
		bv, ok := b.(TypeExprPointer)
		return ok && typeExprEqual(av.Elem, bv.Elem)
	default:
		return false
	}
}

func modsEqual(a, b []TypeHandle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func locationEqual(a, b Location) bool {
	return typeExprEqual(a.Element, b.Element) &&
		modsEqual(a.RequiredMods, b.RequiredMods) &&
		modsEqual(a.OptionalMods, b.OptionalMods)
}

// sigEqual is Signature's structural equality, per §3.
func sigEqual(a, b Signature) bool {
	if a.Name != b.Name || a.CallingConvention != b.CallingConvention ||
		a.GenericParamCount != b.GenericParamCount {
		return false
	}
	if !locationEqual(a.Return, b.Return) {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !locationEqual(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return true
}

// writeTypeExprSkeleton folds a's structural shape into h: every
// variant contributes a tag byte and its scalar fields; nested
// TypeHandles are folded in via their %v representation, since they
// are opaque façade values with no guaranteed structural layout.
func writeTypeExprSkeleton(h murmur3.Hash128, e TypeExpr) {
	if e == nil {
		h.Write([]byte{0xFF})
		return
	}
	switch v := e.(type) {
	case TypeExprType:
		h.Write([]byte{0x01})
		fmt.Fprintf(h, "%v", v.Handle)
	case TypeExprTVar:
		h.Write([]byte{0x02})
		binary.Write(h, binary.BigEndian, int64(v.Index))
	case TypeExprMVar:
		h.Write([]byte{0x03})
		binary.Write(h, binary.BigEndian, int64(v.Index))
	case TypeExprGeneric:
		h.Write([]byte{0x04})
		writeTypeExprSkeleton(h, v.Def)
		binary.Write(h, binary.BigEndian, int64(len(v.Args)))
		for _, a := range v.Args {
			writeTypeExprSkeleton(h, a)
		}
	case TypeExprArray:
		h.Write([]byte{0x05})
		binary.Write(h, binary.BigEndian, int64(v.Rank))
		writeTypeExprSkeleton(h, v.Elem)
	case TypeExprByRef:
		h.Write([]byte{0x06})
		writeTypeExprSkeleton(h, v.Elem)
	case TypeExprPointer:
		h.Write([]byte{0x07})
		writeTypeExprSkeleton(h, v.Elem)
	}
}

// signatureStructuralHash combines murmur3 over the TypeExpr skeleton
// (mirroring how apache/fory's Go port hashes structural type trees)
// with maphash over the Signature's identifiers (name, mirroring the
// teacher's maphash-based string hashing in dict.go).
func signatureStructuralHash(seed maphash.Seed, sig Signature) uint64 {
	mh := murmur3.New128()
	io.WriteString(mh, sig.Name)
	binary.Write(mh, binary.BigEndian, sig.CallingConvention)
	binary.Write(mh, binary.BigEndian, int64(sig.GenericParamCount))
	writeLocationSkeleton(mh, sig.Return)
	binary.Write(mh, binary.BigEndian, int64(len(sig.Params)))
	for _, p := range sig.Params {
		writeLocationSkeleton(mh, p)
	}
	lo, _ := mh.Sum128()

	return lo ^ maphashString(seed, sig.Name)
}

func writeLocationSkeleton(h murmur3.Hash128, loc Location) {
	writeTypeExprSkeleton(h, loc.Element)
	binary.Write(h, binary.BigEndian, int64(len(loc.RequiredMods)))
	for _, m := range loc.RequiredMods {
		fmt.Fprintf(h, "%v", m)
	}
	binary.Write(h, binary.BigEndian, int64(len(loc.OptionalMods)))
	for _, m := range loc.OptionalMods {
		fmt.Fprintf(h, "%v", m)
	}
}

// signatureMemberKind distinguishes which façade lookup a cached
// signature resolution serves (§6.3's get_method_by_signature /
// get_property_by_signature / get_constructor_by_signature all key off
// a (declaring type, Signature) pair, but are distinct namespaces).
type signatureMemberKind byte

const (
	sigKindMethod signatureMemberKind = iota
	sigKindProperty
	sigKindConstructor
)

type sigCacheKey struct {
	Owner TypeHandle
	Kind  signatureMemberKind
	Sig   Signature
}

func sigCacheEqual(a, b sigCacheKey) bool {
	return a.Kind == b.Kind && a.Owner == b.Owner && sigEqual(a.Sig, b.Sig)
}

func sigCacheHash(seed maphash.Seed, k sigCacheKey) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteByte(byte(k.Kind))
	fmt.Fprintf(&h, "%v", k.Owner)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], signatureStructuralHash(seed, k.Sig))
	h.Write(buf[:])
	return h.Sum64()
}

// signatureCache interns structural-signature lookups against the
// reflection façade, exactly the way the teacher's Dict (dict.go) adapts
// gomap.Map with a custom equal/hash pair for Python cross-type
// equality — here the custom pair is sigCacheEqual/sigCacheHash instead
// of Python value equality.
type signatureCache struct {
	m *gomap.Map[sigCacheKey, any]
}

func newSignatureCache() *signatureCache {
	return &signatureCache{m: gomap.NewHint[sigCacheKey, any](0, sigCacheEqual, sigCacheHash)}
}

func (c *signatureCache) get(owner TypeHandle, kind signatureMemberKind, sig Signature) (any, bool) {
	return c.m.Get(sigCacheKey{Owner: owner, Kind: kind, Sig: sig})
}

func (c *signatureCache) set(owner TypeHandle, kind signatureMemberKind, sig Signature, member any) {
	c.m.Set(sigCacheKey{Owner: owner, Kind: kind, Sig: sig}, member)
}

// encodeTypeExpr/decodeTypeExpr write the TypeExpr tree itself (as
// opposed to writeTypeExprSkeleton, which only folds it into a hash).
// A handle-carrying TypeExprType defers to the enclosing dispatch
// context's type-reference grammar via the typeRefCodec it is given —
// kept as a parameter rather than a package-level singleton so
// signature.go has no dependency on dispatchContext.
type typeRefCodec interface {
	encodeTypeRef(w *streamWriter, t TypeHandle) error
	decodeTypeRef(r *streamReader) (TypeHandle, error)
}

func encodeTypeExpr(w *streamWriter, e TypeExpr, codec typeRefCodec) error {
	switch v := e.(type) {
	case TypeExprType:
		if err := w.writeByte(0x01); err != nil {
			return err
		}
		return codec.encodeTypeRef(w, v.Handle)
	case TypeExprTVar:
		if err := w.writeByte(0x02); err != nil {
			return err
		}
		return writeVarUint32(w, uint32(v.Index))
	case TypeExprMVar:
		if err := w.writeByte(0x03); err != nil {
			return err
		}
		return writeVarUint32(w, uint32(v.Index))
	case TypeExprGeneric:
		if err := w.writeByte(0x04); err != nil {
			return err
		}
		if err := encodeTypeExpr(w, v.Def, codec); err != nil {
			return err
		}
		if err := writeVarUint32(w, uint32(len(v.Args))); err != nil {
			return err
		}
		for _, a := range v.Args {
			if err := encodeTypeExpr(w, a, codec); err != nil {
				return err
			}
		}
		return nil
	case TypeExprArray:
		if err := w.writeByte(0x05); err != nil {
			return err
		}
		if err := writeVarInt32(w, int32(v.Rank)); err != nil {
			return err
		}
		return encodeTypeExpr(w, v.Elem, codec)
	case TypeExprByRef:
		if err := w.writeByte(0x06); err != nil {
			return err
		}
		return encodeTypeExpr(w, v.Elem, codec)
	case TypeExprPointer:
		if err := w.writeByte(0x07); err != nil {
			return err
		}
		return encodeTypeExpr(w, v.Elem, codec)
	default:
		return &StreamFormatError{Reason: "nil or unknown TypeExpr variant"}
	}
}

func decodeTypeExpr(r *streamReader, codec typeRefCodec) (TypeExpr, error) {
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0x01:
		h, err := codec.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		return TypeExprType{Handle: h}, nil
	case 0x02:
		i, err := readVarUint32(r)
		return TypeExprTVar{Index: int(i)}, err
	case 0x03:
		i, err := readVarUint32(r)
		return TypeExprMVar{Index: int(i)}, err
	case 0x04:
		def, err := decodeTypeExpr(r, codec)
		if err != nil {
			return nil, err
		}
		n, err := readVarUint32(r)
		if err != nil {
			return nil, err
		}
		args := make([]TypeExpr, n)
		for i := range args {
			if args[i], err = decodeTypeExpr(r, codec); err != nil {
				return nil, err
			}
		}
		return TypeExprGeneric{Def: def, Args: args}, nil
	case 0x05:
		rank, err := readVarInt32(r)
		if err != nil {
			return nil, err
		}
		elem, err := decodeTypeExpr(r, codec)
		if err != nil {
			return nil, err
		}
		return TypeExprArray{Rank: int(rank), Elem: elem}, nil
	case 0x06:
		elem, err := decodeTypeExpr(r, codec)
		if err != nil {
			return nil, err
		}
		return TypeExprByRef{Elem: elem}, nil
	case 0x07:
		elem, err := decodeTypeExpr(r, codec)
		if err != nil {
			return nil, err
		}
		return TypeExprPointer{Elem: elem}, nil
	default:
		return nil, &UnknownOperationError{Enum: "TypeExpr", Op: tag}
	}
}

func encodeLocation(w *streamWriter, loc Location, codec typeRefCodec) error {
	if err := encodeTypeExpr(w, loc.Element, codec); err != nil {
		return err
	}
	if err := writeVarUint32(w, uint32(len(loc.RequiredMods))); err != nil {
		return err
	}
	for _, m := range loc.RequiredMods {
		if err := codec.encodeTypeRef(w, m); err != nil {
			return err
		}
	}
	if err := writeVarUint32(w, uint32(len(loc.OptionalMods))); err != nil {
		return err
	}
	for _, m := range loc.OptionalMods {
		if err := codec.encodeTypeRef(w, m); err != nil {
			return err
		}
	}
	return nil
}

func decodeLocation(r *streamReader, codec typeRefCodec) (Location, error) {
	elem, err := decodeTypeExpr(r, codec)
	if err != nil {
		return Location{}, err
	}
	loc := Location{Element: elem}
	n, err := readVarUint32(r)
	if err != nil {
		return Location{}, err
	}
	loc.RequiredMods = make([]TypeHandle, n)
	for i := range loc.RequiredMods {
		if loc.RequiredMods[i], err = codec.decodeTypeRef(r); err != nil {
			return Location{}, err
		}
	}
	n, err = readVarUint32(r)
	if err != nil {
		return Location{}, err
	}
	loc.OptionalMods = make([]TypeHandle, n)
	for i := range loc.OptionalMods {
		if loc.OptionalMods[i], err = codec.decodeTypeRef(r); err != nil {
			return Location{}, err
		}
	}
	return loc, nil
}

// encodeSignature/decodeSignature round-trip a full Signature (§3),
// used whenever a method/property/constructor Ref is written.
func encodeSignature(w *streamWriter, sig Signature, codec typeRefCodec) error {
	if err := writeString(w, sig.Name); err != nil {
		return err
	}
	if err := w.writeByte(sig.CallingConvention); err != nil {
		return err
	}
	if err := writeVarUint32(w, uint32(sig.GenericParamCount)); err != nil {
		return err
	}
	if err := encodeLocation(w, sig.Return, codec); err != nil {
		return err
	}
	if err := writeVarUint32(w, uint32(len(sig.Params))); err != nil {
		return err
	}
	for _, p := range sig.Params {
		if err := encodeLocation(w, p, codec); err != nil {
			return err
		}
	}
	return nil
}

func decodeSignature(r *streamReader, codec typeRefCodec) (Signature, error) {
	name, err := readString(r)
	if err != nil {
		return Signature{}, err
	}
	cc, err := r.readByte()
	if err != nil {
		return Signature{}, err
	}
	gpc, err := readVarUint32(r)
	if err != nil {
		return Signature{}, err
	}
	ret, err := decodeLocation(r, codec)
	if err != nil {
		return Signature{}, err
	}
	n, err := readVarUint32(r)
	if err != nil {
		return Signature{}, err
	}
	sig := Signature{
		Name:              name,
		CallingConvention: cc,
		GenericParamCount: int(gpc),
		Return:            ret,
		Params:            make([]Location, n),
	}
	for i := range sig.Params {
		if sig.Params[i], err = decodeLocation(r, codec); err != nil {
			return Signature{}, err
		}
	}
	return sig, nil
}
