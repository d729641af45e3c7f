package pikala

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TypeInfoFlags is the low-nibble bitset of §6.2's TypeFlags enum.
type TypeInfoFlags byte

const (
	FlagIsAbstract     TypeInfoFlags = 1 << 0
	FlagIsSealed       TypeInfoFlags = 1 << 1
	FlagIsValueType    TypeInfoFlags = 1 << 2
	FlagHasElementType TypeInfoFlags = 1 << 3
)

// TypeInfoMode is the high-nibble TypeMode enum of §6.2.
type TypeInfoMode byte

const (
	ModeBuiltin TypeInfoMode = iota
	ModeEnum
	ModeDelegate
	ModeAutoSerializedObject
	ModeReduced
	ModeError
)

// IntegerCode names an enum's underlying storage width/signedness
// (§3's TypeInfo.type_code).
type IntegerCode byte

const (
	IntCodeInt8 IntegerCode = iota
	IntCodeUInt8
	IntCodeInt16
	IntCodeUInt16
	IntCodeInt32
	IntCodeUInt32
	IntCodeInt64
	IntCodeUInt64

	// IntCodeNone marks a TypeInfo whose type isn't integer-backed at
	// all (System.Object, System.String, System.Decimal, and similar) —
	// distinct from IntCodeInt8's zero value so arrays.go's fast-path
	// check never mistakes "unset" for "single byte wide".
	IntCodeNone IntegerCode = 0xFF
)

func (c IntegerCode) String() string {
	switch c {
	case IntCodeNone:
		return "None"
	case IntCodeInt8:
		return "Int8"
	case IntCodeUInt8:
		return "UInt8"
	case IntCodeInt16:
		return "Int16"
	case IntCodeUInt16:
		return "UInt16"
	case IntCodeInt32:
		return "Int32"
	case IntCodeUInt32:
		return "UInt32"
	case IntCodeInt64:
		return "Int64"
	case IntCodeUInt64:
		return "UInt64"
	default:
		return fmt.Sprintf("IntegerCode(%d)", byte(c))
	}
}

// SerializedField is one entry of TypeInfo.serialized_fields: the
// instance, non-literal field's own TypeInfo, paired with a locally
// stable field_id (§3 table).
type SerializedField struct {
	Info    *TypeInfo
	FieldId FieldHandle
	Name    string
}

// TypeInfo describes, for one runtime type encountered during a single
// stream, how its values are serialized (§3's TypeInfo table).
type TypeInfo struct {
	Handle           TypeHandle
	Flags            TypeInfoFlags
	Mode             TypeInfoMode
	SerializedFields []SerializedField
	Element          *TypeInfo
	TupleArguments   []*TypeInfo
	TypeCode         IntegerCode
	Error            string

	// announced tracks, per stream side, whether the type's descriptor
	// (and for AutoSerializedObject, its field list) has already gone
	// out on (or been read from) the wire — the second and later
	// instance of a type skips straight to per-instance data (§4.3).
	announced bool
}

// builtinTypeInfo is the process-wide cache of builtin TypeInfo values
// (§3 "builtins use a process-wide cached TypeInfo"). It is written
// once per TypeHandle by wellknown.go's registration helpers and never
// mutated afterward.
var builtinTypeInfo = map[TypeHandle]*TypeInfo{}

func registerBuiltinTypeInfo(handle TypeHandle, info *TypeInfo) {
	info.Mode = ModeBuiltin
	builtinTypeInfo[handle] = info
}

// genericInstanceKey is a comparable stand-in for (def, args...) —
// golang-lru's generic Cache requires a comparable key type, but a
// TypeExprGeneric's Args slice is not comparable, so the key folds the
// instantiation down to its %v textual form (the façade handles are
// opaque anyway, so structural sharing beyond string identity is not
// expected to matter in practice).
type genericInstanceKey string

func makeGenericInstanceKey(def TypeHandle, args []TypeHandle) genericInstanceKey {
	var b strings.Builder
	fmt.Fprintf(&b, "%v", def)
	for _, a := range args {
		fmt.Fprintf(&b, "|%v", a)
	}
	return genericInstanceKey(b.String())
}

// typeInfoCache is the per-stream map from runtime type to TypeInfo
// (§3 invariant: "within one stream, any runtime type resolves to
// exactly one TypeInfo"), plus a bounded cache of resolved
// GenericInstance(def, args) realizations — repeatedly instantiating
// the same generic shape within one large graph is exactly the
// bounded-reuse pattern golang-lru exists for (SPEC_FULL.md §4).
type typeInfoCache struct {
	byHandle         map[TypeHandle]*TypeInfo
	genericInstances *lru.Cache[genericInstanceKey, TypeHandle]
}

func newTypeInfoCache() *typeInfoCache {
	gi, _ := lru.New[genericInstanceKey, TypeHandle](256)
	return &typeInfoCache{
		byHandle:         make(map[TypeHandle]*TypeInfo),
		genericInstances: gi,
	}
}

// get returns the cached TypeInfo for handle, checking the process-wide
// builtin cache first, per the immutability invariant.
func (c *typeInfoCache) get(handle TypeHandle) (*TypeInfo, bool) {
	if info, ok := builtinTypeInfo[handle]; ok {
		return info, true
	}
	info, ok := c.byHandle[handle]
	return info, ok
}

func (c *typeInfoCache) set(handle TypeHandle, info *TypeInfo) {
	c.byHandle[handle] = info
}

func (c *typeInfoCache) resolveGenericInstance(def TypeHandle, args []TypeHandle, resolve func() (TypeHandle, error)) (TypeHandle, error) {
	key := makeGenericInstanceKey(def, args)
	if h, ok := c.genericInstances.Get(key); ok {
		return h, nil
	}
	h, err := resolve()
	if err != nil {
		return nil, err
	}
	c.genericInstances.Add(key, h)
	return h, nil
}

// negotiateSender is the encode side of §4.3: it returns the cached
// TypeInfo for handle, classifying it through classify (and caching the
// result) on a miss. It writes nothing; the caller writes any field
// list.
func negotiateSender(cache *typeInfoCache, facade ReflectionFacade, handle TypeHandle, classify func() (*TypeInfo, error)) (*TypeInfo, error) {
	if info, ok := cache.get(handle); ok {
		return info, nil
	}
	info, err := classify()
	if err != nil {
		return nil, err
	}
	cache.set(handle, info)
	return info, nil
}

// reconcileAutoSerializedObject implements §4.3's receiver-side field
// reconciliation:
//
//  1. resolve the local field list in declared order, skipping literals/statics
//  2. for each sender field, look up the local field by name
//  3. compare types element-wise
//  4. accumulate into TypeInfo.Error rather than failing immediately (§7:
//     "reconciliation errors are deferred")
func reconcileAutoSerializedObject(facade ReflectionFacade, local TypeHandle, senderFields []SerializedField) (*TypeInfo, []SerializedField) {
	localFields := facade.TypeSerializedFields(local)
	byName := make(map[string]FieldHandle, len(localFields))
	for _, f := range localFields {
		byName[facade.FieldName(f)] = f
	}

	var errs []string
	resolved := make([]SerializedField, 0, len(senderFields))
	for _, sf := range senderFields {
		lf, ok := byName[sf.Name]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing field %q", sf.Name))
			resolved = append(resolved, sf)
			continue
		}
		localType := facade.FieldType(lf)
		if sf.Info != nil && sf.Info.Handle != nil && localType != sf.Info.Handle {
			errs = append(errs, fmt.Sprintf("field %q: type mismatch", sf.Name))
		}
		resolved = append(resolved, SerializedField{Info: sf.Info, FieldId: lf, Name: sf.Name})
	}

	info := &TypeInfo{
		Handle:           local,
		Mode:             ModeAutoSerializedObject,
		Flags:            facade.TypeFlags(local),
		SerializedFields: resolved,
	}
	if len(errs) > 0 {
		info.Error = strings.Join(errs, "; ")
	}
	return info, resolved
}
