package pikala

import (
	"fmt"
	"io"
	"math"
	"reflect"
)

// ValueKind is §4.2's outermost value discriminator: which shape
// follows on the wire. Primitive kinds are written inline with no
// memoization; strings, arrays, reduced values and auto-objects are
// additionally wrapped in an ObjectOperation so repeated instances
// collapse to a back-reference (§3 "identity is physical"). Tuples and
// delegates carry memo.go's 15-bit probe instead, and enums and
// type/assembly/module references are written inline.
type ValueKind byte

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt8
	ValueUInt8
	ValueInt16
	ValueUInt16
	ValueInt32
	ValueUInt32
	ValueInt64
	ValueUInt64
	ValueFloat32
	ValueFloat64
	ValueString
	ValueArray
	ValueTuple
	ValueDelegate
	ValueReduced
	ValueAutoObject
	ValueEnum
	ValueTypeRef
	ValueAssemblyRef
	ValueModuleRef
)

// AutoObjectValue is an instance of a ModeAutoSerializedObject type
// (§4.3): its TypeHandle identifies the field list negotiated the
// first time this type was seen in the stream, and Fields holds one
// entry per SerializedField, in that same order.
type AutoObjectValue struct {
	TypeHandle TypeHandle
	Fields     []any
}

// EnumValue is a boxed enum instance: the underlying integer plus the
// enum TypeHandle that gives it meaning.
type EnumValue struct {
	TypeHandle TypeHandle
	Underlying any
}

// TypeRefValue, AssemblyRefValue, and ModuleRefValue let a type,
// assembly, or module itself appear as an ordinary data value (§4.10 —
// e.g. a field of static type System.Type). They exist as concrete
// wrapper structs, rather than encodeValue matching on TypeHandle/
// AssemblyHandle/ModuleHandle directly, because those handle types are
// themselves bare interface{} aliases (§6.3) — a type switch cannot
// distinguish an opaque interface{} alias from any other value's
// dynamic type, only from a genuinely distinct Go type.
type TypeRefValue struct{ Handle TypeHandle }
type AssemblyRefValue struct{ Handle AssemblyHandle }
type ModuleRefValue struct{ Handle ModuleHandle }

// Pickler is the top-level encode driver (§2, §6.1). It owns the
// per-stream memo, dispatch context, and TypeInfo cache; none of that
// state outlives one Pickle call's creator, matching §5's "the engine
// is not safe for concurrent use, and a Pickler/Unpickler pair is
// single-stream, single-goroutine".
type Pickler struct {
	facade ReflectionFacade
	dc     *dispatchContext
	types  *typeInfoCache
	config PicklerConfig
}

func NewPickler(facade ReflectionFacade) *Pickler {
	return &Pickler{
		facade: facade,
		dc:     newDispatchContext(facade),
		types:  newTypeInfoCache(),
	}
}

// Pickle writes the header followed by v's encoded form.
func (p *Pickler) Pickle(w io.Writer, v any) error {
	sw := newStreamWriter(w)
	if err := writeHeader(sw); err != nil {
		return err
	}
	if err := p.encodeValue(sw, v); err != nil {
		return err
	}
	return sw.Flush()
}

func identityOf(v any) uintptr {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.Pointer()
	case reflect.Slice:
		return rv.Pointer()
	default:
		return 0
	}
}

// encodeReferenceValue implements the ObjectOperation wrapper shared by
// every reference-kind value (§3, §4.2): a back-reference if this exact
// object has already been written, otherwise a freshly published id
// followed by writeBody's payload.
func (p *Pickler) encodeReferenceValue(w *streamWriter, v any, writeBody func() error) error {
	if p.config.PersistentID != nil {
		if pid, ok := p.config.PersistentID(v); ok {
			if err := w.writeByte(byte(OpPersistent)); err != nil {
				return err
			}
			return writeString(w, pid)
		}
	}

	id := identityOf(v)
	if id != 0 {
		if existing := p.dc.encMemo.lookup(id); existing != 0 {
			if err := w.writeByte(byte(OpMemo)); err != nil {
				return err
			}
			return writeMemoId(w, existing)
		}
		p.dc.encMemo.publish(id)
	}
	if err := w.writeByte(byte(OpObject)); err != nil {
		return err
	}
	return writeBody()
}

func (p *Pickler) encodeValue(w *streamWriter, v any) error {
	if v == nil {
		return w.writeByte(byte(ValueNull))
	}
	switch x := v.(type) {
	case bool:
		if err := w.writeByte(byte(ValueBool)); err != nil {
			return err
		}
		return w.writeBool(x)
	case int8:
		if err := w.writeByte(byte(ValueInt8)); err != nil {
			return err
		}
		return w.writeByte(byte(x))
	case uint8:
		if err := w.writeByte(byte(ValueUInt8)); err != nil {
			return err
		}
		return w.writeByte(x)
	case int16:
		if err := w.writeByte(byte(ValueInt16)); err != nil {
			return err
		}
		return writeVarInt32(w, int32(x))
	case uint16:
		if err := w.writeByte(byte(ValueUInt16)); err != nil {
			return err
		}
		return writeVarUint32(w, uint32(x))
	case int32:
		if err := w.writeByte(byte(ValueInt32)); err != nil {
			return err
		}
		return writeVarInt32(w, x)
	case uint32:
		if err := w.writeByte(byte(ValueUInt32)); err != nil {
			return err
		}
		return writeVarUint32(w, x)
	case int64:
		if err := w.writeByte(byte(ValueInt64)); err != nil {
			return err
		}
		return w.writeInt64(x)
	case uint64:
		if err := w.writeByte(byte(ValueUInt64)); err != nil {
			return err
		}
		return w.writeInt64(int64(x))
	case float32:
		if err := w.writeByte(byte(ValueFloat32)); err != nil {
			return err
		}
		return w.writeInt64(int64(math.Float32bits(x)))
	case float64:
		if err := w.writeByte(byte(ValueFloat64)); err != nil {
			return err
		}
		return w.writeFloat64(x)
	case string:
		if err := w.writeByte(byte(ValueString)); err != nil {
			return err
		}
		return p.encodeReferenceValue(w, x, func() error { return writeString(w, x) })
	case *ArrayValue:
		if err := w.writeByte(byte(ValueArray)); err != nil {
			return err
		}
		return p.encodeReferenceValue(w, x, func() error { return encodeArray(w, x, p) })
	case *TupleValue:
		if err := w.writeByte(byte(ValueTuple)); err != nil {
			return err
		}
		return encodeTupleValue(w, x, identityOf(x), p.dc.encMemo, p)
	case *DelegateValue:
		if err := w.writeByte(byte(ValueDelegate)); err != nil {
			return err
		}
		return encodeDelegateValue(w, x, identityOf(x), p.dc.encMemo, p)
	case *ReducedValue:
		if err := w.writeByte(byte(ValueReduced)); err != nil {
			return err
		}
		return p.encodeReferenceValue(w, x, func() error { return encodeReducedValue(w, x, p) })
	case *AutoObjectValue:
		if err := w.writeByte(byte(ValueAutoObject)); err != nil {
			return err
		}
		return p.encodeReferenceValue(w, x, func() error { return p.encodeAutoObject(w, x) })
	case *EnumValue:
		if err := w.writeByte(byte(ValueEnum)); err != nil {
			return err
		}
		if err := p.encodeTypeRef(w, x.TypeHandle); err != nil {
			return err
		}
		return p.encodeValue(w, x.Underlying)
	case TypeRefValue:
		if err := w.writeByte(byte(ValueTypeRef)); err != nil {
			return err
		}
		return p.encodeTypeRef(w, x.Handle)
	case AssemblyRefValue:
		if err := w.writeByte(byte(ValueAssemblyRef)); err != nil {
			return err
		}
		return p.dc.encodeAssembly(w, x.Handle)
	case ModuleRefValue:
		if err := w.writeByte(byte(ValueModuleRef)); err != nil {
			return err
		}
		return p.dc.encodeModule(w, x.Handle)
	default:
		return &StreamFormatError{Reason: fmt.Sprintf("unsupported value type %T", v)}
	}
}

func (p *Pickler) encodeAutoObject(w *streamWriter, v *AutoObjectValue) error {
	if err := p.encodeTypeRef(w, v.TypeHandle); err != nil {
		return err
	}
	info, err := p.typeInfoFor(v.TypeHandle)
	if err != nil {
		return err
	}
	if !info.announced {
		if err := writeVarUint32(w, uint32(len(info.SerializedFields))); err != nil {
			return err
		}
		for _, f := range info.SerializedFields {
			if err := writeString(w, f.Name); err != nil {
				return err
			}
			if err := p.encodeTypeRef(w, f.Info.Handle); err != nil {
				return err
			}
		}
		info.announced = true
	}
	if len(v.Fields) != len(info.SerializedFields) {
		return &StreamFormatError{Reason: "auto-object field count does not match negotiated TypeInfo"}
	}
	for _, fv := range v.Fields {
		if err := p.encodeValue(w, fv); err != nil {
			return err
		}
	}
	return nil
}

// typeInfoFor is elementCodec's hook for "what does the wire format
// need to know about this type" — checked against the per-stream cache
// first, classified through the façade on a cache miss.
func (p *Pickler) typeInfoFor(t TypeHandle) (*TypeInfo, error) {
	if info, ok := p.types.get(t); ok {
		return info, nil
	}
	return negotiateSender(p.types, p.facade, t, func() (*TypeInfo, error) {
		return p.facade.ClassifyType(t)
	})
}

func (p *Pickler) encodeTypeRef(w *streamWriter, t TypeHandle) error  { return p.dc.encodeTypeRef(w, t) }
func (p *Pickler) decodeTypeRef(r *streamReader) (TypeHandle, error) { return nil, ErrNotImplemented }
func (p *Pickler) decodeValue(r *streamReader) (any, error)          { return nil, ErrNotImplemented }
func (p *Pickler) encodeMethodRef(w *streamWriter, m *PickledMethod) error {
	return p.dc.encodeMethodRef(w, m)
}
func (p *Pickler) decodeMethodRef(r *streamReader) (*PickledMethod, error) {
	return nil, ErrNotImplemented
}

// Unpickler is the decode counterpart of Pickler.
type Unpickler struct {
	facade ReflectionFacade
	dc     *dispatchContext
	types  *typeInfoCache
	config UnpicklerConfig
}

func NewUnpickler(facade ReflectionFacade) *Unpickler {
	return &Unpickler{
		facade: facade,
		dc:     newDispatchContext(facade),
		types:  newTypeInfoCache(),
	}
}

func (u *Unpickler) Unpickle(r io.Reader) (any, error) {
	sr := newStreamReader(r)
	if _, err := readHeader(sr); err != nil {
		return nil, err
	}
	v, err := u.decodeValue(sr)
	if err != nil {
		return nil, err
	}
	if err := u.dc.scheduler.run(); err != nil {
		return nil, err
	}
	if err := u.dc.scheduler.assertDrained(); err != nil {
		return nil, err
	}
	return v, nil
}

func (u *Unpickler) decodeReferenceValue(r *streamReader, build func() (any, error)) (any, error) {
	opByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch ObjectOperation(opByte) {
	case OpNull:
		return nil, nil
	case OpMemo:
		id, err := readMemoId(r)
		if err != nil {
			return nil, err
		}
		return u.dc.decMemo.get(id)
	case OpPersistent:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		if u.config.PersistentLoad == nil {
			return nil, &StreamFormatError{Reason: "stream contains a persistent reference but no PersistentLoad hook was configured"}
		}
		return u.config.PersistentLoad(id)
	case OpObject:
		id := u.dc.decMemo.reserve()
		v, err := build()
		if err != nil {
			return nil, err
		}
		u.dc.decMemo.set(id, v)
		return v, nil
	default:
		return nil, &UnknownOperationError{Enum: "ObjectOperation", Op: opByte}
	}
}

func (u *Unpickler) decodeValue(r *streamReader) (any, error) {
	kindByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch ValueKind(kindByte) {
	case ValueNull:
		return nil, nil
	case ValueBool:
		return r.readBool()
	case ValueInt8:
		b, err := r.readByte()
		return int8(b), err
	case ValueUInt8:
		return r.readByte()
	case ValueInt16:
		v, err := readVarInt32(r)
		return int16(v), err
	case ValueUInt16:
		v, err := readVarUint32(r)
		return uint16(v), err
	case ValueInt32:
		return readVarInt32(r)
	case ValueUInt32:
		return readVarUint32(r)
	case ValueInt64:
		return r.readInt64()
	case ValueUInt64:
		v, err := r.readInt64()
		return uint64(v), err
	case ValueFloat32:
		v, err := r.readInt64()
		return math.Float32frombits(uint32(v)), err
	case ValueFloat64:
		return r.readFloat64()
	case ValueString:
		v, err := u.decodeReferenceValue(r, func() (any, error) { return readString(r) })
		return v, err
	case ValueArray:
		return u.decodeReferenceValue(r, func() (any, error) { return decodeArray(r, u) })
	case ValueTuple:
		t, _, err := decodeTupleValue(r, u.dc.decMemo, u)
		return t, err
	case ValueDelegate:
		d, _, err := decodeDelegateValue(r, u.dc.decMemo, u)
		return d, err
	case ValueReduced:
		return u.decodeReferenceValue(r, func() (any, error) {
			rv, err := decodeReducedValue(r, u)
			if err != nil {
				return nil, err
			}
			return rv.construct(u.facade)
		})
	case ValueAutoObject:
		return u.decodeReferenceValue(r, func() (any, error) { return u.decodeAutoObject(r) })
	case ValueEnum:
		t, err := u.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		underlying, err := u.decodeValue(r)
		if err != nil {
			return nil, err
		}
		return &EnumValue{TypeHandle: t, Underlying: underlying}, nil
	case ValueTypeRef:
		t, err := u.decodeTypeRef(r)
		return TypeRefValue{Handle: t}, err
	case ValueAssemblyRef:
		a, err := u.dc.decodeAssembly(r)
		return AssemblyRefValue{Handle: a}, err
	case ValueModuleRef:
		m, err := u.dc.decodeModule(r)
		return ModuleRefValue{Handle: m}, err
	default:
		return nil, &UnknownOperationError{Enum: "ValueKind", Op: kindByte}
	}
}

func (u *Unpickler) decodeAutoObject(r *streamReader) (*AutoObjectValue, error) {
	t, err := u.decodeTypeRef(r)
	if err != nil {
		return nil, err
	}
	info, ok := u.types.get(t)
	if !ok {
		n, err := readVarUint32(r)
		if err != nil {
			return nil, err
		}
		senderFields := make([]SerializedField, n)
		for i := range senderFields {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			ft, err := u.decodeTypeRef(r)
			if err != nil {
				return nil, err
			}
			senderFields[i] = SerializedField{Name: name, Info: &TypeInfo{Handle: ft}}
		}
		info, _ = reconcileAutoSerializedObject(u.facade, t, senderFields)
		info.announced = true
		u.types.set(t, info)
	}
	obj := &AutoObjectValue{TypeHandle: t, Fields: make([]any, len(info.SerializedFields))}
	for i := range obj.Fields {
		v, err := u.decodeValue(r)
		if err != nil {
			return nil, err
		}
		obj.Fields[i] = v
	}
	if info.Error != "" {
		log.Warningf("deferred reconciliation error surfaced for %v: %s", t, info.Error)
		return obj, &TypeMismatchError{TypeName: fmt.Sprintf("%v", t), Detail: info.Error, Info: info}
	}
	return obj, nil
}

func (u *Unpickler) typeInfoFor(t TypeHandle) (*TypeInfo, error) {
	if info, ok := u.types.get(t); ok {
		return info, nil
	}
	info, err := u.facade.ClassifyType(t)
	if err != nil {
		return nil, err
	}
	u.types.set(t, info)
	return info, nil
}

func (u *Unpickler) encodeTypeRef(w *streamWriter, t TypeHandle) error { return ErrNotImplemented }
func (u *Unpickler) decodeTypeRef(r *streamReader) (TypeHandle, error) {
	return u.dc.decodeTypeRef(r)
}
func (u *Unpickler) encodeValue(w *streamWriter, v any) error { return ErrNotImplemented }
func (u *Unpickler) encodeMethodRef(w *streamWriter, m *PickledMethod) error {
	return ErrNotImplemented
}
func (u *Unpickler) decodeMethodRef(r *streamReader) (*PickledMethod, error) {
	return u.dc.decodeMethodRef(r)
}
