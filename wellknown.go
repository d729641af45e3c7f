package pikala

import "fmt"

// builtinHandle is the TypeHandle value this package hands out for the
// BCL primitives named in §4.10's single-byte well-known type table —
// every stream can refer to these without ever spelling out an
// assembly-qualified name.
type builtinHandle byte

const (
	builtinBoolean builtinHandle = iota
	builtinChar
	builtinSByte
	builtinByte
	builtinInt16
	builtinUInt16
	builtinInt32
	builtinUInt32
	builtinInt64
	builtinUInt64
	builtinSingle
	builtinDouble
	builtinDecimal
	builtinString
	builtinObject
	builtinDateTime
	builtinTimeSpan
	builtinGuid
	builtinVersion
	builtinIntPtr
	builtinUIntPtr

	numBuiltins
)

var builtinNames = [numBuiltins]string{
	builtinBoolean:  "System.Boolean",
	builtinChar:     "System.Char",
	builtinSByte:    "System.SByte",
	builtinByte:     "System.Byte",
	builtinInt16:    "System.Int16",
	builtinUInt16:   "System.UInt16",
	builtinInt32:    "System.Int32",
	builtinUInt32:   "System.UInt32",
	builtinInt64:    "System.Int64",
	builtinUInt64:   "System.UInt64",
	builtinSingle:   "System.Single",
	builtinDouble:   "System.Double",
	builtinDecimal:  "System.Decimal",
	builtinString:   "System.String",
	builtinObject:   "System.Object",
	builtinDateTime: "System.DateTime",
	builtinTimeSpan: "System.TimeSpan",
	builtinGuid:     "System.Guid",
	builtinVersion:  "System.Version",
	builtinIntPtr:   "System.IntPtr",
	builtinUIntPtr:  "System.UIntPtr",
}

var builtinByName = func() map[string]builtinHandle {
	m := make(map[string]builtinHandle, numBuiltins)
	for h, name := range builtinNames {
		m[name] = builtinHandle(h)
	}
	return m
}()

func init() {
	for h := builtinHandle(0); h < numBuiltins; h++ {
		info := &TypeInfo{Handle: h, TypeCode: IntCodeNone}
		switch h {
		case builtinBoolean:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeUInt8
		case builtinChar:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeUInt16
		case builtinSByte:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeInt8
		case builtinByte:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeUInt8
		case builtinInt16:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeInt16
		case builtinUInt16:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeUInt16
		case builtinInt32:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeInt32
		case builtinUInt32:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeUInt32
		case builtinInt64:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeInt64
		case builtinUInt64:
			info.Flags = FlagIsValueType | FlagIsSealed
			info.TypeCode = IntCodeUInt64
		case builtinIntPtr, builtinUIntPtr:
			info.Flags = FlagIsValueType | FlagIsSealed
		case builtinSingle, builtinDouble:
			info.Flags = FlagIsValueType | FlagIsSealed
		case builtinDecimal, builtinDateTime, builtinTimeSpan, builtinGuid:
			info.Flags = FlagIsValueType | FlagIsSealed
		case builtinString:
			info.Flags = FlagIsSealed
		case builtinObject:
			// no flags: the only non-sealed, non-value-type builtin
		case builtinVersion:
			info.Flags = FlagIsSealed
		}
		registerBuiltinTypeInfo(h, info)
	}
}

// resolveBuiltinByName looks up a well-known type by its BCL name, used
// by the assembly/module dispatch of §4.10 when a Ref names a type that
// turns out to be one of the builtins rather than a host-defined type.
func resolveBuiltinByName(name string) (builtinHandle, bool) {
	h, ok := builtinByName[name]
	return h, ok
}

// writeWellKnownType writes h as the single discriminator byte of
// §4.10's well-known type table.
func writeWellKnownType(w *streamWriter, h builtinHandle) error {
	if h >= numBuiltins {
		return &StreamFormatError{Reason: fmt.Sprintf("builtinHandle %d out of range", h)}
	}
	return w.writeByte(byte(h))
}

func readWellKnownType(r *streamReader) (builtinHandle, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if builtinHandle(b) >= numBuiltins {
		return 0, &StreamFormatError{Reason: fmt.Sprintf("unknown well-known type discriminator %d", b)}
	}
	return builtinHandle(b), nil
}
