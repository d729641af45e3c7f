// Package pikala implements a reflective object pickling engine: a
// wire format, a memoization protocol for preserving reference
// identity (including cyclic graphs), and a staged scheduler capable
// of reconstructing mutually-recursive dynamic type definitions.
//
// A Pickler walks an object graph and writes it through any
// io.Writer; an Unpickler reads it back through an io.Reader,
// consulting a host-supplied ReflectionFacade for everything that
// touches the host's actual type system — this package never assumes
// Go's own reflect package describes the objects being pickled.
//
// Values round-trip as follows:
//
//	Go value                      wire shape
//	-----------------------------------------------------------
//	nil                            ValueNull
//	bool, intN, uintN, floatN      inline scalar; int16..uint32 as varints
//	string                         memoized, length-prefixed UTF-8
//	*ArrayValue                    vector or multi-dimensional array
//	*TupleValue                    fixed-arity heterogeneous tuple
//	*DelegateValue                 invocation list
//	*ReducedValue                  constructor/factory + args + state
//	*AutoObjectValue               negotiated field-by-field object
//	*EnumValue                     underlying integer + enum type
//	TypeRefValue/Assembly/Module   a type, assembly, or module as data
//
// A dynamically-defined type is written as TypeOpDef plus its whole
// definition wherever a type reference appears, a TypeRefValue
// included — see dispatch.go's encodeTypeRef/decodeTypeDef and
// scheduler.go's four-stage queue.
//
// # Persistent references
//
// An application can hook into encoding and turn selected values into
// an externally-resolved id instead of a structural encoding, and
// symmetrically resolve that id back into a live value on decode:
//
//	p := NewPicklerWithConfig(facade, PicklerConfig{
//		PersistentID: func(v any) (string, bool) { ... },
//	})
//
//	u := NewUnpicklerWithConfig(facade, UnpicklerConfig{
//		PersistentLoad: func(id string) (any, error) { ... },
//	})
package pikala
