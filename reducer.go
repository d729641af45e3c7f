package pikala

// ReducedValue is §4.7's Reduced-mode construction payload, carried by
// a type whose TypeInfo negotiated ModeReduced: a callable (a
// constructor or instance method) plus its positional arguments, and
// optionally a state value applied to the freshly built object
// afterward. This generalizes the teacher's Call/Class objects
// (encode.go) — a named callable plus a fixed argument tuple — to add
// both the mandatory target-or-null §4.7 carries for a method-based
// reducer and the post-construction state step the host's object model
// needs for types that can't be fully rebuilt from constructor
// arguments alone.
//
// Target is only meaningful (and only present on the wire) when
// Callable.IsConstructor is false: "if method_ref is a constructor,
// target must be absent; if a method, target is read first" (§4.7).
type ReducedValue struct {
	Callable *PickledMethod
	Target   any
	Args     []any
	HasState bool
	State    any
}

func encodeReducedValue(w *streamWriter, rv *ReducedValue, codec elementCodec) error {
	if err := codec.encodeMethodRef(w, rv.Callable); err != nil {
		return err
	}
	if !rv.Callable.IsConstructor {
		if err := codec.encodeValue(w, rv.Target); err != nil {
			return err
		}
	}
	if err := writeVarUint32(w, uint32(len(rv.Args))); err != nil {
		return err
	}
	for _, a := range rv.Args {
		if err := codec.encodeValue(w, a); err != nil {
			return err
		}
	}
	if err := w.writeBool(rv.HasState); err != nil {
		return err
	}
	if rv.HasState {
		return codec.encodeValue(w, rv.State)
	}
	return nil
}

func decodeReducedValue(r *streamReader, codec elementCodec) (*ReducedValue, error) {
	callable, err := codec.decodeMethodRef(r)
	if err != nil {
		return nil, err
	}
	rv := &ReducedValue{Callable: callable}
	if !callable.IsConstructor {
		if rv.Target, err = codec.decodeValue(r); err != nil {
			return nil, err
		}
	}
	n, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	rv.Args = make([]any, n)
	for i := range rv.Args {
		v, err := codec.decodeValue(r)
		if err != nil {
			return nil, err
		}
		rv.Args[i] = v
	}
	if rv.HasState, err = r.readBool(); err != nil {
		return nil, err
	}
	if rv.HasState {
		if rv.State, err = codec.decodeValue(r); err != nil {
			return nil, err
		}
	}
	return rv, nil
}

// construct runs rv through the façade: invoke the callable (on Target,
// for a method-based reducer) with its arguments, then — if present —
// apply the post-construction state. Per §4.7, a nil result from the
// callable is always fatal, never a value to propagate
// (ReducerReturnedNilError).
func (rv *ReducedValue) construct(facade ReflectionFacade) (any, error) {
	var obj any
	var err error
	if rv.Callable.IsConstructor {
		obj, err = facade.InvokeConstructor(rv.Callable.handle.(ConstructorHandle), rv.Args)
	} else {
		obj, err = facade.InvokeMethod(rv.Callable.handle.(MethodHandle), rv.Target, rv.Args)
	}
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &ReducerReturnedNilError{Method: rv.Callable.Sig.Name}
	}
	if rv.HasState {
		if err := facade.ApplyReducedState(obj, rv.State); err != nil {
			return nil, err
		}
	}
	return obj, nil
}
