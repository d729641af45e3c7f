package pikala

// TupleValue is a fixed-arity heterogeneous aggregate (§4.9), matching
// the host's Tuple/ValueTuple family. Tuples are immutable, so the
// same physical instance is comparatively likely to recur within one
// graph (as a dictionary key, for instance); §4.9 lets the encoder
// record that recurrence with the capped 15-bit probe from memo.go
// instead of falling back to a full ObjectOperation::Memo wrapper.
type TupleValue struct {
	ElementTypes []TypeHandle
	Elements     []any
}

// encodeTupleValue looks id up in memo and writes the resulting probe
// (0 if this exact tuple instance has not been seen before) followed —
// only when the probe is 0 — by the tuple's arity and elements. A
// nonzero probe lets the decoder stop immediately and reuse the object
// already sitting in its memo table. A fresh tuple's id is published
// into memo before its elements are encoded, mirroring
// encodeReferenceValue's publish-before-body order, so that a memo id
// referenced from within one of the elements still resolves correctly.
func encodeTupleValue(w *streamWriter, t *TupleValue, id uintptr, memo *encodeMemo, codec elementCodec) error {
	probeId := 0
	if id != 0 {
		probeId = memo.lookup(id)
	}
	if err := writeMemoProbe(w, probeId); err != nil {
		return err
	}
	if probeId != 0 {
		return nil
	}
	if id != 0 {
		memo.publish(id)
	}
	if err := writeVarUint32(w, uint32(len(t.Elements))); err != nil {
		return err
	}
	for i, elemType := range t.ElementTypes {
		if err := codec.encodeTypeRef(w, elemType); err != nil {
			return err
		}
		if err := codec.encodeValue(w, t.Elements[i]); err != nil {
			return err
		}
	}
	return nil
}

// decodeTupleValue is encodeTupleValue's inverse. probeHit is true when
// the probe resolved to an already-memoized tuple, in which case the
// caller should use the object memo's value rather than t.
func decodeTupleValue(r *streamReader, memo *decodeMemo, codec elementCodec) (t *TupleValue, probeHit bool, err error) {
	probe, err := readMemoProbe(r)
	if err != nil {
		return nil, false, err
	}
	if probe != 0 {
		v, err := memo.get(probe)
		if err != nil {
			return nil, false, err
		}
		tv, ok := v.(*TupleValue)
		if !ok {
			return nil, false, &StreamFormatError{Reason: "tuple probe resolved to a non-tuple memo entry"}
		}
		return tv, true, nil
	}

	id := memo.reserve()
	n, err := readVarUint32(r)
	if err != nil {
		return nil, false, err
	}
	t = &TupleValue{
		ElementTypes: make([]TypeHandle, n),
		Elements:     make([]any, n),
	}
	for i := uint32(0); i < n; i++ {
		et, err := codec.decodeTypeRef(r)
		if err != nil {
			return nil, false, err
		}
		v, err := codec.decodeValue(r)
		if err != nil {
			return nil, false, err
		}
		t.ElementTypes[i] = et
		t.Elements[i] = v
	}
	memo.set(id, t)
	return t, false, nil
}
