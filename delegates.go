package pikala

// DelegateInvocation is one entry of a (possibly multicast) delegate's
// invocation list: the method to call, plus the bound target it's
// called against (nil for a delegate over a static method, §4.8).
type DelegateInvocation struct {
	Method *PickledMethod
	Target any
}

// DelegateValue is §4.8's delegate value: an ordered invocation list,
// each entry invoked in turn when the delegate itself is invoked.
type DelegateValue struct {
	DelegateType TypeHandle
	Invocations  []DelegateInvocation
}

// encodeDelegateValue mirrors encodeTupleValue's memo-probe shortcut:
// delegates are reference types that frequently recur (event handler
// lists rebuilt from the same underlying method groups), so a nonzero
// probe lets the decoder skip re-reading the invocation list. A fresh
// delegate's id is published into memo before its invocation list is
// encoded, mirroring encodeReferenceValue's publish-before-body order.
func encodeDelegateValue(w *streamWriter, d *DelegateValue, id uintptr, memo *encodeMemo, codec elementCodec) error {
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
	if err := codec.encodeTypeRef(w, d.DelegateType); err != nil {
		return err
	}
	if err := writeVarUint32(w, uint32(len(d.Invocations))); err != nil {
		return err
	}
	for _, inv := range d.Invocations {
		if err := codec.encodeMethodRef(w, inv.Method); err != nil {
			return err
		}
		if err := codec.encodeValue(w, inv.Target); err != nil {
			return err
		}
	}
	return nil
}

func decodeDelegateValue(r *streamReader, memo *decodeMemo, codec elementCodec) (d *DelegateValue, probeHit bool, err error) {
	probe, err := readMemoProbe(r)
	if err != nil {
		return nil, false, err
	}
	if probe != 0 {
		v, err := memo.get(probe)
		if err != nil {
			return nil, false, err
		}
		dv, ok := v.(*DelegateValue)
		if !ok {
			return nil, false, &StreamFormatError{Reason: "delegate probe resolved to a non-delegate memo entry"}
		}
		return dv, true, nil
	}

	id := memo.reserve()
	delegateType, err := codec.decodeTypeRef(r)
	if err != nil {
		return nil, false, err
	}
	n, err := readVarUint32(r)
	if err != nil {
		return nil, false, err
	}
	d = &DelegateValue{
		DelegateType: delegateType,
		Invocations:  make([]DelegateInvocation, n),
	}
	for i := uint32(0); i < n; i++ {
		m, err := codec.decodeMethodRef(r)
		if err != nil {
			return nil, false, err
		}
		target, err := codec.decodeValue(r)
		if err != nil {
			return nil, false, err
		}
		d.Invocations[i] = DelegateInvocation{Method: m, Target: target}
	}
	memo.set(id, d)
	return d, false, nil
}
