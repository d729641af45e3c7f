package pikala

// PicklerConfig mirrors the teacher's EncoderConfig: a plain struct
// with a zero value that is already usable.
type PicklerConfig struct {
	// PersistentID, if set, is consulted before each string, array,
	// reduced or auto-object value is written (tuples, delegates, enums
	// and type/assembly/module references are not offered to it); an ok
	// result causes the value to be written
	// as a persistent reference instead of being encoded structurally
	// (the encode-side half of the teacher's PersistentRef mechanism,
	// generalized from Python pickle's persistent_id hook).
	PersistentID func(v any) (id string, ok bool)
}

// UnpicklerConfig mirrors the teacher's DecoderConfig.
type UnpicklerConfig struct {
	// PersistentLoad resolves an id written by a peer's PersistentID
	// hook back into a live value.
	PersistentLoad func(id string) (any, error)
}

// NewPicklerWithConfig is the configured constructor, parallel to
// NewPickler for the zero-config case.
func NewPicklerWithConfig(facade ReflectionFacade, cfg PicklerConfig) *Pickler {
	p := NewPickler(facade)
	p.config = cfg
	return p
}

// NewUnpicklerWithConfig mirrors NewPicklerWithConfig.
func NewUnpicklerWithConfig(facade ReflectionFacade, cfg UnpicklerConfig) *Unpickler {
	u := NewUnpickler(facade)
	u.config = cfg
	return u
}
