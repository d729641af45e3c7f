package pikala

import "io"

// ObjectOperation is the one-byte discriminator (§4.2) that precedes
// most reference-typed values.
type ObjectOperation byte

const (
	OpNull   ObjectOperation = 0
	OpMemo   ObjectOperation = 1
	OpObject ObjectOperation = 2

	// OpPersistent is this implementation's extension of §4.2 for the
	// ambient PersistentID/PersistentLoad hook (config.go), generalized
	// from the teacher's PersistentRef mechanism (ogorek.go): a value
	// the host wants resolved externally (e.g. by a stable database
	// key) rather than structurally, carried as a string id instead of
	// a memo back-reference.
	OpPersistent ObjectOperation = 3
)

// encodeMemo tracks, on the encode side, which physical objects have
// already been written so that a later occurrence of the same object
// can be replaced with a back-reference (§3: "identity is physical").
//
// Go has no single notion of "physical identity" across all reference
// kinds, so the caller (value.go) supplies a uintptr identity key —
// reflect.Value.Pointer() for pointers/slices/maps/funcs, the address
// backing a memoizable string wrapper for strings, and so on.
type encodeMemo struct {
	ids map[uintptr]int
}

func newEncodeMemo() *encodeMemo {
	return &encodeMemo{ids: make(map[uintptr]int)}
}

// lookup returns the id already assigned to ptr, or 0 if ptr has not
// been memoized yet (0 doubles as memo_id's "no memo" sentinel, §3).
func (m *encodeMemo) lookup(ptr uintptr) int {
	return m.ids[ptr]
}

// publish assigns the next 1-based id to ptr and returns it.
func (m *encodeMemo) publish(ptr uintptr) int {
	id := len(m.ids) + 1
	m.ids[ptr] = id
	return id
}

// decodeMemo is the append-only id -> object table on the decode side.
type decodeMemo struct {
	objects []any
}

func newDecodeMemo() *decodeMemo {
	return &decodeMemo{}
}

// reserve allocates the next id with a nil placeholder, so a
// self-referential field encountered while still decoding the object's
// own contents can resolve back to it (§3, §9 "cyclic object graphs").
func (m *decodeMemo) reserve() int {
	m.objects = append(m.objects, nil)
	return len(m.objects)
}

// set fills in the placeholder allocated by reserve.
func (m *decodeMemo) set(id int, v any) {
	m.objects[id-1] = v
}

// get resolves a back-reference. It fails with *BadMemoError if id
// names a slot that has not been published yet (§8 "memo invariant").
func (m *decodeMemo) get(id int) (any, error) {
	if id < 1 || id > len(m.objects) {
		return nil, &BadMemoError{Id: id}
	}
	return m.objects[id-1], nil
}

func (m *decodeMemo) len() int { return len(m.objects) }

// writeMemoId/readMemoId encode a full (unbounded) memo id as a plain
// 7-bit varint (§4.1) — used for the ObjectOperation::Memo payload and
// anywhere else an authoritative memo id is read, per §9 Open Question
// (a): "the stream uses full memo ids elsewhere" distinguishes this
// path from the capped 15-bit probe below.
func writeMemoId(w io.ByteWriter, id int) error {
	return writeVarUint32(w, uint32(id))
}

func readMemoId(r io.ByteReader) (int, error) {
	v, err := readVarUint32(r)
	return int(v), err
}

// writeMemoProbe/readMemoProbe implement the capped 15-bit in-band
// memo probe used by delegates (§4.8) and tuples (§4.9) to let the
// decoder short-circuit when an inner value's encoding already
// memoized the whole outer aggregate. Per §9 Open Question (a), 0
// means "not present", and an id that does not fit in 15 bits is
// simply never probed — the decoder always falls back to decoding the
// remainder normally in that case, rather than miscoding the id.
func writeMemoProbe(w io.ByteWriter, id int) error {
	if id <= 0 || id > 0x7FFF {
		return writeVar15(w, 0)
	}
	return writeVar15(w, uint16(id))
}

func readMemoProbe(r io.ByteReader) (int, error) {
	v, err := readVar15(r)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
