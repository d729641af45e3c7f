package pikala

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/blang/semver/v4"
)

// streamMagic opens every stream (§6.1): four bytes, no varint framing,
// so a misdirected non-Pikala blob fails fast on the very first read.
var streamMagic = [4]byte{'P', 'K', 'L', 'A'}

// StreamVersion is the engine's own format version, checked against a
// peer's advertised version by readHeader (§6.1). Pikala reuses
// blang/semver rather than a bespoke major/minor pair; the check
// accepts any peer with the same major version and does not compare
// minor or patch.
var StreamVersion = semver.MustParse("1.0.0")

// streamWriter/streamReader are thin, buffered wrappers that every
// wire-level helper in this package (varint.go, memo.go, il.go, and the
// value/array/tuple/delegate codecs) is written against. They expose
// exactly the primitives the wire format needs — io.ByteWriter/
// io.ByteReader for the varint helpers, plus fixed-width int64/float64
// and a single-byte lookahead for il.go's instruction-stream
// terminator.
type streamWriter struct {
	*bufio.Writer
}

func newStreamWriter(w io.Writer) *streamWriter {
	return &streamWriter{Writer: bufio.NewWriter(w)}
}

func (w *streamWriter) writeByte(b byte) error { return w.WriteByte(b) }

func (w *streamWriter) writeBool(v bool) error {
	if v {
		return w.writeByte(1)
	}
	return w.writeByte(0)
}

func (w *streamWriter) writeInt64(v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func (w *streamWriter) writeFloat64(v float64) error {
	return w.writeInt64(int64(math.Float64bits(v)))
}

type streamReader struct {
	*bufio.Reader
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{Reader: bufio.NewReader(r)}
}

func (r *streamReader) readByte() (byte, error) { return r.ReadByte() }

func (r *streamReader) peekByte() (byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *streamReader) readBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *streamReader) readInt64() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func (r *streamReader) readFloat64() (float64, error) {
	bits, err := r.readInt64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(bits)), nil
}

// writeHeader emits the magic and this engine's version (§6.1).
func writeHeader(w *streamWriter) error {
	if _, err := w.Write(streamMagic[:]); err != nil {
		return err
	}
	return writeString(w, StreamVersion.String())
}

// PeekStreamVersion reads and validates just the header of r, without
// consuming anything beyond it — the one piece of a stream that can be
// inspected without a ReflectionFacade, used by cmd/pikala-dump.
func PeekStreamVersion(r io.Reader) (string, error) {
	v, err := readHeader(newStreamReader(r))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// readHeader validates the magic and checks the peer's version against
// ours: the major versions must match; minor and patch are not checked.
func readHeader(r *streamReader) (semver.Version, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return semver.Version{}, err
	}
	if magic != streamMagic {
		return semver.Version{}, &StreamFormatError{Reason: "bad magic"}
	}
	vs, err := readString(r)
	if err != nil {
		return semver.Version{}, err
	}
	peer, err := semver.Parse(vs)
	if err != nil {
		return semver.Version{}, &StreamFormatError{Reason: fmt.Sprintf("unparseable stream version %q: %v", vs, err)}
	}
	if peer.Major != StreamVersion.Major {
		return semver.Version{}, &StreamFormatError{Reason: fmt.Sprintf("incompatible stream version %s (engine is %s)", peer, StreamVersion)}
	}
	return peer, nil
}
