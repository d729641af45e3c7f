package pikala

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// StreamFormatError reports truncated input, a bad magic number, a bad
// version, or a malformed varint — anything that makes the byte stream
// itself unparseable. It is always fatal for the current Pickle/Unpickle
// call.
type StreamFormatError struct {
	Reason string
	Offset int64
}

func (e *StreamFormatError) Error() string {
	return fmt.Sprintf("pikala: stream format: %s (at offset %d)", e.Reason, e.Offset)
}

// BadMemoError reports a back-reference naming a memo id that has not
// yet been published. §4.2 and §8 ("memo invariant") require every
// conforming encoder to avoid producing this; seeing one means either a
// corrupt stream or a non-conforming encoder.
type BadMemoError struct {
	Id int
}

func (e *BadMemoError) Error() string {
	return fmt.Sprintf("pikala: bad memo: id %d not yet published", e.Id)
}

// UnknownOperationError reports an opcode byte outside the enum it was
// read as.
type UnknownOperationError struct {
	Enum string
	Op   byte
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("pikala: unknown %s operation: 0x%02x", e.Enum, e.Op)
}

// TypeMismatchError reports that TypeInfo negotiation (§4.3) failed for
// a type. It is recorded on the TypeInfo at negotiation time and only
// surfaced — via this error — when a value of that type is actually
// encountered (§7's "reconciliation errors are deferred").
type TypeMismatchError struct {
	TypeName string
	Detail   string
	Info     *TypeInfo
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("pikala: type mismatch: %s: %s", e.TypeName, e.Detail)
	if e.Info != nil {
		msg += "\n" + spew.Sdump(e.Info)
	}
	return msg
}

// MissingMemberError reports that a field, method, or constructor the
// sender declared could not be found on the local type during
// reification (§4.3 step 2, §7).
type MissingMemberError struct {
	TypeName string
	Member   string
	Sig      *Signature
}

func (e *MissingMemberError) Error() string {
	msg := fmt.Sprintf("pikala: missing member: %s.%s", e.TypeName, e.Member)
	if e.Sig != nil {
		msg += "\n" + spew.Sdump(e.Sig)
	}
	return msg
}

// ReducerReturnedNilError reports that a Reduced-mode type's
// constructor or method returned a nil object (§4.7); this is always
// fatal, never deferred.
type ReducerReturnedNilError struct {
	Method string
}

func (e *ReducerReturnedNilError) Error() string {
	return fmt.Sprintf("pikala: reducer %q returned nil", e.Method)
}

// InvalidDataError reports a header/version mismatch (§6.1).
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("pikala: invalid data: %s", e.Reason)
}

// ErrNotImplemented is returned by facade operations this module treats
// as optional (§9 open question (b): module-scope methods).
var ErrNotImplemented = fmt.Errorf("pikala: not implemented")

// stageViolationError reports a stage-N closure trying to enqueue work
// into a stage earlier than N (§5 "the driver forbids a stage-N closure
// from enqueuing into stage < N").
type stageViolationError struct {
	From, To int
}

func (e *stageViolationError) Error() string {
	return fmt.Sprintf("pikala: stage %d closure may not enqueue into stage %d", e.From, e.To)
}
