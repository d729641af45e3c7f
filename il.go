package pikala

import "fmt"

// Opcode is the one- or two-byte instruction mnemonic of §4.5's method
// body codec. Values below 0x100 are single-byte on the wire; values
// at or above it are reached through the escape byte (0xFE) followed
// by the low byte.
type Opcode uint16

const (
	OpNop Opcode = iota
	OpRet
	OpDup
	OpPop
	OpThrow
	OpLdNull
	OpLdcI4
	OpLdcI8
	OpLdcR8
	OpLdStr
	OpLdArg
	OpStArg
	OpLdLoc
	OpStLoc
	OpLdLocA
	OpLdFld
	OpStFld
	OpLdsFld
	OpStsFld
	OpCall
	OpCallVirt
	OpNewObj
	OpBox
	OpUnbox
	OpCastClass
	OpIsInst
	OpBr
	OpBrTrue
	OpBrFalse
	OpBeq
	OpBne
	OpLeave

	// opcodeExtendedBase is the first value requiring the two-byte
	// escape form; opcodes at or above it never appear as a bare wire
	// byte (§4.5: "0xFE introduces a two-byte opcode").
	opcodeExtendedBase Opcode = 0x100
)

const (
	ilEscapeByte      byte = 0xFE
	ilTerminatorByte  byte = 0xFF
)

// OperandType names how an instruction's operand, if any, follows its
// opcode on the wire (§4.5).
type OperandType byte

const (
	OperandNone OperandType = iota
	OperandVarInt
	OperandVarLong
	OperandFloat64
	OperandString
	OperandLocalIndex
	OperandArgIndex
	OperandLabel
	OperandField
	OperandMethod
	OperandType_
	OperandSignature
)

// opcodeOperandKinds is the per-opcode operand shape table (§4.5's
// "each opcode has a fixed, statically known operand encoding" — the
// decoder never needs to guess).
var opcodeOperandKinds = map[Opcode]OperandType{
	OpNop:       OperandNone,
	OpRet:       OperandNone,
	OpDup:       OperandNone,
	OpPop:       OperandNone,
	OpThrow:     OperandNone,
	OpLdNull:    OperandNone,
	OpLdcI4:     OperandVarInt,
	OpLdcI8:     OperandVarLong,
	OpLdcR8:     OperandFloat64,
	OpLdStr:     OperandString,
	OpLdArg:     OperandArgIndex,
	OpStArg:     OperandArgIndex,
	OpLdLoc:     OperandLocalIndex,
	OpStLoc:     OperandLocalIndex,
	OpLdLocA:    OperandLocalIndex,
	OpLdFld:     OperandField,
	OpStFld:     OperandField,
	OpLdsFld:    OperandField,
	OpStsFld:    OperandField,
	OpCall:      OperandMethod,
	OpCallVirt:  OperandMethod,
	OpNewObj:    OperandMethod,
	OpBox:       OperandType_,
	OpUnbox:     OperandType_,
	OpCastClass: OperandType_,
	OpIsInst:    OperandType_,
	OpBr:        OperandLabel,
	OpBrTrue:    OperandLabel,
	OpBrFalse:   OperandLabel,
	OpBeq:       OperandLabel,
	OpBne:       OperandLabel,
	OpLeave:     OperandLabel,
}

// Instruction is one decoded IL-like instruction. Operand's dynamic
// type depends on OperandType: int64 for VarInt/VarLong/indices/label
// ids, float64, string, or a PickledField/PickledMethod/PickledType
// reference resolved through the enclosing value codec.
type Instruction struct {
	Opcode  Opcode
	Operand any
}

// LocalVar is one entry of a method body's local variable signature.
type LocalVar struct {
	Type   TypeHandle
	Pinned bool
}

// MethodBody is §4.5's instruction stream plus the locals it addresses.
type MethodBody struct {
	InitLocals   bool
	MaxStack     int
	Locals       []LocalVar
	Instructions []Instruction
}

// operandCodec is supplied by the enclosing value encoder/decoder
// (value.go) so il.go never has to know how to pickle a PickledField,
// PickledMethod, or PickledType reference itself — it only knows where
// in the instruction stream one occurs.
type operandCodec interface {
	encodeString(w *streamWriter, s string) error
	decodeString(r *streamReader) (string, error)
	encodeField(w *streamWriter, f any) error
	decodeField(r *streamReader) (any, error)
	encodeMethod(w *streamWriter, m any) error
	decodeMethod(r *streamReader) (any, error)
	encodeType(w *streamWriter, t any) error
	decodeType(r *streamReader) (any, error)
}

func writeOpcode(w *streamWriter, op Opcode) error {
	if op < opcodeExtendedBase {
		return w.writeByte(byte(op))
	}
	if err := w.writeByte(ilEscapeByte); err != nil {
		return err
	}
	return w.writeByte(byte(op - opcodeExtendedBase))
}

func readOpcode(r *streamReader) (Opcode, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if b != ilEscapeByte {
		return Opcode(b), nil
	}
	ext, err := r.readByte()
	if err != nil {
		return 0, err
	}
	return opcodeExtendedBase + Opcode(ext), nil
}

// encodeMethodBody writes a method body as a sequence of opcode+operand
// pairs terminated by ilTerminatorByte (§4.5). Branch targets are
// written as the target instruction's index in the linear stream;
// label allocation/resolution on the decode side happens in the
// façade's ILGenerator, not here — this layer only round-trips indices.
func encodeMethodBody(w *streamWriter, body *MethodBody, codec operandCodec) error {
	if err := writeVarUint32(w, uint32(len(body.Locals))); err != nil {
		return err
	}
	for _, l := range body.Locals {
		if err := codec.encodeType(w, l.Type); err != nil {
			return err
		}
		if err := w.writeBool(l.Pinned); err != nil {
			return err
		}
	}
	if err := w.writeBool(body.InitLocals); err != nil {
		return err
	}
	if err := writeVarUint32(w, uint32(body.MaxStack)); err != nil {
		return err
	}

	for _, inst := range body.Instructions {
		if err := writeOpcode(w, inst.Opcode); err != nil {
			return err
		}
		if err := encodeOperand(w, inst.Opcode, inst.Operand, codec); err != nil {
			return err
		}
	}
	return w.writeByte(ilTerminatorByte)
}

func encodeOperand(w *streamWriter, op Opcode, operand any, codec operandCodec) error {
	switch opcodeOperandKinds[op] {
	case OperandNone:
		return nil
	case OperandVarInt, OperandLocalIndex, OperandArgIndex, OperandLabel:
		return writeVarInt32(w, int32(operand.(int64)))
	case OperandVarLong:
		return w.writeInt64(operand.(int64))
	case OperandFloat64:
		return w.writeFloat64(operand.(float64))
	case OperandString:
		return codec.encodeString(w, operand.(string))
	case OperandField:
		return codec.encodeField(w, operand)
	case OperandMethod:
		return codec.encodeMethod(w, operand)
	case OperandType_:
		return codec.encodeType(w, operand)
	default:
		return &StreamFormatError{Reason: fmt.Sprintf("unhandled operand kind for opcode %d", op)}
	}
}

// decodeMethodBody is encodeMethodBody's inverse. It reads instructions
// until it sees ilTerminatorByte in opcode position — that byte can
// never be a valid opcode's first byte because opcodeExtendedBase
// opcodes escape through ilEscapeByte (0xFE), leaving 0xFF free as the
// sentinel (§4.5).
func decodeMethodBody(r *streamReader, codec operandCodec) (*MethodBody, error) {
	body := &MethodBody{}

	n, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	body.Locals = make([]LocalVar, 0, n)
	for i := uint32(0); i < n; i++ {
		t, err := codec.decodeType(r)
		if err != nil {
			return nil, err
		}
		pinned, err := r.readBool()
		if err != nil {
			return nil, err
		}
		body.Locals = append(body.Locals, LocalVar{Type: t, Pinned: pinned})
	}

	if body.InitLocals, err = r.readBool(); err != nil {
		return nil, err
	}
	maxStack, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	body.MaxStack = int(maxStack)

	for {
		peek, err := r.peekByte()
		if err != nil {
			return nil, err
		}
		if peek == ilTerminatorByte {
			r.readByte()
			break
		}
		op, err := readOpcode(r)
		if err != nil {
			return nil, err
		}
		operand, err := decodeOperand(r, op, codec)
		if err != nil {
			return nil, err
		}
		body.Instructions = append(body.Instructions, Instruction{Opcode: op, Operand: operand})
	}
	return body, nil
}

func decodeOperand(r *streamReader, op Opcode, codec operandCodec) (any, error) {
	switch opcodeOperandKinds[op] {
	case OperandNone:
		return nil, nil
	case OperandVarInt, OperandLocalIndex, OperandArgIndex, OperandLabel:
		v, err := readVarInt32(r)
		return int64(v), err
	case OperandVarLong:
		return r.readInt64()
	case OperandFloat64:
		return r.readFloat64()
	case OperandString:
		return codec.decodeString(r)
	case OperandField:
		return codec.decodeField(r)
	case OperandMethod:
		return codec.decodeMethod(r)
	case OperandType_:
		return codec.decodeType(r)
	default:
		return nil, &StreamFormatError{Reason: fmt.Sprintf("unhandled operand kind for opcode %d", op)}
	}
}
