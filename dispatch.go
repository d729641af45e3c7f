package pikala

import "fmt"

// AssemblyOperation is §4.10's one-byte assembly discriminator. The
// encoder writes AssemblyOpDef the first time an assembly is mentioned
// in a stream and AssemblyOpRef after that, each followed by the
// display name; the decoder resolves both by name through the façade's
// ResolveAssemblyByName. No dynamic assembly is created for an
// AssemblyOpDef.
type AssemblyOperation byte

const (
	AssemblyOpRef AssemblyOperation = iota
	AssemblyOpDef
)

// ModuleOperation mirrors AssemblyOperation one level down.
type ModuleOperation byte

const (
	ModuleOpRef ModuleOperation = iota
	ModuleOpDef
)

// TypeOperation is §4.10's type discriminator: a well-known BCL
// primitive, a reference into an already-resolved module, one of the
// adjunct type constructors, or a type being defined from scratch.
type TypeOperation byte

const (
	TypeOpWellKnown TypeOperation = iota
	TypeOpRef
	TypeOpArrayOf
	TypeOpByRefOf
	TypeOpPointerOf
	TypeOpGenericInstance
	TypeOpTVar
	TypeOpMVar
	TypeOpDef
)

// dispatchContext threads everything the assembly/module/type dispatch
// needs: the façade, the per-stream memo for identity-preserving
// references, the generic-context stack for TVar/MVar resolution, and
// the scheduler that type Defs enqueue their staged construction work
// onto (§4.4).
type dispatchContext struct {
	facade    ReflectionFacade
	encMemo   *encodeMemo
	decMemo   *decodeMemo
	generics  *genericContextStack
	scheduler *scheduler
	sigCache  *signatureCache

	assembliesByHandle map[AssemblyHandle]*PickledAssembly
	modulesByHandle    map[ModuleHandle]*PickledModule
}

func newDispatchContext(facade ReflectionFacade) *dispatchContext {
	return &dispatchContext{
		facade:             facade,
		encMemo:            newEncodeMemo(),
		decMemo:            newDecodeMemo(),
		generics:           &genericContextStack{},
		scheduler:          newScheduler(),
		sigCache:           newSignatureCache(),
		assembliesByHandle: make(map[AssemblyHandle]*PickledAssembly),
		modulesByHandle:    make(map[ModuleHandle]*PickledModule),
	}
}

// encodeAssembly writes the AssemblyOperation for a, defining it inline
// the first time it's mentioned in this stream (§4.10).
func (dc *dispatchContext) encodeAssembly(w *streamWriter, a AssemblyHandle) error {
	if pa, ok := dc.assembliesByHandle[a]; ok && !pa.IsDef {
		if err := w.writeByte(byte(AssemblyOpRef)); err != nil {
			return err
		}
		return writeString(w, pa.DisplayName)
	}
	if err := w.writeByte(byte(AssemblyOpDef)); err != nil {
		return err
	}
	name := dc.facade.AssemblyDisplayName(a)
	if err := writeString(w, name); err != nil {
		return err
	}
	dc.assembliesByHandle[a] = &PickledAssembly{IsDef: false, DisplayName: name, handle: a}
	return nil
}

// defineModuleLevelMethodOptional wraps DefineModuleLevelMethod per §9
// Open Question (b): a façade that cannot support free-standing
// module-scope methods reports ErrNotImplemented, which this helper
// logs and swallows rather than aborting the whole stream — the method
// is simply dropped from the reconstructed object graph.
func (dc *dispatchContext) defineModuleLevelMethodOptional(mb ModuleBuilder, name string, sig Signature) (MethodHandle, bool) {
	handle, err := dc.facade.DefineModuleLevelMethod(mb, name, sig)
	if err != nil {
		log.Infof("module-scope method %s not supported by this façade, dropping: %v", name, err)
		return nil, false
	}
	return handle, true
}

func (dc *dispatchContext) decodeAssembly(r *streamReader) (AssemblyHandle, error) {
	opByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch AssemblyOperation(opByte) {
	case AssemblyOpRef, AssemblyOpDef:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		handle, err := dc.facade.ResolveAssemblyByName(name)
		if err != nil {
			return nil, err
		}
		dc.assembliesByHandle[handle] = &PickledAssembly{DisplayName: name, handle: handle}
		return handle, nil
	default:
		return nil, &UnknownOperationError{Enum: "AssemblyOperation", Op: opByte}
	}
}

// encodeModule mirrors encodeAssembly one level down (§4.10).
func (dc *dispatchContext) encodeModule(w *streamWriter, m ModuleHandle) error {
	if pm, ok := dc.modulesByHandle[m]; ok {
		if err := w.writeByte(byte(ModuleOpRef)); err != nil {
			return err
		}
		if err := dc.encodeAssembly(w, dc.facade.ModuleAssembly(m)); err != nil {
			return err
		}
		return writeString(w, pm.Name)
	}
	if err := w.writeByte(byte(ModuleOpDef)); err != nil {
		return err
	}
	if err := dc.encodeAssembly(w, dc.facade.ModuleAssembly(m)); err != nil {
		return err
	}
	name := dc.facade.ModuleName(m)
	if err := writeString(w, name); err != nil {
		return err
	}
	dc.modulesByHandle[m] = &PickledModule{Name: name, handle: m}
	return nil
}

func (dc *dispatchContext) decodeModule(r *streamReader) (ModuleHandle, error) {
	opByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch ModuleOperation(opByte) {
	case ModuleOpRef, ModuleOpDef:
		asm, err := dc.decodeAssembly(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		handle, err := dc.facade.ResolveModuleByName(asm, name)
		if err != nil {
			return nil, err
		}
		dc.modulesByHandle[handle] = &PickledModule{Name: name, handle: handle}
		return handle, nil
	default:
		return nil, &UnknownOperationError{Enum: "ModuleOperation", Op: opByte}
	}
}

// encodeTypeRef writes the full type reference grammar of §4.10:
// well-known, by-reference, one of the recursive constructors, or — for
// a *PickledTypeDef — TypeOpDef followed by the type's whole definition
// (encodeTypeDef), whose staged construction the decoder enqueues on
// the scheduler.
func (dc *dispatchContext) encodeTypeRef(w *streamWriter, t TypeHandle) error {
	if h, ok := t.(builtinHandle); ok {
		if err := w.writeByte(byte(TypeOpWellKnown)); err != nil {
			return err
		}
		return writeWellKnownType(w, h)
	}
	switch v := t.(type) {
	case PickledTypeArrayOf:
		if err := w.writeByte(byte(TypeOpArrayOf)); err != nil {
			return err
		}
		if err := writeVarInt32(w, int32(v.Rank)); err != nil {
			return err
		}
		return dc.encodeTypeRef(w, v.Elem)
	case PickledTypeByRefOf:
		if err := w.writeByte(byte(TypeOpByRefOf)); err != nil {
			return err
		}
		return dc.encodeTypeRef(w, v.Elem)
	case PickledTypePointerOf:
		if err := w.writeByte(byte(TypeOpPointerOf)); err != nil {
			return err
		}
		return dc.encodeTypeRef(w, v.Elem)
	case PickledTypeGenericInstance:
		if err := w.writeByte(byte(TypeOpGenericInstance)); err != nil {
			return err
		}
		if err := dc.encodeTypeRef(w, v.Def); err != nil {
			return err
		}
		if err := writeVarUint32(w, uint32(len(v.Args))); err != nil {
			return err
		}
		for _, a := range v.Args {
			if err := dc.encodeTypeRef(w, a); err != nil {
				return err
			}
		}
		return nil
	case PickledTypeTVar:
		if err := w.writeByte(byte(TypeOpTVar)); err != nil {
			return err
		}
		return writeVarUint32(w, uint32(v.Index))
	case PickledTypeMVar:
		if err := w.writeByte(byte(TypeOpMVar)); err != nil {
			return err
		}
		return writeVarUint32(w, uint32(v.Index))
	case *PickledTypeDef:
		if err := w.writeByte(byte(TypeOpDef)); err != nil {
			return err
		}
		return dc.encodeTypeDef(w, v)
	default:
		if err := w.writeByte(byte(TypeOpRef)); err != nil {
			return err
		}
		mod, name, err := dc.facade.ResolveTypeLocation(t)
		if err != nil {
			return err
		}
		if err := dc.encodeModule(w, mod); err != nil {
			return err
		}
		return writeString(w, name)
	}
}

// encodeTypeDef writes a dynamically-defined type's declaration (§3
// lifecycle, §4.4). The declaration itself — kind, name, parent scope,
// generic arity — is written eagerly; the four-stage body (members,
// IL/attributes, finalization) happens on the decode side through the
// scheduler, driven by the corresponding decodeTypeDef.
func (dc *dispatchContext) encodeTypeDef(w *streamWriter, def *PickledTypeDef) error {
	if err := w.writeByte(byte(def.Kind)); err != nil {
		return err
	}
	if err := writeString(w, def.Name); err != nil {
		return err
	}
	if err := w.writeByte(byte(def.Attrs)); err != nil {
		return err
	}
	if err := dc.encodeModule(w, def.ParentScope); err != nil {
		return err
	}
	if err := writeVarUint32(w, uint32(len(def.GenericParams))); err != nil {
		return err
	}
	for _, gp := range def.GenericParams {
		if err := writeString(w, gp); err != nil {
			return err
		}
	}

	hasParent := def.Parent != nil
	if err := w.writeBool(hasParent); err != nil {
		return err
	}
	if hasParent {
		if err := dc.encodeTypeRef(w, def.Parent); err != nil {
			return err
		}
	}
	if err := writeVarUint32(w, uint32(len(def.Interfaces))); err != nil {
		return err
	}
	for _, iface := range def.Interfaces {
		if err := dc.encodeTypeRef(w, iface); err != nil {
			return err
		}
	}

	if err := writeVarUint32(w, uint32(len(def.Fields))); err != nil {
		return err
	}
	for _, f := range def.Fields {
		if err := writeString(w, f.Name); err != nil {
			return err
		}
		if err := dc.encodeTypeRef(w, f.FieldType); err != nil {
			return err
		}
		if err := w.writeByte(byte(f.Attrs)); err != nil {
			return err
		}
	}

	if err := writeVarUint32(w, uint32(len(def.Methods))); err != nil {
		return err
	}
	for _, m := range def.Methods {
		if err := dc.encodeMethodDef(w, m); err != nil {
			return err
		}
	}

	if err := writeVarUint32(w, uint32(len(def.Constructors))); err != nil {
		return err
	}
	for _, c := range def.Constructors {
		if err := dc.encodeMethodDef(w, c); err != nil {
			return err
		}
	}

	if err := writeVarUint32(w, uint32(len(def.Properties))); err != nil {
		return err
	}
	for _, p := range def.Properties {
		if err := encodeSignature(w, p.Sig, dc); err != nil {
			return err
		}
	}

	if err := writeVarUint32(w, uint32(len(def.Events))); err != nil {
		return err
	}
	for _, e := range def.Events {
		if err := writeString(w, e.Name); err != nil {
			return err
		}
		if err := dc.encodeTypeRef(w, e.EventType); err != nil {
			return err
		}
	}

	if err := writeVarUint32(w, uint32(len(def.Overrides))); err != nil {
		return err
	}
	for _, o := range def.Overrides {
		idx := methodIndex(def.Methods, o.Method)
		if idx < 0 {
			return &StreamFormatError{Reason: "method override names a method not in this type's own Methods list"}
		}
		if err := writeVarUint32(w, uint32(idx)); err != nil {
			return err
		}
		if err := dc.encodeMethodRef(w, o.Declaration); err != nil {
			return err
		}
	}
	return nil
}

func methodIndex(methods []*PickledMethod, m *PickledMethod) int {
	for i, cand := range methods {
		if cand == m {
			return i
		}
	}
	return -1
}

// encodeMethodDef/decodeMethodDef write a method or constructor's
// signature and body together — the shape shared by def.Methods,
// def.Constructors, and (via DefineMethodOverride) an override's own
// implementing method.
func (dc *dispatchContext) encodeMethodDef(w *streamWriter, m *PickledMethod) error {
	if err := encodeSignature(w, m.Sig, dc); err != nil {
		return err
	}
	return encodeMethodBody(w, m.Body, dc)
}

func (dc *dispatchContext) decodeMethodDef(r *streamReader, isConstructor bool) (*PickledMethod, error) {
	sig, err := decodeSignature(r, dc)
	if err != nil {
		return nil, err
	}
	body, err := decodeMethodBody(r, dc)
	if err != nil {
		return nil, err
	}
	return &PickledMethod{IsDef: true, IsConstructor: isConstructor, Sig: sig, Body: body}, nil
}

// decodeTypeDef reads a type declaration and schedules its staged
// construction: stage 1 creates the bare TypeBuilder (so later Defs in
// the same module can immediately reference it by TypeHandle via
// def.handle, even before members exist), stage 2 declares fields and
// method signatures, stage 3 attaches method bodies, and stage 4 calls
// CreateType (§4.4).
func (dc *dispatchContext) decodeTypeDef(r *streamReader) (*PickledTypeDef, error) {
	kindByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	attrsByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	parentScope, err := dc.decodeModule(r)
	if err != nil {
		return nil, err
	}
	ngp, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	genericParams := make([]string, ngp)
	for i := range genericParams {
		if genericParams[i], err = readString(r); err != nil {
			return nil, err
		}
	}

	hasParent, err := r.readBool()
	if err != nil {
		return nil, err
	}
	var parent TypeHandle
	if hasParent {
		if parent, err = dc.decodeTypeRef(r); err != nil {
			return nil, err
		}
	}
	ni, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	interfaces := make([]TypeHandle, ni)
	for i := range interfaces {
		if interfaces[i], err = dc.decodeTypeRef(r); err != nil {
			return nil, err
		}
	}

	nf, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	fields := make([]*PickledField, nf)
	for i := range fields {
		fname, err := readString(r)
		if err != nil {
			return nil, err
		}
		ft, err := dc.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		fattrs, err := r.readByte()
		if err != nil {
			return nil, err
		}
		fields[i] = &PickledField{IsDef: true, Name: fname, FieldType: ft, Attrs: TypeInfoFlags(fattrs)}
	}

	nm, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	methods := make([]*PickledMethod, nm)
	for i := range methods {
		if methods[i], err = dc.decodeMethodDef(r, false); err != nil {
			return nil, err
		}
	}

	nc, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	constructors := make([]*PickledMethod, nc)
	for i := range constructors {
		if constructors[i], err = dc.decodeMethodDef(r, true); err != nil {
			return nil, err
		}
	}

	np, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	properties := make([]*PickledProperty, np)
	for i := range properties {
		sig, err := decodeSignature(r, dc)
		if err != nil {
			return nil, err
		}
		properties[i] = &PickledProperty{IsDef: true, Sig: sig}
	}

	ne, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	events := make([]*PickledEvent, ne)
	for i := range events {
		ename, err := readString(r)
		if err != nil {
			return nil, err
		}
		etype, err := dc.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		events[i] = &PickledEvent{IsDef: true, Name: ename, EventType: etype}
	}

	no, err := readVarUint32(r)
	if err != nil {
		return nil, err
	}
	overrideIdx := make([]uint32, no)
	overrideDecls := make([]*PickledMethod, no)
	for i := range overrideIdx {
		if overrideIdx[i], err = readVarUint32(r); err != nil {
			return nil, err
		}
		if overrideIdx[i] >= nm {
			return nil, &StreamFormatError{Reason: "method override index out of range"}
		}
		if overrideDecls[i], err = dc.decodeMethodRef(r); err != nil {
			return nil, err
		}
	}

	def := &PickledTypeDef{
		Kind:          TypeDefKind(kindByte),
		Name:          name,
		Attrs:         TypeInfoFlags(attrsByte),
		ParentScope:   parentScope,
		Parent:        parent,
		GenericParams: genericParams,
		Fields:        fields,
		Methods:       methods,
		Constructors:  constructors,
		Properties:    properties,
		Events:        events,
		Interfaces:    interfaces,
	}
	for i := range overrideIdx {
		def.Overrides = append(def.Overrides, MethodOverride{Method: methods[overrideIdx[i]], Declaration: overrideDecls[i]})
	}

	if err := dc.scheduler.enqueue(stageCreateTypes, func() error {
		log.Debugf("stage 1: creating type %s (kind %v)", name, def.Kind)
		tb, err := dc.facade.DefineTypeInModule(parentScope, name, def.Kind, def.Attrs)
		if err != nil {
			return err
		}
		def.builder = tb
		def.handle = tb.Handle()
		return nil
	}); err != nil {
		return nil, err
	}

	if err := dc.scheduler.enqueue(stageDeclareMembers, func() error {
		if def.Parent != nil {
			if err := def.builder.SetParent(def.Parent); err != nil {
				return err
			}
		}
		for _, iface := range def.Interfaces {
			if err := def.builder.AddInterface(iface); err != nil {
				return err
			}
		}
		if len(def.GenericParams) > 0 {
			if err := def.builder.DefineGenericParameters(def.GenericParams); err != nil {
				return err
			}
		}
		for _, f := range def.Fields {
			fh, err := def.builder.DefineField(f.Name, f.FieldType, f.Attrs)
			if err != nil {
				return err
			}
			f.handle = fh
		}
		for _, m := range def.Methods {
			mb, err := def.builder.DefineMethod(m.Sig.Name, m.Sig)
			if err != nil {
				return err
			}
			m.builder = mb
			m.handle = mb.Handle()
		}
		for _, c := range def.Constructors {
			mb, err := def.builder.DefineConstructor(c.Sig)
			if err != nil {
				return err
			}
			c.builder = mb
			c.handle = mb.Handle()
		}
		for _, p := range def.Properties {
			ph, err := def.builder.DefineProperty(p.Sig.Name, p.Sig)
			if err != nil {
				return err
			}
			p.handle = ph
		}
		for _, e := range def.Events {
			eh, err := def.builder.DefineEvent(e.Name, e.EventType)
			if err != nil {
				return err
			}
			e.handle = eh
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := dc.scheduler.enqueue(stageAttachBodies, func() error {
		for _, m := range def.Methods {
			if err := emitMethodBody(m.builder.ILGenerator(), m.Body); err != nil {
				return err
			}
		}
		for _, c := range def.Constructors {
			if err := emitMethodBody(c.builder.ILGenerator(), c.Body); err != nil {
				return err
			}
		}
		for _, o := range def.Overrides {
			if err := def.builder.DefineMethodOverride(o.Method.handle, o.Declaration.handle); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := dc.scheduler.enqueue(stageFinalize, func() error {
		handle, err := def.builder.CreateType()
		if err != nil {
			return err
		}
		def.handle = handle
		return nil
	}); err != nil {
		return nil, err
	}

	return def, nil
}

// emitMethodBody replays a decoded MethodBody's instruction stream
// through the façade's ILGenerator (§6.3).
func emitMethodBody(il ILGenerator, body *MethodBody) error {
	locals := make([]int, len(body.Locals))
	for i, l := range body.Locals {
		locals[i] = il.DeclareLocal(l.Type, l.Pinned)
	}
	for _, inst := range body.Instructions {
		if err := il.Emit(inst.Opcode, inst.Operand); err != nil {
			return err
		}
	}
	_ = locals
	return nil
}

func (dc *dispatchContext) decodeTypeRef(r *streamReader) (TypeHandle, error) {
	opByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch TypeOperation(opByte) {
	case TypeOpWellKnown:
		return readWellKnownType(r)
	case TypeOpRef:
		mod, err := dc.decodeModule(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return dc.facade.ResolveType(mod, name)
	case TypeOpArrayOf:
		rank, err := readVarInt32(r)
		if err != nil {
			return nil, err
		}
		elem, err := dc.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		return PickledTypeArrayOf{Rank: int(rank), Elem: elem}, nil
	case TypeOpByRefOf:
		elem, err := dc.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		return PickledTypeByRefOf{Elem: elem}, nil
	case TypeOpPointerOf:
		elem, err := dc.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		return PickledTypePointerOf{Elem: elem}, nil
	case TypeOpGenericInstance:
		def, err := dc.decodeTypeRef(r)
		if err != nil {
			return nil, err
		}
		n, err := readVarUint32(r)
		if err != nil {
			return nil, err
		}
		args := make([]TypeHandle, n)
		for i := range args {
			if args[i], err = dc.decodeTypeRef(r); err != nil {
				return nil, err
			}
		}
		return PickledTypeGenericInstance{Def: def, Args: args}, nil
	case TypeOpTVar:
		i, err := readVarUint32(r)
		if err != nil {
			return nil, err
		}
		return PickledTypeTVar{Index: int(i)}, nil
	case TypeOpMVar:
		i, err := readVarUint32(r)
		if err != nil {
			return nil, err
		}
		return PickledTypeMVar{Index: int(i)}, nil
	case TypeOpDef:
		return dc.decodeTypeDef(r)
	default:
		return nil, &UnknownOperationError{Enum: "TypeOperation", Op: opByte}
	}
}

func (dc *dispatchContext) encodeMethodRef(w *streamWriter, m *PickledMethod) error {
	if err := dc.encodeTypeRef(w, m.DeclaringType); err != nil {
		return err
	}
	if err := w.writeBool(m.IsConstructor); err != nil {
		return err
	}
	return encodeSignature(w, m.Sig, dc)
}

func (dc *dispatchContext) decodeMethodRef(r *streamReader) (*PickledMethod, error) {
	declaring, err := dc.decodeTypeRef(r)
	if err != nil {
		return nil, err
	}
	isCtor, err := r.readBool()
	if err != nil {
		return nil, err
	}
	sig, err := decodeSignature(r, dc)
	if err != nil {
		return nil, err
	}
	m := &PickledMethod{DeclaringType: declaring, IsConstructor: isCtor, Sig: sig}
	if cached, ok := dc.sigCache.get(declaring, sigKindMethod, sig); ok {
		m.handle = cached
		return m, nil
	}
	// §4.4 PopStages: declaring may be a *PickledTypeDef still awaiting
	// its own stage-2 member declaration (the type this very method
	// operand belongs to, if the body is self-referencing). Force that
	// stage to drain before asking the façade to resolve the method.
	if err := dc.scheduler.popStagesThrough(stageDeclareMembers); err != nil {
		return nil, err
	}
	resolved := resolveDeclaringHandle(declaring)
	var handle any
	if isCtor {
		handle, err = dc.facade.GetConstructorBySignature(resolved, sig)
	} else {
		handle, err = dc.facade.GetMethodBySignature(resolved, sig)
	}
	if err != nil {
		return nil, &MissingMemberError{TypeName: fmt.Sprintf("%v", declaring), Member: sig.Name, Sig: &sig}
	}
	m.handle = handle
	dc.sigCache.set(declaring, sigKindMethod, sig, handle)
	return m, nil
}

// resolveDeclaringHandle returns t's realized façade handle when t is a
// *PickledTypeDef still being constructed in this stream — its handle
// field is only populated once the scheduler's stage-1 closure has run
// (dc.scheduler.popStagesThrough above guarantees that by this point).
// Any other TypeHandle is already a real façade handle and is returned
// unchanged.
func resolveDeclaringHandle(t TypeHandle) TypeHandle {
	if def, ok := t.(*PickledTypeDef); ok {
		return def.handle
	}
	return t
}

// The methods below satisfy il.go's operandCodec, letting a
// dispatchContext serve as the codec encodeMethodBody/decodeMethodBody
// use for OperandString/OperandField/OperandMethod/OperandType_
// operands — the same recursive reference grammar §4.5 reuses from
// §4.10, just reached through a different entry point.

func (dc *dispatchContext) encodeString(w *streamWriter, s string) error { return writeString(w, s) }
func (dc *dispatchContext) decodeString(r *streamReader) (string, error) { return readString(r) }

func (dc *dispatchContext) encodeField(w *streamWriter, f any) error {
	pf := f.(*PickledField)
	if err := dc.encodeTypeRef(w, pf.DeclaringType); err != nil {
		return err
	}
	return writeString(w, pf.Name)
}

func (dc *dispatchContext) decodeField(r *streamReader) (any, error) {
	declaring, err := dc.decodeTypeRef(r)
	if err != nil {
		return nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	// §4.4 PopStages: declaring may be a *PickledTypeDef still awaiting
	// its own stage-2 member declaration (the type this very field
	// operand belongs to, if the body is self-referencing) — its
	// DefineField calls are deferred onto stageDeclareMembers and
	// haven't run yet at this point in the decode recursion. Force that
	// stage (and the stage-1 TypeBuilder creation it depends on) to
	// drain before asking the façade to resolve the field.
	if err := dc.scheduler.popStagesThrough(stageDeclareMembers); err != nil {
		return nil, err
	}
	handle, err := dc.facade.GetFieldByName(resolveDeclaringHandle(declaring), name)
	if err != nil {
		return nil, &MissingMemberError{TypeName: fmt.Sprintf("%v", declaring), Member: name}
	}
	return &PickledField{DeclaringType: declaring, Name: name, handle: handle}, nil
}

func (dc *dispatchContext) encodeMethod(w *streamWriter, m any) error {
	return dc.encodeMethodRef(w, m.(*PickledMethod))
}

func (dc *dispatchContext) decodeMethod(r *streamReader) (any, error) {
	return dc.decodeMethodRef(r)
}

func (dc *dispatchContext) encodeType(w *streamWriter, t any) error { return dc.encodeTypeRef(w, t) }
func (dc *dispatchContext) decodeType(r *streamReader) (any, error) { return dc.decodeTypeRef(r) }
