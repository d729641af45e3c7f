package pikala

// This file is the external collaborator boundary described in §1 and
// §6.3: the host reflection system and code-generation back-end are
// never reached into directly — every runtime-shape question the core
// engine needs answered goes through ReflectionFacade. Handles below
// are opaque; the core never assumes they are Go reflect.Type values.

// AssemblyHandle, ModuleHandle, TypeHandle, MethodHandle, FieldHandle,
// PropertyHandle, EventHandle, ConstructorHandle are opaque references
// supplied and interpreted only by the host ReflectionFacade
// implementation (§9 "Reflection dependency → reflection façade").
type (
	AssemblyHandle   interface{}
	ModuleHandle     interface{}
	TypeHandle       interface{}
	MethodHandle     interface{}
	FieldHandle      interface{}
	PropertyHandle   interface{}
	EventHandle      interface{}
	ConstructorHandle interface{}
)

// FieldIdentity names a field by its declaring type plus field name —
// the key carried by a field Ref (§3 "PickledMember").
type FieldIdentity struct {
	DeclaringType TypeHandle
	Name          string
}

// ReflectionFacade is the collaborator contract of §6.3. The core
// pickling engine never touches the host's type system except through
// this interface.
type ReflectionFacade interface {
	// Assembly/module resolution.
	ResolveAssemblyByName(name string) (AssemblyHandle, error)
	CurrentLoadedAssemblies() []AssemblyHandle
	AssemblyDisplayName(a AssemblyHandle) string
	AssemblyModules(a AssemblyHandle) []ModuleHandle
	ModuleAssembly(m ModuleHandle) AssemblyHandle
	ModuleName(m ModuleHandle) string
	ResolveModuleByName(a AssemblyHandle, name string) (ModuleHandle, error)

	// Dynamic assembly/module creation (§6.3). A façade that cannot
	// realize dynamic types may return ErrNotImplemented here — per
	// §9's design note, the stream then degrades to pure data-pickling
	// (no Def variants).
	DefineDynamicAssembly(name string, collectible bool) (AssemblyBuilder, error)
	DefineDynamicModule(asm AssemblyBuilder, name string) (ModuleBuilder, error)

	// DefineTypeInModule starts a top-level (non-nested) type
	// definition directly against an already-resolved ModuleHandle —
	// the scheduler's stage-1 closures use this rather than threading
	// a ModuleBuilder value through decodeTypeDef's PickledTypeDef.
	DefineTypeInModule(m ModuleHandle, name string, kind TypeDefKind, attrs TypeInfoFlags) (TypeBuilder, error)

	// Type/member lookup by reference (Ref variants of §3).
	ResolveType(m ModuleHandle, name string) (TypeHandle, error)
	ResolveTypeLocation(t TypeHandle) (ModuleHandle, string, error)
	ResolveNestedType(outer TypeHandle, name string) (TypeHandle, error)
	GetFieldByName(t TypeHandle, name string) (FieldHandle, error)
	GetMethodBySignature(t TypeHandle, sig Signature) (MethodHandle, error)
	GetPropertyBySignature(t TypeHandle, sig Signature) (PropertyHandle, error)
	GetEventByName(t TypeHandle, name string) (EventHandle, error)
	GetConstructorBySignature(t TypeHandle, sig Signature) (ConstructorHandle, error)

	// TypeOf/ClassifyType answer "what is this value's runtime type, and
	// how does §4.3 negotiation describe it" — the two questions the
	// core engine cannot answer itself, since TypeHandle is opaque.
	TypeOf(v any) TypeHandle
	ClassifyType(t TypeHandle) (*TypeInfo, error)

	// Shape introspection, used by §4.3's negotiation protocol to
	// build a local TypeInfo to compare against a sender's descriptor.
	TypeFlags(t TypeHandle) TypeInfoFlags
	TypeSerializedFields(t TypeHandle) []FieldHandle
	FieldType(f FieldHandle) TypeHandle
	FieldName(f FieldHandle) string
	IsEnum(t TypeHandle) bool
	EnumUnderlyingCode(t TypeHandle) IntegerCode
	IsDelegate(t TypeHandle) bool
	IsAssignableTo(t, root TypeHandle) bool

	// Module-scope methods (§9 Open Question (b)): optional. A façade
	// that does not support them returns ErrNotImplemented. The decoder
	// does not call this method; no scheduler stage defines module-scope
	// methods.
	DefineModuleLevelMethod(m ModuleBuilder, name string, sig Signature) (MethodHandle, error)

	// Invocation, used by §4.7's Reduced-mode construction to run the
	// sender-named constructor/factory method and (optionally) apply
	// post-construction state.
	InvokeConstructor(c ConstructorHandle, args []any) (any, error)
	InvokeMethod(m MethodHandle, target any, args []any) (any, error)
	ApplyReducedState(target any, state any) error
}

// AssemblyBuilder, ModuleBuilder are the dynamic-definition surfaces
// returned by DefineDynamicAssembly/DefineDynamicModule.
type AssemblyBuilder interface {
	Handle() AssemblyHandle
}

// ModuleBuilder exposes the creation primitives of §6.3: define_type,
// define_nested_type, and (indirectly, via the returned TypeBuilder)
// define_field/method/constructor/property/event/generic_parameters.
type ModuleBuilder interface {
	Handle() ModuleHandle
	DefineType(name string, kind TypeDefKind, attrs TypeInfoFlags, parent TypeHandle) (TypeBuilder, error)
}

// TypeBuilder is the façade surface for populating a PickledType::Def
// (§3 lifecycle stages 1-4).
type TypeBuilder interface {
	Handle() TypeHandle
	DefineNestedType(name string, kind TypeDefKind, attrs TypeInfoFlags) (TypeBuilder, error)
	DefineField(name string, fieldType TypeHandle, attrs TypeInfoFlags) (FieldHandle, error)
	DefineMethod(name string, sig Signature) (MethodBuilder, error)
	DefineConstructor(sig Signature) (MethodBuilder, error)
	DefineProperty(name string, sig Signature) (PropertyHandle, error)
	DefineEvent(name string, eventType TypeHandle) (EventHandle, error)
	DefineGenericParameters(names []string) error
	SetParent(parent TypeHandle) error
	AddInterface(iface TypeHandle) error
	DefineMethodOverride(method MethodHandle, declaration MethodHandle) error
	SetCustomAttribute(attr CustomAttribute) error
	CreateType() (TypeHandle, error)
}

// MethodBuilder exposes the IL-emission sink of §4.5/§6.3.
type MethodBuilder interface {
	Handle() MethodHandle
	ILGenerator() ILGenerator
	SetCustomAttribute(attr CustomAttribute) error
}

// ILGenerator is the code-emission sink named in §6.3: declare_local,
// define_label, mark_label, emit(opcode, operand).
type ILGenerator interface {
	DeclareLocal(t TypeHandle, pinned bool) int
	DefineLabel() int
	MarkLabel(label int)
	Emit(op Opcode, operand any) error
}
