package pikala

// TypeDefKind is §6.2's TypeDefKind enum: the low bits name the kind,
// the high bit flags a nested type definition.
type TypeDefKind byte

const (
	KindEnum TypeDefKind = iota
	KindDelegate
	KindStruct
	KindClass
	KindInterface

	kindNestedFlag TypeDefKind = 0x80
)

// Base strips the Nested flag, returning the underlying kind.
func (k TypeDefKind) Base() TypeDefKind { return k &^ kindNestedFlag }

// IsNested reports whether the high bit (Nested) is set.
func (k TypeDefKind) IsNested() bool { return k&kindNestedFlag != 0 }

// CustomAttribute stores an attribute as (constructor, positional_args,
// named_args) rather than a metadata blob layout, per §9 Open Question
// (c); the façade's SetCustomAttribute is responsible for realizing it
// on the host side however that host wants to.
type CustomAttribute struct {
	Constructor    ConstructorHandle
	PositionalArgs []any
	NamedArgs      map[string]any
}

// PickledType is §3's PickledType sum: Ref | ArrayOf | ByRefOf |
// PointerOf | GenericInstance | TVar | MVar | Def.
type PickledType interface {
	isPickledType()
}

// PickledTypeRef names a pre-existing type in a loaded module.
type PickledTypeRef struct {
	Handle TypeHandle
}

// PickledTypeArrayOf: Rank 0 is a vector (SZ array); Rank >= 1 is
// multi-dimensional with arbitrary lower bounds (§3, §4.6). Elem is a
// TypeHandle rather than a PickledType because an element type is just
// as often a builtin or a by-name façade reference as one of this
// sum's own constructors.
type PickledTypeArrayOf struct {
	Elem TypeHandle
	Rank int
}

type PickledTypeByRefOf struct{ Elem TypeHandle }
type PickledTypePointerOf struct{ Elem TypeHandle }

// PickledTypeGenericInstance: Def is a generic type definition, Args
// its type arguments — both TypeHandle for the same reason as ArrayOf.
type PickledTypeGenericInstance struct {
	Def  TypeHandle
	Args []TypeHandle
}

type PickledTypeTVar struct{ Index int }
type PickledTypeMVar struct{ Index int }

// PickledTypeDef is a type to be constructed dynamically (§3 lifecycle:
// created in stage 1, members added in stage 2, IL bodies and method
// overrides in stage 3, finalized in stage 4). No stage applies
// CustomAttributes.
type PickledTypeDef struct {
	Kind          TypeDefKind
	Name          string
	Attrs         TypeInfoFlags
	ParentScope   ModuleHandle
	Parent        TypeHandle
	GenericParams []string

	Fields       []*PickledField
	Methods      []*PickledMethod
	Constructors []*PickledMethod
	Properties   []*PickledProperty
	Events       []*PickledEvent
	Interfaces   []TypeHandle
	Overrides    []MethodOverride

	CustomAttributes []CustomAttribute

	// Populated once the scheduler has run the corresponding stage.
	builder TypeBuilder
	handle  TypeHandle
}

func (PickledTypeRef) isPickledType()             {}
func (PickledTypeArrayOf) isPickledType()         {}
func (PickledTypeByRefOf) isPickledType()         {}
func (PickledTypePointerOf) isPickledType()       {}
func (PickledTypeGenericInstance) isPickledType() {}
func (PickledTypeTVar) isPickledType()            {}
func (PickledTypeMVar) isPickledType()            {}
func (*PickledTypeDef) isPickledType()            {}

// PickledField is §3's PickledMember for fields: a Ref names its
// declaring type plus field name; a Def owns a type and attributes and
// is attached to a PickledTypeDef.
type PickledField struct {
	IsDef bool

	DeclaringType TypeHandle
	Name          string

	FieldType    TypeHandle
	Attrs        TypeInfoFlags
	DefaultValue any

	handle FieldHandle
}

// PickledMethod covers both methods and constructors: a Ref's
// identifying key is its Signature; a Def owns its IL body.
type PickledMethod struct {
	IsDef         bool
	IsConstructor bool

	DeclaringType TypeHandle
	Sig           Signature

	ParamAttrs       []TypeInfoFlags
	DefaultValues    []any
	CustomAttributes []CustomAttribute
	Body             *MethodBody

	handle  MethodHandle
	builder MethodBuilder
}

// PickledProperty keys a Ref by declaring type + signature (§3).
type PickledProperty struct {
	IsDef bool

	DeclaringType TypeHandle
	Sig           Signature

	Getter *PickledMethod
	Setter *PickledMethod

	handle PropertyHandle
}

// PickledEvent keys a Ref by declaring type + event name (§3).
type PickledEvent struct {
	IsDef bool

	DeclaringType TypeHandle
	Name          string
	EventType     TypeHandle

	AddMethod    *PickledMethod
	RemoveMethod *PickledMethod

	handle EventHandle
}

// MethodOverride is one define_method_override pair (§6.3): Method is
// one of the enclosing PickledTypeDef's own Methods, Declaration a Ref
// naming the interface (or base virtual) member it implements.
type MethodOverride struct {
	Method      *PickledMethod
	Declaration *PickledMethod
}

// PickledAssembly is §2's by-reference/by-definition assembly model
// (§4.10's AssemblyOperation dispatches between them).
type PickledAssembly struct {
	IsDef       bool
	DisplayName string
	Collectible bool

	handle AssemblyHandle
}

// PickledModule mirrors PickledAssembly for modules (§4.10).
type PickledModule struct {
	IsDef    bool
	Assembly *PickledAssembly
	Name     string

	handle ModuleHandle
}
