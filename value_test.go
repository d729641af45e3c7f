package pikala

import (
	"bytes"
	"testing"
)

// noopFacade answers nothing — it only needs to satisfy ReflectionFacade
// for Pickler/Unpickler construction in tests that never touch a
// host-defined type (every value exercised here is a scalar, string,
// array of builtins, or tuple).
type noopFacade struct{}

func (noopFacade) ResolveAssemblyByName(string) (AssemblyHandle, error) { return nil, ErrNotImplemented }
func (noopFacade) CurrentLoadedAssemblies() []AssemblyHandle            { return nil }
func (noopFacade) AssemblyDisplayName(AssemblyHandle) string            { return "" }
func (noopFacade) AssemblyModules(AssemblyHandle) []ModuleHandle        { return nil }
func (noopFacade) ModuleAssembly(ModuleHandle) AssemblyHandle           { return nil }
func (noopFacade) ModuleName(ModuleHandle) string                       { return "" }
func (noopFacade) ResolveModuleByName(AssemblyHandle, string) (ModuleHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) DefineDynamicAssembly(string, bool) (AssemblyBuilder, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) DefineDynamicModule(AssemblyBuilder, string) (ModuleBuilder, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) DefineTypeInModule(ModuleHandle, string, TypeDefKind, TypeInfoFlags) (TypeBuilder, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) ResolveType(ModuleHandle, string) (TypeHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) ResolveTypeLocation(TypeHandle) (ModuleHandle, string, error) {
	return nil, "", ErrNotImplemented
}
func (noopFacade) ResolveNestedType(TypeHandle, string) (TypeHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) GetFieldByName(TypeHandle, string) (FieldHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) GetMethodBySignature(TypeHandle, Signature) (MethodHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) GetPropertyBySignature(TypeHandle, Signature) (PropertyHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) GetEventByName(TypeHandle, string) (EventHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) GetConstructorBySignature(TypeHandle, Signature) (ConstructorHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) TypeOf(any) TypeHandle { return nil }
func (noopFacade) ClassifyType(TypeHandle) (*TypeInfo, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) TypeFlags(TypeHandle) TypeInfoFlags            { return 0 }
func (noopFacade) TypeSerializedFields(TypeHandle) []FieldHandle { return nil }
func (noopFacade) FieldType(FieldHandle) TypeHandle              { return nil }
func (noopFacade) FieldName(FieldHandle) string                  { return "" }
func (noopFacade) IsEnum(TypeHandle) bool                        { return false }
func (noopFacade) EnumUnderlyingCode(TypeHandle) IntegerCode     { return IntCodeInt32 }
func (noopFacade) IsDelegate(TypeHandle) bool                    { return false }
func (noopFacade) IsAssignableTo(TypeHandle, TypeHandle) bool    { return false }
func (noopFacade) DefineModuleLevelMethod(ModuleBuilder, string, Signature) (MethodHandle, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) InvokeConstructor(ConstructorHandle, []any) (any, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) InvokeMethod(MethodHandle, any, []any) (any, error) {
	return nil, ErrNotImplemented
}
func (noopFacade) ApplyReducedState(any, any) error { return ErrNotImplemented }

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	var buf bytes.Buffer
	p := NewPickler(noopFacade{})
	if err := p.Pickle(&buf, v); err != nil {
		t.Fatalf("pickle: %v", err)
	}
	u := NewUnpickler(noopFacade{})
	got, err := u.Unpickle(&buf)
	if err != nil {
		t.Fatalf("unpickle: %v", err)
	}
	return got
}

func TestPickleUnpickleScalars(t *testing.T) {
	cases := []any{
		true, false,
		int8(-5), uint8(5),
		int16(-1000), uint16(1000),
		int32(-100000), uint32(100000),
		int64(-1 << 40), uint64(1 << 40),
		float32(3.5), float64(2.718281828),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if got != v {
			t.Errorf("got %v (%T), want %v (%T)", got, got, v, v)
		}
	}
}

func TestPickleUnpickleNil(t *testing.T) {
	got := roundTrip(t, nil)
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestPickleUnpickleString(t *testing.T) {
	got := roundTrip(t, "hello, pikala")
	if got.(string) != "hello, pikala" {
		t.Errorf("got %q", got)
	}
}

func TestPickleUnpickleArrayFastPath(t *testing.T) {
	arr := &ArrayValue{
		ElementType: builtinInt32,
		Elements:    []any{int32(1), int32(2), int32(3)},
	}
	got := roundTrip(t, arr).(*ArrayValue)
	for i, want := range []int32{1, 2, 3} {
		if got.Elements[i].(int32) != want {
			t.Errorf("element %d: got %v want %d", i, got.Elements[i], want)
		}
	}
}

func TestPickleUnpickleSharedArrayReference(t *testing.T) {
	inner := &ArrayValue{ElementType: builtinInt32, Elements: []any{int32(9)}}
	outer := &ArrayValue{
		ElementType: builtinObject,
		Elements:    []any{inner, inner},
	}

	var buf bytes.Buffer
	p := NewPickler(noopFacade{})
	if err := p.Pickle(&buf, outer); err != nil {
		t.Fatal(err)
	}
	u := NewUnpickler(noopFacade{})
	gotAny, err := u.Unpickle(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got := gotAny.(*ArrayValue)
	a := got.Elements[0].(*ArrayValue)
	b := got.Elements[1].(*ArrayValue)
	if a != b {
		t.Error("expected the two occurrences to decode to the same memoized instance")
	}
}

func TestPickleUnpickleTuple(t *testing.T) {
	tv := &TupleValue{
		ElementTypes: []TypeHandle{builtinInt32, builtinString},
		Elements:     []any{int32(7), "seven"},
	}
	got := roundTrip(t, tv).(*TupleValue)
	if got.Elements[0].(int32) != 7 || got.Elements[1].(string) != "seven" {
		t.Errorf("got %+v", got)
	}
}

func TestPersistentIDRoundTrip(t *testing.T) {
	const key = "db-row-42"
	var resolved any = &ArrayValue{ElementType: builtinInt32, Elements: []any{int32(1)}}

	var buf bytes.Buffer
	p := NewPicklerWithConfig(noopFacade{}, PicklerConfig{
		PersistentID: func(v any) (string, bool) {
			if _, ok := v.(*ArrayValue); ok {
				return key, true
			}
			return "", false
		},
	})
	if err := p.Pickle(&buf, resolved); err != nil {
		t.Fatal(err)
	}

	u := NewUnpicklerWithConfig(noopFacade{}, UnpicklerConfig{
		PersistentLoad: func(id string) (any, error) {
			if id != key {
				t.Fatalf("got id %q, want %q", id, key)
			}
			return resolved, nil
		},
	})
	got, err := u.Unpickle(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.(*ArrayValue) != resolved {
		t.Error("expected PersistentLoad's returned instance back")
	}
}

func TestTypeRefValueRoundTrip(t *testing.T) {
	got := roundTrip(t, TypeRefValue{Handle: builtinString}).(TypeRefValue)
	if got.Handle.(builtinHandle) != builtinString {
		t.Errorf("got %v, want builtinString", got.Handle)
	}
}
