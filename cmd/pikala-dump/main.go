// Command pikala-dump is a diagnostic front-end over the pikala
// package: it reads a stream, prints its header, and, via the
// package's own go-logging output, reports each dynamic type as the
// scheduler's first stage creates it.
//
// It carries no real ReflectionFacade — there is no host type system
// to ask — so decoding past the header only succeeds for streams made
// up of scalars, arrays, tuples, and reduced/auto-object values that
// never actually need a type resolved. Anything that does stops the
// walk and reports where it gave up, which is itself useful: the point
// of the tool is inspecting the wire, not replaying an application.
package main

import (
	"fmt"
	"os"

	"github.com/Ibasa/Pikala"
	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"
)

// nullFacade answers the handful of ReflectionFacade questions that
// can be answered without a host type system, and reports everything
// else as unsupported rather than panicking.
type nullFacade struct{}

func (nullFacade) ResolveAssemblyByName(name string) (pikala.AssemblyHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) CurrentLoadedAssemblies() []pikala.AssemblyHandle { return nil }
func (nullFacade) AssemblyDisplayName(a pikala.AssemblyHandle) string {
	return fmt.Sprintf("%v", a)
}
func (nullFacade) AssemblyModules(a pikala.AssemblyHandle) []pikala.ModuleHandle { return nil }
func (nullFacade) ModuleAssembly(m pikala.ModuleHandle) pikala.AssemblyHandle    { return nil }
func (nullFacade) ModuleName(m pikala.ModuleHandle) string                      { return fmt.Sprintf("%v", m) }
func (nullFacade) ResolveModuleByName(a pikala.AssemblyHandle, name string) (pikala.ModuleHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) DefineDynamicAssembly(name string, collectible bool) (pikala.AssemblyBuilder, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) DefineDynamicModule(asm pikala.AssemblyBuilder, name string) (pikala.ModuleBuilder, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) DefineTypeInModule(m pikala.ModuleHandle, name string, kind pikala.TypeDefKind, attrs pikala.TypeInfoFlags) (pikala.TypeBuilder, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) ResolveType(m pikala.ModuleHandle, name string) (pikala.TypeHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) ResolveTypeLocation(t pikala.TypeHandle) (pikala.ModuleHandle, string, error) {
	return nil, "", pikala.ErrNotImplemented
}
func (nullFacade) ResolveNestedType(outer pikala.TypeHandle, name string) (pikala.TypeHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) GetFieldByName(t pikala.TypeHandle, name string) (pikala.FieldHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) GetMethodBySignature(t pikala.TypeHandle, sig pikala.Signature) (pikala.MethodHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) GetPropertyBySignature(t pikala.TypeHandle, sig pikala.Signature) (pikala.PropertyHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) GetEventByName(t pikala.TypeHandle, name string) (pikala.EventHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) GetConstructorBySignature(t pikala.TypeHandle, sig pikala.Signature) (pikala.ConstructorHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) TypeOf(v any) pikala.TypeHandle { return nil }
func (nullFacade) ClassifyType(t pikala.TypeHandle) (*pikala.TypeInfo, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) TypeFlags(t pikala.TypeHandle) pikala.TypeInfoFlags               { return 0 }
func (nullFacade) TypeSerializedFields(t pikala.TypeHandle) []pikala.FieldHandle    { return nil }
func (nullFacade) FieldType(f pikala.FieldHandle) pikala.TypeHandle                 { return nil }
func (nullFacade) FieldName(f pikala.FieldHandle) string                            { return fmt.Sprintf("%v", f) }
func (nullFacade) IsEnum(t pikala.TypeHandle) bool                                  { return false }
func (nullFacade) EnumUnderlyingCode(t pikala.TypeHandle) pikala.IntegerCode         { return pikala.IntCodeInt32 }
func (nullFacade) IsDelegate(t pikala.TypeHandle) bool                              { return false }
func (nullFacade) IsAssignableTo(t, root pikala.TypeHandle) bool                    { return false }
func (nullFacade) DefineModuleLevelMethod(m pikala.ModuleBuilder, name string, sig pikala.Signature) (pikala.MethodHandle, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) InvokeConstructor(c pikala.ConstructorHandle, args []any) (any, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) InvokeMethod(m pikala.MethodHandle, target any, args []any) (any, error) {
	return nil, pikala.ErrNotImplemented
}
func (nullFacade) ApplyReducedState(target any, state any) error { return pikala.ErrNotImplemented }

func dumpAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("usage: pikala-dump <file>", 1)
	}

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	level := logging.AddModuleLevel(backend)
	level.SetLevel(logging.DEBUG, "")
	logging.SetBackend(level)

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	version, err := pikala.PeekStreamVersion(f)
	if err != nil {
		return cli.Exit(fmt.Sprintf("header: %s", err), 1)
	}
	fmt.Printf("stream version: %s\n", version)

	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		return cli.Exit(err, 1)
	}

	u := pikala.NewUnpickler(nullFacade{})
	v, err := u.Unpickle(f)
	if err != nil {
		fmt.Printf("decode stopped: %s\n", err)
		return nil
	}
	fmt.Printf("decoded: %#v\n", v)
	return nil
}

func main() {
	app := &cli.App{
		Name:      "pikala-dump",
		Usage:     "inspect a pikala stream",
		ArgsUsage: "<file>",
		Action:    dumpAction,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
