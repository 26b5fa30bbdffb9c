package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jmccay-work/cfbc2wasm/compiler"
	"github.com/jmccay-work/cfbc2wasm/typeman"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

func main() {
	var (
		classPath = flag.String("classpath", "", "Directory of .class files to scan")
		base      = flag.Uint("base", 0, "Base function index for synthesized routines")
		listOnly  = flag.Bool("list", false, "Print discovered types and exit")
		call      = flag.String("call", "", "Dispatch routine to exercise: callVirtual, callInterface, instanceof, cast")
		this      = flag.String("this", "", "Type name whose metadata blob becomes the receiver for -call")
		argsStr   = flag.String("args", "", "Comma-separated remaining int32 arguments for -call, after the receiver")
		interact  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *classPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: typescan -classpath <dir> [-list]")
		fmt.Fprintln(os.Stderr, "       typescan -classpath <dir> -call callVirtual -this <type> -args <v>")
		fmt.Fprintln(os.Stderr, "       typescan -classpath <dir> -i  (interactive mode)")
		os.Exit(1)
	}

	c, types, mod, err := loadTypes(*classPath, uint32(*base))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interact {
		if err := runInteractive(c, types, mod); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *call != "" {
		if err := callRoutine(c, mod, *call, *this, *argsStr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printSummary(types)
	if *listOnly {
		return
	}
	fmt.Printf("\nUse -call <routine> -this <type> to exercise a dispatch routine, or -i for the browser.\n")
}

// discoverClassNames walks root for .class files and returns each one's
// slash-separated binary name relative to root, the same name shape
// classfile.DirLoader.Load expects.
func discoverClassNames(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, ".class")))
		return nil
	})
	return names, err
}

// loadTypes registers every class file under classPath, runs the full
// scan/synthesize/finish sequence, and returns a browsable summary of the
// resulting descriptors alongside the compiler and module they came from.
func loadTypes(classPath string, base uint32) (*compiler.Compiler, []typeInfo, *wasmtype.Module, error) {
	names, err := discoverClassNames(classPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("walking %s: %w", classPath, err)
	}
	if len(names) == 0 {
		return nil, nil, nil, fmt.Errorf("no .class files found under %s", classPath)
	}

	c := compiler.New(compiler.Options{ClassPath: classPath, BaseFuncIndex: base})
	for _, name := range names {
		if _, err := c.Registry.ValueOf(name); err != nil {
			return nil, nil, nil, fmt.Errorf("registering %s: %w", name, err)
		}
	}

	mod := &wasmtype.Module{}
	if err := c.Run(mod); err != nil {
		return nil, nil, nil, fmt.Errorf("running compiler: %w", err)
	}

	return c, summarize(c), mod, nil
}

type typeInfo struct {
	descriptor *typeman.TypeDescriptor
	name       string
	kind       string
	classIndex int
	vtable     []string
	interfaces []string
	instanceOf []string
}

func summarize(c *compiler.Compiler) []typeInfo {
	var out []typeInfo
	for _, d := range c.Registry.Descriptors() {
		ti := typeInfo{
			descriptor: d,
			name:       d.Name,
			kind:       d.Kind.String(),
			classIndex: d.ClassIndex,
			vtable:     append([]string(nil), d.VTable...),
		}
		for _, entry := range d.InterfaceMethods {
			ti.interfaces = append(ti.interfaces, fmt.Sprintf("%s (%d methods)", entry.Interface.Name, len(entry.Methods)))
		}
		for _, t := range d.InstanceOFs {
			ti.instanceOf = append(ti.instanceOf, t.Name)
		}
		out = append(out, ti)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].classIndex < out[j].classIndex })
	return out
}

func printSummary(types []typeInfo) {
	fmt.Printf("%-6s %-14s %-40s %-6s %-6s\n", "class#", "kind", "name", "vtbl", "itfs")
	for _, t := range types {
		fmt.Printf("%-6d %-14s %-40s %-6d %-6d\n", t.classIndex, t.kind, t.name, len(t.vtable), len(t.interfaces))
	}
}

func findType(types []typeInfo, name string) (typeInfo, bool) {
	for _, t := range types {
		if t.name == name {
			return t, true
		}
	}
	return typeInfo{}, false
}

// callRoutine exercises a single dispatch routine against the real
// metadata image PrepareFinish wrote into mod: thisType's VTableOffset
// becomes the .vtable word of a one-field synthetic instance appended
// after that image, and the remaining -args values are passed through
// unchanged.
func callRoutine(c *compiler.Compiler, mod *wasmtype.Module, routine, thisType, argsStr string) error {
	if len(mod.Data) == 0 {
		return fmt.Errorf("module has no data segment to run against")
	}
	data := append([]byte(nil), mod.Data[0].Init...)

	var rest []int32
	if argsStr != "" {
		for _, s := range strings.Split(argsStr, ",") {
			v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
			if err != nil {
				return fmt.Errorf("parsing -args %q: %w", s, err)
			}
			rest = append(rest, int32(v))
		}
	}

	args := rest
	if thisType != "" {
		d, ok := c.Registry.Get(thisType)
		if !ok {
			return fmt.Errorf("unknown type %q", thisType)
		}
		var addr int32
		data, addr = withInstanceAt(data, int32(d.VTableOffset))
		args = append([]int32{addr}, rest...)
	}

	results, err := runDispatchRoutine(c.Funcs, routine, data, args)
	if err != nil {
		return err
	}
	fmt.Printf("%s(%v) = %v\n", routine, args, results)
	return nil
}
