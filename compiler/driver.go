// Package compiler sequences the type-and-dispatch phases described by
// typeman into the order the original implementation's driver runs
// them: scan the type hierarchy, synthesize the dispatch routines,
// then finish emission.
package compiler

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jmccay-work/cfbc2wasm/classfile"
	"github.com/jmccay-work/cfbc2wasm/funcmgr"
	"github.com/jmccay-work/cfbc2wasm/strpool"
	"github.com/jmccay-work/cfbc2wasm/typeman"
	"github.com/jmccay-work/cfbc2wasm/wasmtype"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns this package's logger instance, defaulting to a no-op.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures this package's logger.
func SetLogger(l *zap.Logger) { logger = l }

// Options is the ambient configuration for a compilation run: where to
// load class files from, and the base function index new synthetic
// functions are assigned starting from (past whatever user-defined
// functions the (out of scope) code builder has already placed).
type Options struct {
	ClassPath     string
	BaseFuncIndex uint32
}

// Compiler wires together the eight collaborators spec.md names: C1-C3
// (ClassFileLoader, FunctionManager, StringPool) plus C4-C8 (this
// package's dependency, typeman).
type Compiler struct {
	Loader   *classfile.DirLoader
	Funcs    *funcmgr.Manager
	Strings  *strpool.Pool
	Registry *typeman.TypeRegistry

	scanner    *typeman.HierarchyScanner
	dispatcher *typeman.DispatchSynthesizer
	emitter    *typeman.MetadataEmitter
}

// New creates a Compiler rooted at opts.ClassPath.
func New(opts Options) *Compiler {
	loader := classfile.NewDirLoader(opts.ClassPath)
	funcs := funcmgr.New(opts.BaseFuncIndex)
	strings := strpool.New()
	registry := typeman.NewTypeRegistry(loader)

	return &Compiler{
		Loader:     loader,
		Funcs:      funcs,
		Strings:    strings,
		Registry:   registry,
		scanner:    typeman.NewHierarchyScanner(registry, loader, funcs),
		dispatcher: typeman.NewDispatchSynthesizer(funcs),
		emitter:    typeman.NewMetadataEmitter(registry, funcs, strings),
	}
}

// ScanTypeHierarchy runs C5 over every descriptor currently registered.
// The (out of scope) code builder is expected to have resolved every
// type and marked every used method/field before this is called.
func (c *Compiler) ScanTypeHierarchy() error {
	Logger().Info("scanning type hierarchy", zap.Int("types", c.Registry.Size()))
	return c.scanner.ScanTypeHierarchy()
}

// SynthesizeDispatchRoutines runs C6, producing and registering
// callVirtual, callInterface, instanceof, and cast.
func (c *Compiler) SynthesizeDispatchRoutines() error {
	if err := c.dispatcher.CallVirtual(); err != nil {
		return err
	}
	if err := c.dispatcher.CallInterface(); err != nil {
		return err
	}
	if err := c.dispatcher.InstanceOf(); err != nil {
		return err
	}
	return c.dispatcher.Cast()
}

// PrepareFinish runs C7 then C8 against mod: latches the registry,
// writes struct TypeDefs and metadata blobs, assigns block-type codes,
// writes the type table, and registers the type-table accessor.
func (c *Compiler) PrepareFinish(mod *wasmtype.Module) error {
	Logger().Info("preparing finish", zap.Int("types", c.Registry.Size()))
	if err := c.emitter.PrepareFinish(mod); err != nil {
		return err
	}
	return c.emitter.TypeTableAccessor()
}

// Run executes the full phase sequence §2's data-flow paragraph
// describes: scan, synthesize, finish. mod accumulates the type
// descriptors' struct definitions, metadata blobs, and type table; the
// caller is responsible for the remaining module sections (imports,
// user-defined function bodies, exports) that lie outside this
// subsystem's scope.
func (c *Compiler) Run(mod *wasmtype.Module) error {
	if err := c.ScanTypeHierarchy(); err != nil {
		return err
	}
	if err := c.SynthesizeDispatchRoutines(); err != nil {
		return err
	}
	return c.PrepareFinish(mod)
}
