package classfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Loader resolves a dotted or slash-separated class name to its parsed
// class file. It has the same method set as typeman.ClassFileLoader, the
// interface typeman's HierarchyScanner calls through to walk superclass
// and interface chains.
type Loader interface {
	Load(className string) (*ClassFile, error)
}

// DirLoader loads class files from a classpath directory, caching each
// parse keyed by class name. The cache is unsynchronized: a DirLoader must
// not be shared across goroutines without external locking.
type DirLoader struct {
	ClassPath string
	cache     map[string]*ClassFile
}

// NewDirLoader creates a DirLoader rooted at classPath.
func NewDirLoader(classPath string) *DirLoader {
	return &DirLoader{ClassPath: classPath, cache: make(map[string]*ClassFile)}
}

// Load resolves className (slash-separated, e.g. "com/example/Widget") to
// its parsed class file, reading classPath/com/example/Widget.class on
// first request and serving the cache afterward.
func (l *DirLoader) Load(className string) (*ClassFile, error) {
	if cf, ok := l.cache[className]; ok {
		return cf, nil
	}

	path := filepath.Join(l.ClassPath, className+".class")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading class %s: %w", className, err)
	}
	defer f.Close()

	cf, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing class %s: %w", className, err)
	}
	l.cache[className] = cf
	return cf, nil
}
