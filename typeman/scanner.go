package typeman

import (
	"go.uber.org/zap"

	"github.com/jmccay-work/cfbc2wasm/classfile"
	"github.com/jmccay-work/cfbc2wasm/cmderr"
	"github.com/jmccay-work/cfbc2wasm/funcmgr"
)

// HierarchyScanner is C5: for each descriptor in the registry, computes
// the full instance layout, v-table, i-table, and instanceof set by
// walking superclass and interface chains through the ClassFileLoader,
// consulting funcmgr for used-ness.
type HierarchyScanner struct {
	registry *TypeRegistry
	loader   ClassFileLoader
	funcs    *funcmgr.Manager
}

// NewHierarchyScanner creates a scanner over registry, resolving classes
// through loader and consulting funcs for used-ness.
func NewHierarchyScanner(registry *TypeRegistry, loader ClassFileLoader, funcs *funcmgr.Manager) *HierarchyScanner {
	return &HierarchyScanner{registry: registry, loader: loader, funcs: funcs}
}

// ScanTypeHierarchy is C5's scanTypeHierarchy: scans every registered
// descriptor in creation order. Descriptors created while the scan runs
// (ValueOf calls made as a side effect of resolving an interface or a
// field type, say) are appended to that order and scanned in the same
// pass.
func (s *HierarchyScanner) ScanTypeHierarchy() error {
	for i := 0; i < s.registry.Size(); i++ {
		if err := s.scanOne(s.registry.ordered[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *HierarchyScanner) scanOne(d *TypeDescriptor) error {
	Logger().Debug("scan type hierarchy", zap.String("type", d.Name), zap.String("kind", d.Kind.String()))

	d.Fields = nil
	d.VTable = nil
	d.InstanceOFs = nil
	d.InterfaceMethods = nil
	d.AddInstanceOf(d)

	switch d.Kind {
	case KindPrimitive:
		return nil
	case KindArray:
		if err := s.listStructFields(d, "java/lang/Object", map[string]bool{}); err != nil {
			return err
		}
		d.Fields = append(d.Fields, Field{Name: "value", ValueType: ValueType{Ref: d.NativeArrayType}})
		return nil
	case KindArrayNative:
		d.Fields = append(d.Fields, Field{Name: "value", ValueType: d.ElementType})
		return nil
	case KindLambda:
		if err := s.listStructFields(d, "java/lang/Object", map[string]bool{}); err != nil {
			return err
		}
		d.Fields = append(d.Fields, d.ParamFields...)
		d.AddInterfaceMethod(d.InterfaceType, d.LambdaFunctionName)
		s.funcs.SetITableIndex(FunctionName{
			Owner:     d.InterfaceType.Name,
			Method:    d.InterfaceMethodName,
			Signature: s.samSignature(d.InterfaceType.Name, d.InterfaceMethodName),
		}.Key(), 2)
		return nil
	default: // KindNormal
		if err := s.listInterfaces(d); err != nil {
			return err
		}
		return s.listStructFields(d, d.Name, map[string]bool{})
	}
}

// listStructFields is Walk B: lists the non-static fields of className
// and its superclasses, building fields/vtable bottom-up (most-base
// first). className must not be d's own name on the initial call for
// array/lambda kinds (spec §4.2: "append a single field ... the only
// field carrying element storage" is built by scanOne, not here), but
// for a normal descriptor the initial call passes d's own name.
func (s *HierarchyScanner) listStructFields(d *TypeDescriptor, className string, allNeededFields map[string]bool) error {
	cf, err := s.loader.Load(className)
	if err != nil {
		return cmderr.MissingClass(className)
	}

	if cf.IsInterface() {
		// an interface carries no instance state but must share the object
		// header so a value of this type can be cast through Object.
		d.Fields = append(d.Fields, Field{DeclaringClass: className, Name: FieldVTable, ValueType: ValueType{Code: wasmI32}})
		d.Fields = append(d.Fields, Field{DeclaringClass: className, Name: FieldHashCode, ValueType: ValueType{Code: wasmI32}})
		return nil
	}

	if existing, ok := s.registry.Get(className); ok {
		for name := range existing.NeededFields {
			allNeededFields[name] = true
		}
		d.AddInstanceOf(existing)
	}

	superName := cf.SuperClassName()
	if superName != "" {
		if err := s.listStructFields(d, superName, allNeededFields); err != nil {
			return err
		}
	} else {
		d.Fields = append(d.Fields, Field{DeclaringClass: className, Name: FieldVTable, ValueType: ValueType{Code: wasmI32}})
		d.Fields = append(d.Fields, Field{DeclaringClass: className, Name: FieldHashCode, ValueType: ValueType{Code: wasmI32}})
	}

	for i := range cf.Fields {
		f := &cf.Fields[i]
		if f.IsStatic() || !allNeededFields[f.Name] {
			continue
		}
		vt, err := s.registry.valueTypeOfDescriptor(f.Descriptor)
		if err != nil {
			return err
		}
		d.Fields = append(d.Fields, Field{DeclaringClass: className, Name: f.Name, ValueType: vt})
	}

	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.IsStatic() || m.Name == "<init>" {
			continue
		}
		fn := FunctionName{Owner: className, Method: m.Name, Signature: m.Descriptor}
		s.addOrUpdateVTable(d, fn, false)
	}

	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return err
	}
	for _, ifaceName := range ifaceNames {
		interClassFile, err := s.loader.Load(ifaceName)
		if err != nil {
			continue // an interface that cannot be loaded contributes no default methods
		}
		for i := range interClassFile.Methods {
			m := &interClassFile.Methods[i]
			fn := FunctionName{Owner: ifaceName, Method: m.Name, Signature: m.Descriptor}
			if s.funcs.IsUsed(fn.Key()) {
				s.addOrUpdateVTable(d, fn, true)
			}
		}
	}
	return nil
}

// samSignature looks up the real descriptor of ifaceName's methodName, the
// way the original keys a lambda's i-table slot off
// lambda.getLambdaMethod().signature (TypeManager.java:726) rather than an
// empty signature. Falls back to "" if the interface cannot be loaded or
// declares no method by that name, leaving the index keyed as before.
func (s *HierarchyScanner) samSignature(ifaceName, methodName string) string {
	cf, err := s.loader.Load(ifaceName)
	if err != nil {
		return ""
	}
	for i := range cf.Methods {
		if cf.Methods[i].Name == methodName {
			return cf.Methods[i].Descriptor
		}
	}
	return ""
}

// addOrUpdateVTable is §4.2.2: a linear scan of d's v-table for a slot
// whose method name and signature match fn.
func (s *HierarchyScanner) addOrUpdateVTable(d *TypeDescriptor, fn FunctionName, isDefault bool) {
	idx := -1
	for i, existing := range d.VTable {
		if sameMethod(existing, fn) {
			idx = i
			break
		}
	}

	if idx >= 0 {
		// A same-name/signature slot already exists (an override or a
		// previously recorded default). Only replace its contents when
		// this candidate is not itself a default losing to one already
		// backed by an i-table index (first-default-wins, spec.md Open
		// Question 1) — but the vtable index is recorded for the
		// candidate either way, since both names resolve to the same slot.
		if !isDefault || s.funcs.GetITableIndex(d.VTable[idx]) < 0 {
			s.funcs.MarkUsed(fn.Key())
			d.VTable[idx] = fn.Key()
		}
		s.funcs.SetVTableIndex(fn.Key(), idx+VTableFirstFunctionIndex)
		return
	}

	if s.funcs.IsUsed(fn.Key()) {
		d.VTable = append(d.VTable, fn.Key())
		idx = len(d.VTable) - 1
	}
	if idx >= 0 {
		s.funcs.SetVTableIndex(fn.Key(), idx+VTableFirstFunctionIndex)
	}
}

// sameMethod compares a v-table slot (already a Key()-formatted string)
// against a candidate FunctionName by method name and signature, ignoring
// the declaring class the way the original's FunctionName.equals does
// for override resolution (a subclass override and its parent's slot
// share method name/signature but not owner).
func sameMethod(slotKey string, fn FunctionName) bool {
	suffix := fn.Method + fn.Signature
	if len(slotKey) < len(suffix) {
		return false
	}
	return slotKey[len(slotKey)-len(suffix):] == suffix && slotKey[len(slotKey)-len(suffix)-1:len(slotKey)-len(suffix)] == "."
}

// listInterfaces is Walk A: enumerates every interface reachable from d's
// class file hierarchy, adds each to instanceOFs, and — unless the root
// class is abstract — builds the i-table block for each.
func (s *HierarchyScanner) listInterfaces(d *TypeDescriptor) error {
	interfaceTypes := newOrderedTypeSet()
	interfaceNames := map[string]bool{}
	var classFiles []*classfile.ClassFile

	className := d.Name
	for {
		cf, err := s.loader.Load(className)
		if err != nil {
			return cmderr.MissingClass(className)
		}
		classFiles = append(classFiles, cf)
		if err := s.listInterfaceTypes(d, cf, interfaceTypes, interfaceNames); err != nil {
			return err
		}
		superName := cf.SuperClassName()
		if superName == "" {
			break
		}
		className = superName
	}

	if classFiles[0].IsAbstract() {
		return nil
	}

	for _, ifaceType := range interfaceTypes.items {
		interClassFile, err := s.loader.Load(ifaceType.Name)
		if err != nil {
			continue
		}
		var iMethods []string
		for i := range interClassFile.Methods {
			im := &interClassFile.Methods[i]
			iName := FunctionName{Owner: ifaceType.Name, Method: im.Name, Signature: im.Descriptor}
			if !s.funcs.IsUsed(iName.Key()) {
				continue
			}

			var found *classfile.MethodInfo
			var foundOwner string
			for _, cf := range classFiles {
				if m := cf.FindMethod(im.Name, im.Descriptor); m != nil {
					found = m
					if n, err := cf.ClassName(); err == nil {
						foundOwner = n
					}
					break
				}
			}
			if found == nil {
				for ifName := range interfaceNames {
					icf, err := s.loader.Load(ifName)
					if err != nil {
						continue
					}
					if m := icf.FindMethod(im.Name, im.Descriptor); m != nil {
						found = m
						foundOwner = ifName
						break
					}
				}
			}
			if found == nil {
				return cmderr.MissingImplementation(ifaceType.Name, im.Name+im.Descriptor)
			}

			methodName := FunctionName{Owner: foundOwner, Method: found.Name, Signature: found.Descriptor}
			s.funcs.MarkUsed(methodName.Key())
			d.AddInterfaceMethod(ifaceType, methodName.Key())
			iMethods, _ = d.InterfaceMethodsFor(ifaceType)
			s.funcs.SetITableIndex(iName.Key(), len(iMethods)+1)
		}
	}
	return nil
}

// listInterfaceTypes lists the direct interfaces of cf first, then
// recurses into their super-interfaces — the ordering default-method
// resolution depends on (spec §4.2.1, "depth-later traversal").
func (s *HierarchyScanner) listInterfaceTypes(d *TypeDescriptor, cf *classfile.ClassFile, interfaceTypes *orderedTypeSet, interfaceNames map[string]bool) error {
	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return err
	}

	var later []*classfile.ClassFile
	for _, ifaceName := range ifaceNames {
		if interfaceNames[ifaceName] {
			continue
		}
		interfaceNames[ifaceName] = true

		ifaceType, err := s.registry.ValueOf(ifaceName)
		if err != nil {
			return err
		}
		interfaceTypes.add(ifaceType)
		d.AddInstanceOf(ifaceType)

		interClassFile, err := s.loader.Load(ifaceName)
		if err == nil {
			later = append(later, interClassFile)
		}
	}
	for _, lcf := range later {
		if err := s.listInterfaceTypes(d, lcf, interfaceTypes, interfaceNames); err != nil {
			return err
		}
	}
	return nil
}

type orderedTypeSet struct {
	seen  map[*TypeDescriptor]bool
	items []*TypeDescriptor
}

func newOrderedTypeSet() *orderedTypeSet {
	return &orderedTypeSet{seen: make(map[*TypeDescriptor]bool)}
}

func (o *orderedTypeSet) add(d *TypeDescriptor) {
	if o.seen[d] {
		return
	}
	o.seen[d] = true
	o.items = append(o.items, d)
}
