package typeman

import "github.com/jmccay-work/cfbc2wasm/cmderr"

// IsSubTypeOf answers a subtype question by walking the *class file*
// hierarchy directly through loader, rather than consulting the cached
// InstanceOFs set — useful before a descriptor has been scanned (spec.md
// §9's cyclic-reference note: descriptor handles exist before layout
// does). A lambda is a subtype only of itself and of the interface it
// implements; otherwise both descriptors must share the same Kind, and
// differently-kinded descriptors are never subtypes of one another.
//
// I/O errors are wrapped as cmderr.IOFailure to preserve the pure-query
// contract spec §7 requires ("I/O surfaced from subtype checks is
// wrapped in an unchecked failure").
func (d *TypeDescriptor) IsSubTypeOf(other *TypeDescriptor, loader ClassFileLoader) (bool, error) {
	if d == other {
		return true, nil
	}
	if d.Kind == KindLambda {
		return other == d.InterfaceType, nil
	}
	if d.Kind != other.Kind {
		return false, nil
	}

	cf, err := loader.Load(d.Name)
	if err != nil {
		return false, cmderr.IOFailure(d.Name, err)
	}
	for cf != nil {
		ok, err := classImplementsOrExtends(cf, other.Name, loader)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		superName := cf.SuperClassName()
		if superName == "" {
			break
		}
		if superName == other.Name {
			return true, nil
		}
		cf, err = loader.Load(superName)
		if err != nil {
			return false, cmderr.IOFailure(superName, err)
		}
	}
	return false, nil
}

func classImplementsOrExtends(cf interface {
	InterfaceNames() ([]string, error)
}, otherTypeName string, loader ClassFileLoader) (bool, error) {
	names, err := cf.InterfaceNames()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == otherTypeName {
			return true, nil
		}
		icf, err := loader.Load(n)
		if err != nil {
			continue
		}
		ok, err := classImplementsOrExtends(icf, otherTypeName, loader)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
