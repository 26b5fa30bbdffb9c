package typeman

import (
	"fmt"
	"strings"
)

// LambdaType is C4's lambdaType: returns, idempotently, the descriptor
// for a single closure-conversion call site.
//
// implOwner/implName/implDescriptor identify the synthetic method the
// lambda wrapper tail-calls. factorySignature is the invokedynamic call
// site's descriptor: its parameter types become captured fields, its
// return type names the interface being implemented. interfaceMethodName
// is the single interface method the wrapper realizes.
//
// The key is implOwner + "$$" + implName + "/" + factorySignature
// rather than the original's abs(hash(implName)) scheme: spec.md flags
// the hash key as collision-prone for two lambdas sharing an owner and
// implementation name, and explicitly invites keying on the call site's
// signature instead (see Open Question 2).
func (r *TypeRegistry) LambdaType(implOwner, implName, implDescriptor, factorySignature, interfaceMethodName string) (*TypeDescriptor, error) {
	r.ensurePrimitives()

	key := implOwner + "$$" + implName + "/" + factorySignature
	if d, ok := r.byName[key]; ok {
		return d, nil
	}

	if err := r.checkOpen(key); err != nil {
		return nil, err
	}

	paramDescriptors, returnDescriptor, err := splitMethodDescriptor(factorySignature)
	if err != nil {
		return nil, err
	}

	paramFields := make([]Field, 0, len(paramDescriptors))
	for i, pd := range paramDescriptors {
		vt, err := r.valueTypeOfDescriptor(pd)
		if err != nil {
			return nil, err
		}
		paramFields = append(paramFields, Field{Name: fmt.Sprintf("arg$%d", i+1), ValueType: vt})
	}

	if !strings.HasPrefix(returnDescriptor, "L") || !strings.HasSuffix(returnDescriptor, ";") {
		return nil, fmt.Errorf("lambda factory signature %q does not return an object type", factorySignature)
	}
	ifaceType, err := r.ValueOf(returnDescriptor[1 : len(returnDescriptor)-1])
	if err != nil {
		return nil, err
	}

	d := &TypeDescriptor{
		Name:                key,
		Kind:                KindLambda,
		ClassIndex:          r.nextClassIndex,
		ParamFields:         paramFields,
		InterfaceType:       ifaceType,
		InterfaceMethodName: interfaceMethodName,
		ImplFunctionName:    implOwner + "." + implName + implDescriptor,
		LambdaFunctionName:  key + "." + interfaceMethodName,
	}
	r.nextClassIndex++
	r.register(d, key)
	return d, nil
}

// valueTypeOfDescriptor resolves a single field descriptor ("I", "Z",
// "Ljava/lang/String;", "[I", ...) to the ValueType a captured lambda
// parameter or array element is stored as.
func (r *TypeRegistry) valueTypeOfDescriptor(fd string) (ValueType, error) {
	if strings.HasPrefix(fd, "[") {
		elem, err := r.parseArrayElement(fd[1:])
		if err != nil {
			return ValueType{}, err
		}
		arr, err := r.ArrayType(elem)
		if err != nil {
			return ValueType{}, err
		}
		return ValueType{Ref: arr}, nil
	}
	if strings.HasPrefix(fd, "L") && strings.HasSuffix(fd, ";") {
		d, err := r.ValueOf(fd[1 : len(fd)-1])
		if err != nil {
			return ValueType{}, err
		}
		return ValueType{Ref: d}, nil
	}
	name, ok := primitiveFromFieldDescriptor(fd)
	if !ok {
		return ValueType{}, fmt.Errorf("unsupported field descriptor %q", fd)
	}
	return primitiveValueType(name), nil
}

// splitMethodDescriptor splits a JVM method descriptor like
// "(ILjava/lang/String;)Ljava/util/function/Supplier;" into its ordered
// parameter field descriptors and its return field descriptor.
func splitMethodDescriptor(sig string) (params []string, ret string, err error) {
	if !strings.HasPrefix(sig, "(") {
		return nil, "", fmt.Errorf("malformed method descriptor %q", sig)
	}
	i := 1
	for sig[i] != ')' {
		start := i
		for sig[i] == '[' {
			i++
		}
		if sig[i] == 'L' {
			for sig[i] != ';' {
				i++
			}
			i++
		} else {
			i++
		}
		params = append(params, sig[start:i])
	}
	return params, sig[i+1:], nil
}
