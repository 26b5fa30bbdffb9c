package typeman

// FunctionName identifies a method uniquely across the hierarchy: the
// declaring class, the method name, and its JVM-style descriptor. Key
// is what funcmgr.Manager and strpool.Pool index on.
type FunctionName struct {
	Owner     string
	Method    string
	Signature string
}

// Key returns the canonical string funcmgr uses to track this function's
// used-ness and v-table/i-table indices.
func (f FunctionName) Key() string {
	return f.Owner + "." + f.Method + f.Signature
}

func (f FunctionName) String() string { return f.Key() }
