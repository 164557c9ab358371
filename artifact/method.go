package artifact

import "fmt"

// Method is the enumerated HTTP method code used in index entries and the
// staticMethods header bitmask. Zero is reserved so an all-zero record can
// never decode to a valid method.
type Method uint8

const (
	MethodGET Method = iota + 1
	MethodPOST
	MethodPUT
	MethodDELETE
	MethodPATCH
	MethodHEAD
	MethodOPTIONS
	MethodCONNECT
	MethodTRACE

	methodMax = MethodTRACE
)

var methodTokens = [...]string{
	MethodGET:     "GET",
	MethodPOST:    "POST",
	MethodPUT:     "PUT",
	MethodDELETE:  "DELETE",
	MethodPATCH:   "PATCH",
	MethodHEAD:    "HEAD",
	MethodOPTIONS: "OPTIONS",
	MethodCONNECT: "CONNECT",
	MethodTRACE:   "TRACE",
}

// Valid reports whether m is a defined method code.
func (m Method) Valid() bool {
	return m >= MethodGET && m <= methodMax
}

// Token returns the canonical method token. The token doubles as the
// method's pseudo-segment at the root of the trie.
func (m Method) Token() string {
	if !m.Valid() {
		return ""
	}
	return methodTokens[m]
}

func (m Method) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
	return methodTokens[m]
}

// ParseMethod maps a canonical token to its method code.
func ParseMethod(token string) (Method, error) {
	for m := MethodGET; m <= methodMax; m++ {
		if methodTokens[m] == token {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, token)
}

// MethodBit returns the staticMethods bitmask bit for m.
func MethodBit(m Method) uint32 {
	return uint32(1) << uint32(m)
}
