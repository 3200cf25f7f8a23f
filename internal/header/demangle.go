package header

import "strings"

// Demangle best-effort demangles a C++ (Itanium ABI) or Rust (legacy)
// mangled symbol name, falling back to the mangled name unchanged when it
// doesn't recognize the shape. This recovers a feature the distillation
// dropped: the original always showed demangled names in its symbol list.
// There is no demangling library anywhere in the retrieved corpus, so this
// is a small dependency-free approximation rather than a full implementation
// of either ABI: it recovers readable names for the common "_ZN...E" and
// "_Z...v"-style cases without attempting templates, substitutions, or
// qualifiers.
func Demangle(name string) string {
	if d, ok := demangleRustLegacy(name); ok {
		return d
	}
	if d, ok := demangleItanium(name); ok {
		return d
	}
	return name
}

// demangleRustLegacy handles the legacy Rust shape (v0 "_R..." names are
// not recognized):
// _ZN<len><segment><len><segment>...17h<16 hex digits>E
func demangleRustLegacy(name string) (string, bool) {
	s := name
	if strings.HasPrefix(s, "_ZN") {
		s = s[3:]
	} else if strings.HasPrefix(s, "ZN") {
		s = s[2:]
	} else {
		return "", false
	}
	if !strings.HasSuffix(s, "E") {
		return "", false
	}
	s = s[:len(s)-1]

	segs, ok := splitLengthPrefixed(s)
	if !ok || len(segs) == 0 {
		return "", false
	}
	last := segs[len(segs)-1]
	if len(last) == 17 && strings.HasPrefix(last, "h") && isHex(last[1:]) {
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 {
		return "", false
	}
	return strings.Join(segs, "::"), true
}

// splitLengthPrefixed splits a run of <decimal-length><chars> segments, the
// shape both Itanium and legacy Rust mangling use for nested names.
func splitLengthPrefixed(s string) ([]string, bool) {
	var out []string
	for len(s) > 0 {
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return nil, false
		}
		n := 0
		for _, c := range s[:i] {
			n = n*10 + int(c-'0')
		}
		s = s[i:]
		if n <= 0 || n > len(s) {
			return nil, false
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out, true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// demangleItanium handles the common Itanium shape: _Z<len><name>[<len><name>...][E]<args>
// It recovers the qualified function name and drops the argument/return
// encoding, which is the part most readers actually want out of a symbol
// list.
func demangleItanium(name string) (string, bool) {
	s := name
	if strings.HasPrefix(s, "_Z") {
		s = s[2:]
	} else {
		return "", false
	}
	if len(s) == 0 {
		return "", false
	}

	if s[0] == 'N' {
		s = s[1:]
		// Skip CV-qualifiers and ref-qualifiers before the nested-name body.
		for len(s) > 0 && strings.ContainsRune("rVKRO", rune(s[0])) {
			s = s[1:]
		}
		end := strings.IndexByte(s, 'E')
		if end < 0 {
			return "", false
		}
		body := s[:end]
		segs, ok := splitLengthPrefixed(body)
		if !ok || len(segs) == 0 {
			return "", false
		}
		return strings.Join(segs, "::"), true
	}

	// Unqualified: a single length-prefixed identifier followed by its
	// argument encoding, which we discard.
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", false
	}
	n := 0
	for _, c := range s[:i] {
		n = n*10 + int(c-'0')
	}
	s = s[i:]
	if n <= 0 || n > len(s) {
		return "", false
	}
	return s[:n], true
}
