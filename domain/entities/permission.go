package entities

import (
	"github.com/bmatcuk/doublestar/v4"
)

// PermissionMode controls how the gate reacts to a failed membership test.
type PermissionMode string

const (
	// ModeAllow skips the membership test entirely. Used for trusted or
	// unrestricted contexts.
	ModeAllow PermissionMode = "allow"
	// ModeWarn runs the membership test and reports violations, but never
	// blocks the call. Useful for auditing before tightening to deny.
	ModeWarn PermissionMode = "warn"
	// ModeDeny blocks calls whose module/method is not granted.
	ModeDeny PermissionMode = "deny"
)

// ParsePermissionMode converts a string into a PermissionMode.
// The second return value is false for unrecognized input.
func ParsePermissionMode(s string) (PermissionMode, bool) {
	switch PermissionMode(s) {
	case ModeAllow, ModeWarn, ModeDeny:
		return PermissionMode(s), true
	}
	return "", false
}

// Valid reports whether the mode is one of allow, warn, or deny.
func (m PermissionMode) Valid() bool {
	_, ok := ParsePermissionMode(string(m))
	return ok
}

// PermissionSet is an immutable set of grant strings. A grant is either a
// bare module name ("toast", granting every method of the module), a
// module:method pair ("toast:show"), or a glob pattern over either form
// ("toast:*", "ui.*:show"). Pattern matching uses doublestar syntax.
type PermissionSet struct {
	exact    map[string]struct{}
	patterns []string
}

// NewPermissionSet builds a PermissionSet from grant strings. Invalid glob
// patterns are dropped rather than matched literally, mirroring how grant
// compilation treats malformed rules.
func NewPermissionSet(grants ...string) PermissionSet {
	s := PermissionSet{exact: make(map[string]struct{}, len(grants))}
	for _, g := range grants {
		if g == "" {
			continue
		}
		if isPattern(g) {
			if doublestar.ValidatePattern(g) {
				s.patterns = append(s.patterns, g)
			}
			continue
		}
		s.exact[g] = struct{}{}
	}
	return s
}

// Allows reports whether the set grants module:method, either through the
// method-specific grant or a module-wide one.
func (s PermissionSet) Allows(module, method string) bool {
	candidates := [2]string{module, module + ":" + method}
	for _, c := range candidates {
		if _, ok := s.exact[c]; ok {
			return true
		}
		for _, p := range s.patterns {
			if matched, _ := doublestar.Match(p, c); matched {
				return true
			}
		}
	}
	return false
}

// Empty reports whether the set holds no grants at all.
func (s PermissionSet) Empty() bool {
	return len(s.exact) == 0 && len(s.patterns) == 0
}

// Len returns the number of grants in the set.
func (s PermissionSet) Len() int {
	return len(s.exact) + len(s.patterns)
}

func isPattern(g string) bool {
	for i := 0; i < len(g); i++ {
		switch g[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
