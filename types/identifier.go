package types

import "fmt"

// Identifier is a validated Move identifier: a letter followed by letters,
// digits or underscores, or an underscore followed by at least one of those.
type Identifier string

// NewIdentifier validates s.
func NewIdentifier(s string) (Identifier, error) {
	if !IsValidIdentifier(s) {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	return Identifier(s), nil
}

// MustIdentifier panics if s is not a valid identifier.
func MustIdentifier(s string) Identifier {
	id, err := NewIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

func IsValidIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}
	switch {
	case isAlpha(s[0]):
	case s[0] == '_':
		if len(s) == 1 {
			return false
		}
	default:
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (id Identifier) String() string {
	return string(id)
}
