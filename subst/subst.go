package subst

import (
	"regexp"
	"sort"
	"strings"

	"github.com/thepwagner/clrm/errdefs"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidKey reports whether key may be used as a substitution name.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Store holds the key/value pairs a system's commands substitute into their arguments.
type Store struct {
	values map[string]string
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

func FromMap(m map[string]string) *Store {
	s := New()
	for k, v := range m {
		s.values[k] = v
	}
	return s
}

func (s *Store) Set(key, value string) {
	s.values[key] = value
}

func (s *Store) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Get returns the value of key, or def if key is unset.
func (s *Store) Get(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Store) Delete(key string) {
	delete(s.values, key)
}

func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the stored values.
func (s *Store) Map() map[string]string {
	ret := make(map[string]string, len(s.values))
	for k, v := range s.values {
		ret[k] = v
	}
	return ret
}

func (s *Store) Clone() *Store {
	return FromMap(s.values)
}

func (s *Store) Len() int {
	return len(s.values)
}

// Expand replaces ${KEY} and $KEY placeholders in text. "$$" yields a literal "$".
func (s *Store) Expand(text string) (string, error) {
	if !strings.Contains(text, "$") {
		return text, nil
	}

	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '$' {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(text) {
			return "", errdefs.Substitution(nil, "dangling \"$\" in %q", text)
		}

		switch next := text[i+1]; {
		case next == '$':
			sb.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(text[i+2:], '}')
			if end < 0 {
				return "", errdefs.Substitution(nil, "unterminated \"${\" in %q", text)
			}
			key := text[i+2 : i+2+end]
			if !ValidKey(key) {
				return "", errdefs.Substitution(nil, "invalid substitution name %q in %q", key, text)
			}
			v, ok := s.values[key]
			if !ok {
				return "", errdefs.Substitution(nil, "substitution %q is not defined", key)
			}
			sb.WriteString(v)
			i += 2 + end
		case isKeyStart(next):
			j := i + 1
			for j < len(text) && isKeyByte(text[j]) {
				j++
			}
			key := text[i+1 : j]
			v, ok := s.values[key]
			if !ok {
				return "", errdefs.Substitution(nil, "substitution %q is not defined", key)
			}
			sb.WriteString(v)
			i = j - 1
		default:
			return "", errdefs.Substitution(nil, "invalid placeholder at offset %d in %q", i, text)
		}
	}
	return sb.String(), nil
}

func isKeyStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeyByte(c byte) bool {
	return isKeyStart(c) || (c >= '0' && c <= '9')
}
