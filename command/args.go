package command

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidName reports whether name is usable as a command or system name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ExpectArgs checks the positional argument count. max < 0 means unbounded.
func ExpectArgs(loc location.Location, name string, args []Value, min, max int) error {
	n := len(args)
	switch {
	case max >= 0 && min == max && n != min:
		return errdefs.Parse(&loc, "%q expects %d argument(s), got %d", name, min, n)
	case n < min:
		return errdefs.Parse(&loc, "%q expects at least %d argument(s), got %d", name, min, n)
	case max >= 0 && n > max:
		return errdefs.Parse(&loc, "%q expects at most %d argument(s), got %d", name, max, n)
	}
	return nil
}

// ExpectKwargs rejects any keyword argument not listed in allowed.
func ExpectKwargs(loc location.Location, name string, kwargs map[string]Value, allowed ...string) error {
	var unknown []string
	for k := range kwargs {
		ok := false
		for _, a := range allowed {
			if a == k {
				ok = true
				break
			}
		}
		if !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errdefs.Parse(&loc, "%q does not accept keyword argument(s) %s", name, strings.Join(unknown, ", "))
}

func ExpectNoArguments(loc location.Location, name string, args []Value, kwargs map[string]Value) error {
	if err := ExpectArgs(loc, name, args, 0, 0); err != nil {
		return err
	}
	return ExpectKwargs(loc, name, kwargs)
}

// StringArg returns args[i] as text. Integers and booleans are rendered.
func StringArg(args []Value, i int) string {
	if i >= len(args) {
		return ""
	}
	if args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

// StringArgs renders args[from:] as text.
func StringArgs(args []Value, from int) []string {
	if from >= len(args) {
		return nil
	}
	ret := make([]string, 0, len(args)-from)
	for i := from; i < len(args); i++ {
		ret = append(ret, StringArg(args, i))
	}
	return ret
}

func KwargString(kwargs map[string]Value, key, def string) string {
	v, ok := kwargs[key]
	if !ok || v.IsNull() {
		return def
	}
	return v.String()
}

func KwargBool(loc location.Location, kwargs map[string]Value, key string, def bool) (bool, error) {
	v, ok := kwargs[key]
	if !ok || v.IsNull() {
		return def, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, errdefs.Parse(&loc, "keyword %q expects True or False, got %q", key, v.String())
	}
	return b, nil
}

func KwargInt(loc location.Location, kwargs map[string]Value, key string, def int64) (int64, error) {
	v, ok := kwargs[key]
	if !ok || v.IsNull() {
		return def, nil
	}
	if i, ok := v.AsInt(); ok {
		return i, nil
	}
	if s, ok := v.AsString(); ok {
		if iv := Interpret(s); iv.Kind() == IntKind {
			i, _ := iv.AsInt()
			return i, nil
		}
	}
	return 0, errdefs.Parse(&loc, "keyword %q expects an integer, got %q", key, v.String())
}

// KwargMode reads a permission mode such as mode=0o644.
func KwargMode(loc location.Location, kwargs map[string]Value, key string, def os.FileMode) (os.FileMode, error) {
	i, err := KwargInt(loc, kwargs, key, int64(def))
	if err != nil {
		return 0, err
	}
	if i < 0 || i > 0o7777 {
		return 0, errdefs.Parse(&loc, "keyword %q is not a valid mode: %o", key, i)
	}
	mode := os.FileMode(i & 0o777)
	if i&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if i&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if i&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode, nil
}
