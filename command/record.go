package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thepwagner/clrm/location"
)

// ExecRecord is a command invocation bound to its arguments.
// Dependency is empty unless the command declared a base system.
type ExecRecord struct {
	Location   location.Location `json:"location"`
	Dependency string            `json:"dependency,omitempty"`
	Command    string            `json:"command"`
	Args       []Value           `json:"args"`
	Kwargs     map[string]Value  `json:"kwargs"`
}

func (r *ExecRecord) Copy() *ExecRecord {
	cp := *r
	cp.Args = append([]Value(nil), r.Args...)
	cp.Kwargs = make(map[string]Value, len(r.Kwargs))
	for k, v := range r.Kwargs {
		cp.Kwargs[k] = v
	}
	return &cp
}

func (r *ExecRecord) String() string {
	parts := []string{r.Command}
	for _, a := range r.Args {
		parts = append(parts, fmt.Sprintf("%q", a.String()))
	}
	keys := make([]string, 0, len(r.Kwargs))
	for k := range r.Kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, r.Kwargs[k].String()))
	}
	return strings.Join(parts, " ")
}
