package generator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/parser"
)

// DefinitionSuffix is the file extension of system definitions.
const DefinitionSuffix = ".def"

// Node is one system of the forest.
type Node struct {
	Name     string
	File     string
	Base     string
	Records  []*command.ExecRecord
	Parent   *Node
	Children []*Node
}

// Depth is the number of ancestors of n.
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Forest holds the parsed systems, rooted at the systems based on scratch.
type Forest struct {
	log        logr.Logger
	parser     *parser.Parser
	systemsDir string
	nodes      map[string]*Node
	roots      []*Node
}

func NewForest(log logr.Logger, registry *command.Registry, systemsDir string) *Forest {
	return &Forest{
		log:        log,
		parser:     parser.New(registry),
		systemsDir: systemsDir,
		nodes:      map[string]*Node{},
	}
}

// AddSystem parses the definition of name and, recursively, of its bases.
func (f *Forest) AddSystem(name string) (*Node, error) {
	return f.add(strings.TrimSuffix(name, DefinitionSuffix), map[string]struct{}{})
}

func (f *Forest) add(name string, loading map[string]struct{}) (*Node, error) {
	if n, ok := f.nodes[name]; ok {
		return n, nil
	}
	if _, ok := loading[name]; ok {
		return nil, errdefs.Generate(nil, "cyclic base chain through %q", name)
	}
	loading[name] = struct{}{}

	file := filepath.Join(f.systemsDir, name+DefinitionSuffix)
	if fi, err := os.Stat(file); err != nil || fi.IsDir() {
		return nil, errdefs.SystemNotFound(name)
	}
	records, err := f.parser.ParseFile(file)
	if err != nil {
		return nil, err
	}
	n := &Node{Name: name, File: file, Records: records}
	for _, rec := range records {
		if rec.Dependency != "" {
			n.Base = rec.Dependency
			break
		}
	}

	if n.Base != "" {
		parent, err := f.add(n.Base, loading)
		if err != nil {
			return nil, err
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	} else {
		f.roots = append(f.roots, n)
	}
	f.nodes[name] = n
	f.log.V(1).Info("added system", "system", name, "base", n.Base, "commands", len(records))
	return n, nil
}

func (f *Forest) Node(name string) (*Node, bool) {
	n, ok := f.nodes[name]
	return n, ok
}

func (f *Forest) Roots() []*Node {
	return append([]*Node(nil), f.roots...)
}

func (f *Forest) Len() int {
	return len(f.nodes)
}

// Walk returns every node pre-order: each parent precedes its children.
func (f *Forest) Walk() []*Node {
	var ret []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		ret = append(ret, n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range f.roots {
		visit(r)
	}
	return ret
}

// CommandNames lists every command the forest invokes, including commands
// queued through add_hook.
func (f *Forest) CommandNames() []string {
	seen := map[string]struct{}{}
	for _, n := range f.nodes {
		for _, rec := range n.Records {
			seen[rec.Command] = struct{}{}
			if rec.Command == "add_hook" {
				if hooked := command.StringArg(rec.Args, 1); hooked != "" {
					seen[hooked] = struct{}{}
				}
			}
		}
	}
	ret := make([]string, 0, len(seen))
	for name := range seen {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// ListSystems returns the names of every definition in dir.
func ListSystems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DefinitionSuffix) {
			continue
		}
		ret = append(ret, strings.TrimSuffix(e.Name(), DefinitionSuffix))
	}
	sort.Strings(ret)
	return ret, nil
}
