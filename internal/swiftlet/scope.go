package swiftlet

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

// binding is a named storage slot. A nil val means declared but not yet
// initialized.
type binding struct {
	val     Value
	mutable bool
	typ     *TypeExpr

	// initSelf marks self inside an initializer.
	initSelf bool
}

// Scope is everything the cells of one lesson have declared: global
// variables and functions, types, protocols and extensions. The zero value
// is not usable; call NewScope.
type Scope struct {
	vars  map[string]*binding
	types map[string]*typeDesc
}

// NewScope returns an empty lesson scope.
func NewScope() *Scope {
	return &Scope{vars: map[string]*binding{}, types: map[string]*typeDesc{}}
}

// Clone returns an independent copy. Values are immutable and type
// descriptors are replaced rather than modified, so copying the binding
// slots is enough.
func (s *Scope) Clone() *Scope {
	c := &Scope{
		vars:  make(map[string]*binding, len(s.vars)),
		types: maps.Clone(s.types),
	}
	for name, b := range s.vars {
		cp := *b
		c.vars[name] = &cp
	}
	return c
}

// Lookup returns the value of a global.
func (s *Scope) Lookup(name string) (Value, bool) {
	b, ok := s.vars[name]
	if !ok || b.val == nil {
		return nil, false
	}
	return b.val, true
}

// Names lists the global variables and functions, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		if !strings.Contains(name, ".") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Types lists the declared types and protocols, sorted.
func (s *Scope) Types() []string {
	names := slices.Collect(maps.Keys(s.types))
	sort.Strings(names)
	return names
}

type typeKind int

const (
	structKind typeKind = iota
	enumKind
	protocolKind
	builtinKind
)

func (k typeKind) String() string {
	switch k {
	case structKind:
		return "struct"
	case enumKind:
		return "enum"
	case protocolKind:
		return "protocol"
	}
	return "type"
}

// fieldDesc is a stored instance property.
type fieldDesc struct {
	name    string
	mutable bool
	typ     *TypeExpr
	init    Expr
	observe *Accessors
}

// propDesc is a computed property.
type propDesc struct {
	name string
	typ  *TypeExpr
	acc  *Accessors
}

type caseDesc struct {
	name  string
	raw   Value
	assoc []*Param
}

// typeDesc describes a struct, enum, protocol or an extended built-in type.
// Descriptors are never modified once stored in a Scope; an extension
// replaces the descriptor with an extended copy.
type typeDesc struct {
	name string
	kind typeKind

	fields   []*fieldDesc
	computed map[string]*propDesc
	methods  map[string][]*FuncDecl
	inits    []*FuncDecl

	// memberwise is false once the struct body declares an init.
	memberwise bool

	staticComputed map[string]*propDesc
	staticMethods  map[string][]*FuncDecl
	staticNames    []string

	cases   []*caseDesc
	rawType *TypeExpr

	conforms []string
	reqs     []*Requirement
}

func newTypeDesc(name string, kind typeKind) *typeDesc {
	return &typeDesc{
		name:           name,
		kind:           kind,
		computed:       map[string]*propDesc{},
		methods:        map[string][]*FuncDecl{},
		staticComputed: map[string]*propDesc{},
		staticMethods:  map[string][]*FuncDecl{},
	}
}

func (t *typeDesc) clone() *typeDesc {
	c := *t
	c.fields = slices.Clone(t.fields)
	c.computed = maps.Clone(t.computed)
	c.methods = maps.Clone(t.methods)
	c.inits = slices.Clone(t.inits)
	c.staticComputed = maps.Clone(t.staticComputed)
	c.staticMethods = maps.Clone(t.staticMethods)
	c.staticNames = slices.Clone(t.staticNames)
	c.cases = slices.Clone(t.cases)
	c.conforms = slices.Clone(t.conforms)
	c.reqs = slices.Clone(t.reqs)
	return &c
}

func (t *typeDesc) field(name string) *fieldDesc {
	for _, f := range t.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (t *typeDesc) enumCase(name string) *caseDesc {
	for _, c := range t.cases {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (t *typeDesc) fieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.name
	}
	return names
}

// staticKey is the global slot of a static stored property.
func staticKey(typeName, name string) string {
	return typeName + "." + name
}

// hasMember reports whether name is an instance or static member.
func (t *typeDesc) hasMember(name string) bool {
	if t.field(name) != nil || t.enumCase(name) != nil {
		return true
	}
	if _, ok := t.computed[name]; ok {
		return true
	}
	if _, ok := t.methods[name]; ok {
		return true
	}
	if _, ok := t.staticComputed[name]; ok {
		return true
	}
	if _, ok := t.staticMethods[name]; ok {
		return true
	}
	if slices.Contains(t.staticNames, name) {
		return true
	}
	for _, r := range t.reqs {
		if r.Name == name {
			return true
		}
	}
	return false
}
