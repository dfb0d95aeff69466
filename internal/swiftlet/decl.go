package swiftlet

import "slices"

// builtinProtocols are the standard library protocols types may adopt.
// Only CustomStringConvertible changes behavior; the others are
// synthesized or accepted as markers.
var builtinProtocols = map[string]bool{
	"Equatable":               true,
	"Hashable":                true,
	"Comparable":              true,
	"Codable":                 true,
	"Encodable":               true,
	"Decodable":               true,
	"CaseIterable":            true,
	"Identifiable":            true,
	"Error":                   true,
	"Sendable":                true,
	"CustomStringConvertible": true,
}

// register stores a descriptor under its name and, for nested types, its
// qualified name.
func (in *interp) register(td *typeDesc, qualified string) {
	in.scope.types[td.name] = td
	if qualified != "" && qualified != td.name {
		in.scope.types[qualified] = td
	}
}

func qualify(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}

func (in *interp) declareStruct(d *StructDecl, outer string) {
	td := newTypeDesc(d.Name, structKind)
	td.memberwise = true
	td.conforms = d.Conforms
	statics := in.declareMembers(td, d.Members, qualify(outer, d.Name), false)
	in.checkConformance(td, d.Line)
	in.register(td, qualify(outer, d.Name))
	in.initStatics(td, statics)
}

func (in *interp) declareEnum(d *EnumDecl, outer string) {
	td := newTypeDesc(d.Name, enumKind)
	td.rawType = d.RawType
	td.conforms = d.Conforms

	var next Value
	for _, c := range d.Cases {
		if td.enumCase(c.Name) != nil {
			failCompile(c.Line, "invalid redeclaration of '%s'", c.Name)
		}
		cd := &caseDesc{name: c.Name, assoc: c.Assoc}
		if td.rawType != nil {
			if len(c.Assoc) > 0 {
				failCompile(c.Line, "enum with raw type cannot have cases with arguments")
			}
			cd.raw = in.rawValue(td, c, next)
			if n, ok := cd.raw.(IntVal); ok {
				next = n + 1
			}
		} else if c.Raw != nil {
			failCompile(c.Line, "enum case cannot have a raw value if the enum does not have a raw type")
		}
		td.cases = append(td.cases, cd)
	}

	statics := in.declareMembers(td, d.Members, qualify(outer, d.Name), false)
	in.checkConformance(td, d.Line)
	in.register(td, qualify(outer, d.Name))
	in.initStatics(td, statics)
}

// rawValue computes a case's raw value: explicit, the next integer, or
// the case name for String enums.
func (in *interp) rawValue(td *typeDesc, c *EnumCase, next Value) Value {
	raw := hintName(td.rawType)
	if c.Raw != nil {
		v := in.evalHint(in.global, c.Raw, td.rawType)
		return in.coerce(v, td.rawType, c.Line)
	}
	switch raw {
	case "Int":
		if next == nil {
			return IntVal(0)
		}
		return next
	case "String":
		return StringVal(c.Name)
	}
	failCompile(c.Line, "enum cases require explicit raw values when the raw type is not expressible by integer or string literal")
	return nil
}

func (in *interp) declareProtocol(d *ProtocolDecl) {
	td := newTypeDesc(d.Name, protocolKind)
	td.conforms = d.Inherits
	td.reqs = d.Reqs
	for _, p := range d.Inherits {
		if !builtinProtocols[p] {
			if pd := in.lookupType(p); pd == nil || pd.kind != protocolKind {
				failCompile(d.Line, "cannot find type '%s' in scope", p)
			}
		}
	}
	in.register(td, "")
}

func (in *interp) declareExtension(d *ExtensionDecl) {
	prev := in.lookupType(d.TypeName)
	var td *typeDesc
	switch {
	case prev != nil:
		td = prev.clone()
	case builtinTypeNames[d.TypeName] || d.TypeName == "Range" || d.TypeName == "ClosedRange":
		name := canonicalName(d.TypeName)
		if name == "ClosedRange" {
			name = "Range"
		}
		td = newTypeDesc(name, builtinKind)
	default:
		failCompile(d.Line, "cannot find type '%s' in scope", d.TypeName)
	}
	td.conforms = append(slices.Clip(td.conforms), d.Conforms...)
	statics := in.declareMembers(td, d.Members, td.name, true)
	in.checkConformance(td, d.Line)
	in.register(td, "")
	for name, t := range in.scope.types {
		if prev != nil && t == prev {
			in.scope.types[name] = td
		}
	}
	if d.TypeName != td.name {
		in.scope.types[d.TypeName] = td
	}
	in.initStatics(td, statics)
}

// declareMembers adds the members of a type body or extension to td and
// returns the static stored properties, initialized once td is
// registered.
func (in *interp) declareMembers(td *typeDesc, members []Stmt, qualified string, extension bool) []*VarDecl {
	var statics []*VarDecl
	for _, m := range members {
		switch m := m.(type) {
		case *VarDecl:
			if m.Static {
				statics = append(statics, in.declareStaticVars(td, m)...)
				continue
			}
			in.declareProperties(td, m, extension)
		case *FuncDecl:
			in.declareMethod(td, m, extension)
		case *StructDecl:
			in.declareStruct(m, qualified)
		case *EnumDecl:
			in.declareEnum(m, qualified)
		default:
			failCompile(m.Pos(), "declaration is not supported inside a %s", td.kind)
		}
	}
	return statics
}

func (in *interp) declareProperties(td *typeDesc, d *VarDecl, extension bool) {
	for _, b := range d.Bindings {
		if b.Tuple != nil {
			failCompile(b.Line, "tuple patterns are not supported in property declarations")
		}
		if b.Accessors.Computed() {
			if !d.Mutable {
				failCompile(b.Line, "'let' declarations cannot be computed properties")
			}
			td.computed[b.Name] = &propDesc{name: b.Name, typ: b.Type, acc: b.Accessors}
			continue
		}
		switch {
		case extension:
			failCompile(b.Line, "extensions must not contain stored properties")
		case td.kind == enumKind:
			failCompile(b.Line, "enums must not contain stored properties")
		}
		if td.field(b.Name) != nil {
			failCompile(b.Line, "invalid redeclaration of '%s'", b.Name)
		}
		fd := &fieldDesc{name: b.Name, mutable: d.Mutable, typ: b.Type, init: b.Value}
		if b.Accessors != nil {
			fd.observe = b.Accessors
		}
		td.fields = append(td.fields, fd)
	}
}

func (in *interp) declareMethod(td *typeDesc, f *FuncDecl, extension bool) {
	switch {
	case f.Name == "init":
		td.inits = append(slices.Clip(td.inits), f)
		if !extension {
			td.memberwise = false
		}
	case f.Static:
		td.staticMethods[f.Name] = addDecl(td.staticMethods[f.Name], f)
	default:
		td.methods[f.Name] = addDecl(td.methods[f.Name], f)
	}
}

// addDecl appends f, replacing a method with the same argument labels.
func addDecl(list []*FuncDecl, f *FuncDecl) []*FuncDecl {
	labels := paramLabels(f.Params)
	out := make([]*FuncDecl, 0, len(list)+1)
	for _, d := range list {
		if !sameLabels(paramLabels(d.Params), labels) || !sameParamTypes(d.Params, f.Params) {
			out = append(out, d)
		}
	}
	return append(out, f)
}

func sameParamTypes(a, b []*Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameType(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

func (in *interp) declareStaticVars(td *typeDesc, d *VarDecl) []*VarDecl {
	var stored []*VarBinding
	for _, b := range d.Bindings {
		if b.Accessors.Computed() {
			td.staticComputed[b.Name] = &propDesc{name: b.Name, typ: b.Type, acc: b.Accessors}
			continue
		}
		if b.Value == nil {
			failCompile(b.Line, "'static var' declaration requires an initializer expression or an explicitly stated getter")
		}
		td.staticNames = append(slices.Clip(td.staticNames), b.Name)
		stored = append(stored, b)
	}
	if len(stored) == 0 {
		return nil
	}
	return []*VarDecl{{pos: d.pos, Mutable: d.Mutable, Static: true, Bindings: stored}}
}

// initStatics evaluates static stored properties into their global slots.
func (in *interp) initStatics(td *typeDesc, statics []*VarDecl) {
	for _, d := range statics {
		for _, b := range d.Bindings {
			e := in.global.child()
			e.selfType = td.name
			e.static = true
			v := in.evalHint(e, b.Value, b.Type)
			typ := b.Type
			if typ != nil {
				v = in.coerce(v, typ, b.Line)
			} else {
				typ = typeOfValue(v)
			}
			in.scope.vars[staticKey(td.name, b.Name)] = &binding{val: v, mutable: d.Mutable, typ: typ}
		}
	}
}

// checkConformance verifies that td provides every requirement of the
// protocols it adopts, directly or through protocol extensions.
func (in *interp) checkConformance(td *typeDesc, line int) {
	if td.kind == protocolKind {
		return
	}
	for _, name := range td.conforms {
		if builtinProtocols[name] {
			if name == "CustomStringConvertible" && !in.hasInstanceMember(td, "description") && td.kind != builtinKind {
				failCompile(line, "type '%s' does not conform to protocol '%s'", td.name, name)
			}
			continue
		}
		p := in.lookupType(name)
		if p == nil {
			failCompile(line, "cannot find type '%s' in scope", name)
		}
		if p.kind != protocolKind {
			failCompile(line, "inheritance from non-protocol type '%s'", name)
		}
	}
	for _, p := range in.protocols(td) {
		for _, r := range p.reqs {
			if !in.satisfies(td, r) {
				failCompile(line, "type '%s' does not conform to protocol '%s'", td.name, p.name)
			}
		}
	}
}

func (in *interp) satisfies(td *typeDesc, r *Requirement) bool {
	if r.Func {
		var decls []*FuncDecl
		switch {
		case r.Name == "init":
			decls = td.inits
			if td.memberwise && len(decls) == 0 {
				return true
			}
		case r.Static:
			decls = td.staticMethods[r.Name]
		default:
			decls = in.findMethods(td, r.Name)
		}
		for _, d := range decls {
			if sameLabels(paramLabels(d.Params), r.Labels) {
				return true
			}
		}
		return false
	}
	if r.Static {
		return in.hasStatic(td, r.Name)
	}
	if fd := td.field(r.Name); fd != nil {
		return !r.Settable || fd.mutable
	}
	if p := in.findComputed(td, r.Name); p != nil {
		return !r.Settable || p.acc.Set != nil
	}
	return td.kind == enumKind && r.Name == "rawValue" && td.rawType != nil
}
