package registry

import (
	"strings"

	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/script_errors"
)

var primitiveByName = map[string]host.TypeID{
	"void":   host.TypeVoid,
	"bool":   host.TypeBool,
	"int8":   host.TypeInt8,
	"int16":  host.TypeInt16,
	"int":    host.TypeInt32,
	"int32":  host.TypeInt32,
	"int64":  host.TypeInt64,
	"uint8":  host.TypeUint8,
	"uint16": host.TypeUint16,
	"uint":   host.TypeUint32,
	"uint32": host.TypeUint32,
	"uint64": host.TypeUint64,
	"float":  host.TypeFloat,
	"double": host.TypeDouble,
}

var primitiveNames = [...]string{
	host.TypeVoid:   "void",
	host.TypeBool:   "bool",
	host.TypeInt8:   "int8",
	host.TypeInt16:  "int16",
	host.TypeInt32:  "int",
	host.TypeInt64:  "int64",
	host.TypeUint8:  "uint8",
	host.TypeUint16: "uint16",
	host.TypeUint32: "uint",
	host.TypeUint64: "uint64",
	host.TypeFloat:  "float",
	host.TypeDouble: "double",
}

type decl struct {
	name   string
	args   []string
	handle bool
	konst  bool
}

// parseDecl splits "const name<arg, arg>@" into its parts. Template
// arguments may nest.
func parseDecl(s string) (d decl, err error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "const "); ok {
		d.konst = true
		s = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(s, "@"); ok {
		d.handle = true
		s = strings.TrimSpace(rest)
	}
	open := strings.IndexByte(s, '<')
	if open < 0 {
		d.name = s
		if d.name == "" || strings.ContainsAny(d.name, ">,@ ") {
			err = script_errors.ErrBadDecl
		}
		return
	}
	if !strings.HasSuffix(s, ">") {
		return d, script_errors.ErrBadDecl
	}
	d.name = strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	depth, from := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return d, script_errors.ErrBadDecl
			}
		case ',':
			if depth == 0 {
				d.args = append(d.args, strings.TrimSpace(inner[from:i]))
				from = i + 1
			}
		}
	}
	if depth != 0 {
		return d, script_errors.ErrBadDecl
	}
	d.args = append(d.args, strings.TrimSpace(inner[from:]))
	for _, a := range d.args {
		if a == "" {
			return d, script_errors.ErrBadDecl
		}
	}
	if d.name == "" {
		err = script_errors.ErrBadDecl
	}
	return
}

// Decl renders a type id back into its canonical declaration.
func (r *Registry) Decl(id host.TypeID) string {
	bare := id.Bare()
	var name string
	if !bare.IsObject() && int(bare) < len(primitiveNames) {
		name = primitiveNames[bare]
	} else if t, ok := r.byID.Load(bare); ok {
		name = t.name
	} else {
		return "?"
	}
	if id.IsHandle() {
		name += "@"
		if id&host.TypeHandleToConst != 0 {
			name = "const " + name
		}
	}
	return name
}
