package repl

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cvet/scriptcore/anybox"
	"github.com/cvet/scriptcore/dict"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/ids"
	"github.com/cvet/scriptcore/typed"
)

var (
	ErrBadLiteral = errors.New("bad literal")
	ErrNoVar      = errors.New("no such variable")
	ErrWrongVar   = errors.New("variable of another type")
)

func unquote(text string) string {
	if len(text) >= 2 && text[0] == '"' {
		if s, err := strconv.Unquote(text); err == nil {
			return s
		}
	}
	return text
}

func (repl *REPL) typeOf(obj host.Collectable) host.TypeID {
	switch o := obj.(type) {
	case *anybox.Box:
		return repl.anyH.Bare()
	case *dict.Dict:
		return o.TypeInfo().TypeID()
	}
	return host.TypeVoid
}

func (repl *REPL) lookup(name string) (host.Collectable, error) {
	obj, ok := repl.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoVar, name)
	}
	return obj, nil
}

// scalar returns a zeroed variable of the primitive's width.
func scalar(size int) any {
	switch size {
	case 1:
		return new(uint8)
	case 2:
		return new(uint16)
	case 4:
		return new(uint32)
	default:
		return new(uint64)
	}
}

func parsePrimitive(id host.TypeID, size int, text string) (any, error) {
	var bits uint64
	var err error
	switch id {
	case host.TypeVoid:
		return nil, ErrBadLiteral
	case host.TypeBool:
		var b bool
		if b, err = strconv.ParseBool(text); b {
			bits = 1
		}
	case host.TypeInt8, host.TypeInt16, host.TypeInt32, host.TypeInt64:
		var n int64
		n, err = strconv.ParseInt(text, 0, size*8)
		bits = uint64(n)
	case host.TypeUint8, host.TypeUint16, host.TypeUint32, host.TypeUint64:
		bits, err = strconv.ParseUint(text, 0, size*8)
	case host.TypeFloat:
		var f float64
		f, err = strconv.ParseFloat(text, 32)
		bits = uint64(math.Float32bits(float32(f)))
	case host.TypeDouble:
		var f float64
		f, err = strconv.ParseFloat(text, 64)
		bits = math.Float64bits(f)
	default:
		// enum
		var n int64
		n, err = strconv.ParseInt(text, 0, 32)
		bits = uint64(uint32(int32(n)))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadLiteral, text)
	}
	ref := scalar(size)
	host.StoreBits(ref, size, bits)
	return ref, nil
}

// literal parses text into a ref of type id. Handles name variables.
func (repl *REPL) literal(id host.TypeID, text string) (any, error) {
	h := repl.Runtime.Host()
	if id.IsHandle() {
		var obj any
		if text != "null" {
			v, err := repl.lookup(text)
			if err != nil {
				return nil, err
			}
			if repl.typeOf(v) != id.Bare() {
				return nil, fmt.Errorf("%w: %s", ErrWrongVar, text)
			}
			obj = v
		}
		return &obj, nil
	}
	if id.IsPrimitive() {
		return parsePrimitive(id, h.SizeOfPrimitive(id), text)
	}
	ti := h.TypeInfoByID(id)
	if ti == nil {
		return nil, ErrBadLiteral
	}
	switch ti.Name() {
	case "string":
		s := unquote(text)
		return &s, nil
	case "hstring":
		hs, err := repl.Runtime.MakeHString(unquote(text))
		if err != nil {
			return nil, err
		}
		return &hs, nil
	case "ident":
		n, err := ids.ParseIdent(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadLiteral, text)
		}
		return &n, nil
	case "tick":
		n, err := ids.ParseTick(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadLiteral, text)
		}
		return &n, nil
	}
	return nil, fmt.Errorf("%w: no literal form for %s", ErrBadLiteral, ti.Name())
}

// infer guesses the type of an untyped store argument.
func (repl *REPL) infer(text string) (any, host.TypeID, error) {
	switch {
	case text == "null":
		var obj any
		return &obj, repl.anyH, nil
	case strings.HasPrefix(text, `"`):
		ref, err := repl.literal(repl.stringID(), text)
		return ref, repl.stringID(), err
	case text == "true" || text == "false":
		b := text == "true"
		return &b, host.TypeBool, nil
	}
	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return &n, host.TypeInt64, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return &f, host.TypeDouble, nil
	}
	v, err := repl.lookup(text)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrBadLiteral, text)
	}
	var obj any = v
	return &obj, repl.typeOf(v).Handle(), nil
}

func (repl *REPL) stringID() host.TypeID {
	id, _ := repl.Runtime.Host().TypeIDByDecl("string")
	return id
}

// scratch makes an out ref of type id. done releases what it received.
func (repl *REPL) scratch(id host.TypeID) (ref any, done func()) {
	h := repl.Runtime.Host()
	switch {
	case id.IsHandle():
		obj := new(any)
		return obj, func() {
			if *obj != nil {
				h.ReleaseObject(*obj, h.TypeInfoByID(id))
			}
		}
	case id.IsObject():
		ti := h.TypeInfoByID(id)
		obj := h.CreateObject(ti)
		return obj, func() {
			if obj != nil {
				h.ReleaseObject(obj, ti)
			}
		}
	default:
		return scalar(h.SizeOfPrimitive(id)), func() {}
	}
}

func (repl *REPL) format(v typed.Value) string {
	switch v.Kind() {
	case typed.Primitive:
		return formatPrimitive(v.TypeID(), v.Bits())
	case typed.Handle:
		obj := v.Object()
		if obj == nil {
			return "null"
		}
		for name, known := range repl.vars {
			if host.Identity(known) == host.Identity(obj) {
				return "@" + name
			}
		}
		ti := repl.Runtime.Host().TypeInfoByID(v.TypeID())
		return fmt.Sprintf("%s@%x", ti.Name(), host.Identity(obj))
	case typed.Owned:
		if v.Object() == nil {
			return "null"
		}
		val := reflect.ValueOf(v.Object()).Elem().Interface()
		if s, ok := val.(string); ok {
			return strconv.Quote(s)
		}
		return fmt.Sprint(val)
	}
	return "void"
}

func formatPrimitive(id host.TypeID, bits uint64) string {
	switch id {
	case host.TypeVoid:
		return "void"
	case host.TypeBool:
		return strconv.FormatBool(bits != 0)
	case host.TypeInt8:
		return strconv.FormatInt(int64(int8(bits)), 10)
	case host.TypeInt16:
		return strconv.FormatInt(int64(int16(bits)), 10)
	case host.TypeInt64:
		return strconv.FormatInt(int64(bits), 10)
	case host.TypeUint8, host.TypeUint16, host.TypeUint32, host.TypeUint64:
		return strconv.FormatUint(bits, 10)
	case host.TypeFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(bits))), 'g', -1, 32)
	case host.TypeDouble:
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64)
	}
	// int32 and enums
	return strconv.FormatInt(int64(int32(bits)), 10)
}
