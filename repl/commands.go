package repl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cvet/scriptcore/anybox"
	"github.com/cvet/scriptcore/dict"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/typed"
)

var (
	HelpAny      = errors.New("any NAME")
	HelpStore    = errors.New("store NAME VALUE [TYPE]")
	HelpRetrieve = errors.New("retrieve NAME [TYPE]")
	HelpDict     = errors.New("dict NAME dict<KEY,VALUE>")
	HelpSet      = errors.New("set NAME KEY VALUE")
	HelpGet      = errors.New("get NAME KEY")
	HelpDel      = errors.New("del NAME KEY")
	HelpList     = errors.New("list NAME")
	HelpSize     = errors.New("size NAME")
	HelpHString  = errors.New(`hstring "TEXT" | hstring HASH`)
	HelpRelease  = errors.New("release NAME")
	HelpGC       = errors.New("gc")
)

var helps = []error{
	HelpAny, HelpStore, HelpRetrieve,
	HelpDict, HelpSet, HelpGet, HelpDel, HelpList, HelpSize,
	HelpHString, HelpRelease, HelpGC,
}

var ErrNotConvertible = errors.New("stored value does not convert")

func (repl *REPL) bind(name string, obj host.Collectable) {
	if old, ok := repl.vars[name]; ok {
		old.Release()
	}
	repl.vars[name] = obj
}

func (repl *REPL) box(name string) (*anybox.Box, error) {
	v, err := repl.lookup(name)
	if err != nil {
		return nil, err
	}
	b, ok := v.(*anybox.Box)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an any", ErrWrongVar, name)
	}
	return b, nil
}

func (repl *REPL) dict(name string) (*dict.Dict, error) {
	v, err := repl.lookup(name)
	if err != nil {
		return nil, err
	}
	d, ok := v.(*dict.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a dict", ErrWrongVar, name)
	}
	return d, nil
}

func (repl *REPL) CommandAny(args []string) (string, error) {
	if len(args) != 1 {
		return "", HelpAny
	}
	repl.bind(args[0], repl.Runtime.NewAny())
	return "", nil
}

func (repl *REPL) CommandStore(args []string) (string, error) {
	if len(args) != 2 && len(args) != 3 {
		return "", HelpStore
	}
	b, err := repl.box(args[0])
	if err != nil {
		return "", err
	}
	var ref any
	var id host.TypeID
	if len(args) == 3 {
		if id, err = repl.Runtime.Host().TypeIDByDecl(args[2]); err != nil {
			return "", err
		}
		switch {
		case id.IsObject():
		case id == host.TypeBool, id == host.TypeInt64, id == host.TypeDouble:
		default:
			return "", script_errors.ErrInvalidTypeID
		}
		ref, err = repl.literal(id, args[1])
	} else {
		ref, id, err = repl.infer(args[1])
	}
	if err != nil {
		return "", err
	}
	b.Store(ref, id)
	return "", nil
}

func (repl *REPL) CommandRetrieve(args []string) (string, error) {
	if len(args) != 1 && len(args) != 2 {
		return "", HelpRetrieve
	}
	b, err := repl.box(args[0])
	if err != nil {
		return "", err
	}
	if len(args) == 1 {
		return repl.format(b.Value()), nil
	}
	switch args[1] {
	case "int", "int64":
		var n int64
		if !b.RetrieveInt(&n) {
			return "", ErrNotConvertible
		}
		return strconv.FormatInt(n, 10), nil
	case "double":
		var f float64
		if !b.RetrieveFloat(&f) {
			return "", ErrNotConvertible
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	h := repl.Runtime.Host()
	id, err := h.TypeIDByDecl(args[1])
	if err != nil {
		return "", err
	}
	ref, done := repl.scratch(id)
	defer done()
	if !b.Retrieve(ref, id) {
		return "", ErrNotConvertible
	}
	return repl.format(typed.Borrow(h, ref, id)), nil
}

func (repl *REPL) CommandDict(args []string) (string, error) {
	if len(args) < 2 {
		return "", HelpDict
	}
	d, err := repl.Runtime.NewDict(strings.Join(args[1:], ""))
	if err != nil {
		return "", err
	}
	repl.bind(args[0], d)
	return "", nil
}

func (repl *REPL) CommandSet(args []string) (string, error) {
	if len(args) != 3 {
		return "", HelpSet
	}
	d, err := repl.dict(args[0])
	if err != nil {
		return "", err
	}
	key, err := repl.literal(d.KeyTypeID(), args[1])
	if err != nil {
		return "", err
	}
	val, err := repl.literal(d.ValueTypeID(), args[2])
	if err != nil {
		return "", err
	}
	d.Set(key, val)
	return "", nil
}

func (repl *REPL) CommandGet(args []string) (string, error) {
	if len(args) != 2 {
		return "", HelpGet
	}
	d, err := repl.dict(args[0])
	if err != nil {
		return "", err
	}
	key, err := repl.literal(d.KeyTypeID(), args[1])
	if err != nil {
		return "", err
	}
	ref, done := repl.scratch(d.ValueTypeID())
	defer done()
	if err = d.Get(key, ref); err != nil {
		return "", err
	}
	return repl.format(typed.Borrow(repl.Runtime.Host(), ref, d.ValueTypeID())), nil
}

func (repl *REPL) CommandDel(args []string) (string, error) {
	if len(args) != 2 {
		return "", HelpDel
	}
	d, err := repl.dict(args[0])
	if err != nil {
		return "", err
	}
	key, err := repl.literal(d.KeyTypeID(), args[1])
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(d.Remove(key)), nil
}

func (repl *REPL) CommandList(args []string) (string, error) {
	if len(args) != 1 {
		return "", HelpList
	}
	d, err := repl.dict(args[0])
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, d.Size())
	for k, v := range d.All() {
		lines = append(lines, repl.format(k)+": "+repl.format(v))
	}
	return strings.Join(lines, "\n"), nil
}

func (repl *REPL) CommandSize(args []string) (string, error) {
	if len(args) != 1 {
		return "", HelpSize
	}
	d, err := repl.dict(args[0])
	if err != nil {
		return "", err
	}
	return strconv.Itoa(d.Size()), nil
}

func (repl *REPL) CommandHString(args []string) (string, error) {
	if len(args) != 1 {
		return "", HelpHString
	}
	if strings.HasPrefix(args[0], `"`) {
		hs, err := repl.Runtime.MakeHString(unquote(args[0]))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%#016x", hs.Hash()), nil
	}
	hash, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return "", HelpHString
	}
	hs, err := repl.Runtime.ResolveHString(hash)
	if err != nil {
		return "", err
	}
	return strconv.Quote(hs.String()), nil
}

func (repl *REPL) CommandRelease(args []string) (string, error) {
	if len(args) != 1 {
		return "", HelpRelease
	}
	v, err := repl.lookup(args[0])
	if err != nil {
		return "", err
	}
	delete(repl.vars, args[0])
	v.Release()
	return "", nil
}

func (repl *REPL) CommandGC(args []string) (string, error) {
	if len(args) != 0 {
		return "", HelpGC
	}
	n := repl.Runtime.Collect()
	return fmt.Sprintf("%d destroyed, %d tracked", n, repl.Runtime.Tracker().Len()), nil
}

func (repl *REPL) CommandHelp() string {
	lines := make([]string, len(helps))
	for i, h := range helps {
		lines[i] = h.Error()
	}
	return strings.Join(lines, "\n")
}
