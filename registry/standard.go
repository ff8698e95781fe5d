package registry

import (
	"reflect"

	"github.com/cvet/scriptcore/hstrings"
	"github.com/cvet/scriptcore/ids"
)

// RegisterStandardTypes registers the value types every runtime offers:
// string, hstring, ident and tick.
func (r *Registry) RegisterStandardTypes() error {
	for _, spec := range []TypeSpec{
		{Name: "string", GoType: reflect.TypeOf("")},
		{Name: "hstring", GoType: reflect.TypeOf(hstrings.HString{})},
		{Name: "ident", GoType: reflect.TypeOf(ids.Ident(0))},
		{Name: "tick", GoType: reflect.TypeOf(ids.Tick(0))},
	} {
		if _, err := r.RegisterValueType(spec); err != nil {
			return err
		}
	}
	return nil
}
