package anybox

import (
	"reflect"

	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/registry"
)

const TypeName = "any"

// RegisterType makes "any" and "any@" declarable on r.
func RegisterType(r *registry.Registry) (host.TypeID, error) {
	return r.RegisterRefType(registry.TypeSpec{
		Name:   TypeName,
		Flags:  host.FlagGC,
		GoType: reflect.TypeOf(Box{}),
		New: func(ti host.TypeInfo) any {
			return New(ti.Host())
		},
		Assign: func(_ host.TypeInfo, dst, src any) {
			dst.(*Box).Assign(src.(*Box))
		},
	})
}

func typeInfo(h host.Host) host.TypeInfo {
	id, err := h.TypeIDByDecl(TypeName)
	if err != nil {
		return nil
	}
	return h.TypeInfoByID(id)
}
