package dict

import (
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/registry"
)

const TemplateName = "dict"

// RegisterTemplate makes "dict<K,V>" declarable on r.
func RegisterTemplate(r *registry.Registry) error {
	return r.RegisterTemplate(registry.TemplateSpec{
		Name:     TemplateName,
		SubTypes: 2,
		Flags:    host.FlagRef | host.FlagGC,
		Callback: TemplateCallback,
		New: func(ti host.TypeInfo) any {
			d, err := New(ti)
			if err != nil {
				return nil
			}
			return d
		},
		Assign: func(_ host.TypeInfo, dst, src any) {
			dst.(*Dict).Assign(src.(*Dict))
		},
	})
}
