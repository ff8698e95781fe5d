package dict

import (
	"fmt"

	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/script_errors"
)

// CheckInstantiation validates a key/value pair before the first dict of
// that pair exists. needGC is false only when neither side can ever hold
// a reference leading back to the dict.
func CheckInstantiation(h host.Host, keyID, valueID host.TypeID) (needGC bool, err error) {
	for _, id := range [2]host.TypeID{keyID, valueID} {
		cyclic, err := checkSubtype(h, id)
		if err != nil {
			return false, err
		}
		needGC = needGC || cyclic
	}
	return needGC, nil
}

func checkSubtype(h host.Host, id host.TypeID) (cyclic bool, err error) {
	if id == host.TypeVoid {
		return false, script_errors.ErrVoidSubtype
	}
	if !id.IsObject() {
		return false, nil
	}
	ti := h.TypeInfoByID(id)
	if ti == nil {
		return false, fmt.Errorf("%w: id %d", script_errors.ErrUnknownType, id)
	}
	flags := ti.Flags()
	if !id.IsHandle() {
		switch {
		case flags.Has(host.FlagValue) && !flags.Has(host.FlagPOD):
			if !ti.HasDefaultConstructor() {
				return false, script_errors.ErrNoDefaultConstructor
			}
		case flags.Has(host.FlagRef):
			if h.DisallowValueAssignForRefType() || !ti.HasDefaultFactory() {
				return false, script_errors.ErrNoDefaultFactory
			}
		}
		return flags.Has(host.FlagGC), nil
	}
	if flags.Has(host.FlagGC) {
		return true, nil
	}
	// a non-final script class may have collected descendants
	if flags.Has(host.FlagScriptObject) {
		return !flags.Has(host.FlagNoInherit), nil
	}
	return false, nil
}

// TemplateCallback adapts CheckInstantiation to a registry template.
func TemplateCallback(ti host.TypeInfo) (needGC bool, err error) {
	needGC, err = CheckInstantiation(ti.Host(), ti.SubTypeID(0), ti.SubTypeID(1))
	if err != nil {
		ti.Host().Logger().Error("dict instantiation rejected", "type", ti.Name(), "err", err)
	}
	return
}
