// Defines the Host boundary for scriptcore containers
package host

import (
	"reflect"
	"unsafe"
)

// Refs are Go pointers: to a scalar for primitives, to the instance for
// value objects, to a handle variable for handles.

func pointerOf(ref any) unsafe.Pointer {
	v := reflect.ValueOf(ref)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		panic("scriptcore: ref must be a non-nil pointer")
	}
	return v.UnsafePointer()
}

// LoadBits reads size bytes of the scalar behind ref, zero extended.
func LoadBits(ref any, size int) (bits uint64) {
	p := pointerOf(ref)
	switch size {
	case 0:
	case 1:
		bits = uint64(*(*uint8)(p))
	case 2:
		bits = uint64(*(*uint16)(p))
	case 4:
		bits = uint64(*(*uint32)(p))
	case 8:
		bits = *(*uint64)(p)
	default:
		panic("scriptcore: unsupported primitive size")
	}
	return
}

// StoreBits writes the low size bytes of bits into the scalar behind ref.
func StoreBits(ref any, size int, bits uint64) {
	p := pointerOf(ref)
	switch size {
	case 0:
	case 1:
		*(*uint8)(p) = uint8(bits)
	case 2:
		*(*uint16)(p) = uint16(bits)
	case 4:
		*(*uint32)(p) = uint32(bits)
	case 8:
		*(*uint64)(p) = bits
	default:
		panic("scriptcore: unsupported primitive size")
	}
}

// untyped turns a typed nil held in an interface into a plain nil.
func untyped(obj any) any {
	if obj == nil {
		return nil
	}
	switch v := reflect.ValueOf(obj); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return obj
}

// LoadHandle dereferences a handle variable once. Nil handles load as
// nil, typed or not.
func LoadHandle(ref any) any {
	if p, ok := ref.(*any); ok {
		return untyped(*p)
	}
	v := reflect.ValueOf(ref)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		panic("scriptcore: ref must be a non-nil pointer")
	}
	e := v.Elem()
	if e.Kind() == reflect.Interface && e.IsNil() {
		return nil
	}
	return untyped(e.Interface())
}

// StoreHandle writes obj into the handle variable behind ref.
func StoreHandle(ref any, obj any) {
	obj = untyped(obj)
	if p, ok := ref.(*any); ok {
		*p = obj
		return
	}
	e := reflect.ValueOf(ref).Elem()
	if obj == nil {
		e.Set(reflect.Zero(e.Type()))
		return
	}
	e.Set(reflect.ValueOf(obj))
}

// Identity is a stable address for a handle, 0 for nil.
func Identity(obj any) uintptr {
	if obj == nil {
		return 0
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return v.Pointer()
	}
	return 0
}
