// Package mapping converts decoded document values into caller types.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidTarget indicates the target is not a non-nil pointer.
	ErrInvalidTarget = errors.New("mapping: target must be a non-nil pointer")

	// ErrIncompatible indicates the value cannot be represented as the target type.
	ErrIncompatible = errors.New("mapping: incompatible value")
)

// Convert stores v into the value target points to. Values already assignable
// to the target are stored directly; everything else goes through a JSON
// round trip so struct tags and numeric conversions apply.
func Convert(v any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}

	elem := rv.Elem()
	if v == nil {
		switch elem.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice, reflect.Pointer:
			elem.Set(reflect.Zero(elem.Type()))
			return nil
		}
		return fmt.Errorf("%w: null into %s", ErrIncompatible, elem.Type())
	}

	value := reflect.ValueOf(v)
	if value.Type().AssignableTo(elem.Type()) {
		elem.Set(value)
		return nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %T: %v", ErrIncompatible, v, err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %T into %s: %v", ErrIncompatible, v, elem.Type(), err)
	}

	return nil
}
