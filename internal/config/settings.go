package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/specialistvlad/tricore/internal/services"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Decode binds the module's settings into target, a pointer to a struct
// whose fields carry `cty:"name"` tags. Fields without a matching setting
// keep their current value, so callers pre-fill defaults. A setting with no
// matching field is an error.
func (mc *ModuleConfig) Decode(target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a non-nil pointer to a struct, got %T", target)
	}
	if mc == nil || mc.Settings.IsNull() {
		return nil
	}
	settings := mc.Settings
	if !settings.IsKnown() {
		return fmt.Errorf("module %q: settings are not known", mc.Key)
	}
	ty := settings.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return fmt.Errorf("module %q: settings must be an object, got %s", mc.Key, ty.FriendlyName())
	}

	fields := taggedFields(ptr.Elem())
	var unknown []string
	for name, val := range settings.AsValueMap() {
		field, ok := fields[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if err := decodeValue(val, field); err != nil {
			return fmt.Errorf("module %q: setting %q: %w", mc.Key, name, err)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("module %q: unsupported settings: %s", mc.Key, strings.Join(unknown, ", "))
	}
	return nil
}

func taggedFields(v reflect.Value) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("cty"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		out[name] = v.Field(i)
	}
	return out
}

// decodeValue assigns val to field, converting it to the field's implied cty
// type first so tuples become lists and numeric strings become numbers.
func decodeValue(val cty.Value, field reflect.Value) error {
	if val.IsNull() {
		return nil
	}
	if field.Kind() == reflect.Interface {
		native, err := ToNative(val)
		if err != nil {
			return err
		}
		if native != nil {
			field.Set(reflect.ValueOf(native))
		}
		return nil
	}

	ty, err := gocty.ImpliedType(field.Interface())
	if err != nil {
		return fmt.Errorf("unsupported field type %s: %w", field.Type(), err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("cannot use %s as %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, field.Addr().Interface())
}

// ToNative converts a cty value into plain Go values: string, float64,
// bool, []any and map[string]any. Null and unknown values become nil.
func ToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("converting number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// FromNative converts decoded document data (the output of a YAML or JSON
// decoder into any) into a cty value. Maps become objects and slices become
// tuples, so mixed element types survive.
func FromNative(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case uint64:
		return cty.NumberUIntVal(t), nil
	case float64:
		return cty.NumberFloatVal(t), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(t))
		for i, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in attribute %q: %w", k, err)
			}
			attrs[k] = ev
		}
		return cty.ObjectVal(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
}

// DecodeModule decodes the settings block of module key from the *Model
// registered in s into target. Without a model or a block for key, target
// is left as is.
func DecodeModule(s services.Reader, key string, target any) error {
	m, ok := services.TryGet[*Model](s)
	if !ok {
		return nil
	}
	return m.Module(key).Decode(target)
}
