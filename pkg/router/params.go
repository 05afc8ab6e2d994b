package router

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrParamRequired is wrapped by a ParamError for a missing required
// parameter.
var ErrParamRequired = errors.New("parameter is required")

// ParamError reports a parameter that could not be decoded.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	if errors.Is(e.Err, ErrParamRequired) {
		return fmt.Sprintf("param %q: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("param %q: invalid value %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// Decode fills the `param`-tagged fields of the struct target points to.
//
//	type payLink struct {
//	    MerchantID string    `param:"merchantId,required"`
//	    Amount     *float64  `param:"amount"`
//	    Reference  uuid.UUID `param:"ref"`
//	}
//
// Empty or absent parameters leave the field unchanged unless the tag carries
// the "required" option. Pointer fields are allocated only when a value is
// present, so nil means absent. Types implementing encoding.TextUnmarshaler
// decode themselves.
func Decode(params Params, target any) error {
	if target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer {
		return fmt.Errorf("router: decode target must be a pointer, got %s", v.Kind())
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("router: decode target must point to a struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("param")
		if !ok || !field.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		value := params[name]
		if value == "" {
			if hasOption(opts, "required") {
				return &ParamError{Param: name, Err: ErrParamRequired}
			}
			continue
		}

		if err := setValue(v.Field(i), value); err != nil {
			return &ParamError{Param: name, Value: value, Err: err}
		}
	}
	return nil
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func setValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := setValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value))
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return numError(err)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return numError(err)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return numError(err)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return numError(err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// numError drops strconv's echo of the input, which ParamError already
// carries.
func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
