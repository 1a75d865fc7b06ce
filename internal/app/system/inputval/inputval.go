// Package inputval validates decoded request bodies.
//
// Struct fields are annotated with go-playground/validator tags plus an
// optional `label:"..."` tag used in the human-readable messages:
//
//	type createChitInput struct {
//	    Name     string `validate:"required,max=120" label:"Name"`
//	    CycleDay int    `validate:"min=1,max=31" label:"Cycle day"`
//	}
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects validation failures in declaration order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields returns field -> message for the error envelope.
func (r *Result) Fields() map[string]string {
	if !r.HasErrors() {
		return nil
	}
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names so clients can map errors back onto form fields.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})

		// Amounts validate as numbers (gte=0 etc.).
		v.RegisterCustomTypeFunc(func(rv reflect.Value) any {
			a, ok := rv.Interface().(money.Amount)
			if !ok {
				return nil
			}
			f, _ := a.Float64()
			return f
		}, money.Amount{})

		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("yyyymm", func(fl validator.FieldLevel) bool {
			_, err := ledger.ParseMonth(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("paymentmode", func(fl validator.FieldLevel) bool {
			return IsValidPaymentMode(fl.Field().String())
		})
		_ = v.RegisterValidation("chitstatus", func(fl validator.FieldLevel) bool {
			return ledger.ValidChitStatus(ledger.ChitStatus(fl.Field().String()))
		})
		_ = v.RegisterValidation("memberstatus", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == models.MemberActive || s == models.MemberInactive
		})
		_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
	})
	return v
}

// Validate runs the struct's validate tags, then checks every money.Amount
// field can be recorded. A nil or non-struct input yields an empty Result.
func Validate(s any) *Result {
	res := &Result{}
	typ := reflect.TypeOf(s)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	if err := engine().Struct(s); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			res.Errors = append(res.Errors, FieldError{Field: "", Message: "Invalid input."})
			return res
		}
		for _, fe := range verrs {
			res.Errors = append(res.Errors, FieldError{
				Field:   fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:],
				Message: message(fe, labelFor(typ, fe)),
			})
		}
	}

	checkAmounts(reflect.ValueOf(s), "", "", res)
	return res
}

var amountType = reflect.TypeOf(money.Amount{})

// checkAmounts walks structs and slices for amounts with sub-paisa
// precision or more digits than Decimal128 holds.
func checkAmounts(v reflect.Value, path, label string, res *Result) {
	if !v.IsValid() {
		return
	}
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}
	switch {
	case v.Type() == amountType:
		a := v.Interface().(money.Amount)
		switch err := a.Check(); {
		case errors.Is(err, money.ErrTooPrecise):
			res.Errors = append(res.Errors, FieldError{Field: path, Message: label + " must have at most 2 decimal places."})
		case err != nil:
			res.Errors = append(res.Errors, FieldError{Field: path, Message: label + " is too large."})
		}
	case v.Kind() == reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			if path != "" {
				name = path + "." + name
			}
			lbl := f.Tag.Get("label")
			if lbl == "" {
				lbl = f.Name
			}
			checkAmounts(v.Field(i), name, lbl, res)
		}
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Array:
		for i := 0; i < v.Len(); i++ {
			checkAmounts(v.Index(i), path+"["+strconv.Itoa(i)+"]", label, res)
		}
	}
}

// labelFor walks the struct namespace to find the field's label tag.
func labelFor(root reflect.Type, fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	t := root
	var label string
	for _, p := range parts[1:] {
		if i := strings.Index(p, "["); i >= 0 {
			p = p[:i]
		}
		for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			break
		}
		f, ok := t.FieldByName(p)
		if !ok {
			break
		}
		label = f.Tag.Get("label")
		t = f.Type
	}
	if label == "" {
		label = fe.Field()
	}
	return label
}

func message(fe validator.FieldError, label string) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return fmt.Sprintf("%s is required.", label)
	case "email", "emailaddr":
		return "A valid email address is required."
	case "max", "lte":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min", "gte":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return fmt.Sprintf("%s must be a valid ID.", label)
	case "yyyymm":
		return fmt.Sprintf("%s must be in YYYY-MM format.", label)
	case "paymentmode":
		return fmt.Sprintf("%s must be cash or online.", label)
	case "chitstatus":
		return fmt.Sprintf("%s must be Upcoming, Ongoing, Active, Closed or Completed.", label)
	case "memberstatus":
		return fmt.Sprintf("%s must be Active or Inactive.", label)
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates.", label)
	case "dive":
		return fmt.Sprintf("%s is invalid.", label)
	}
	return fmt.Sprintf("%s is invalid.", label)
}
