package claim

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError is one violated rule.
type FieldError struct {
	Field   string // JSON path, e.g. "lines[2].service_date"
	Rule    string
	Message string
}

// ValidationError reports a claim that is malformed or incomplete for the
// requested capability. It is fatal to the call that raised it.
type ValidationError struct {
	ClaimID string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Field == "" {
			parts[i] = f.Message
			continue
		}
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	id := e.ClaimID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("claim %s invalid: %s", id, strings.Join(parts, "; "))
}

// Reject builds a ValidationError with a single field failure.
func Reject(claimID, field, rule, format string, args ...any) *ValidationError {
	return &ValidationError{
		ClaimID: claimID,
		Fields:  []FieldError{{Field: field, Rule: rule, Message: fmt.Sprintf(format, args...)}},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d := f.Interface().(Date)
		if d.IsZero() {
			return nil
		}
		return d.Time
	}, Date{})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		return f.Interface().(decimal.Decimal).InexactFloat64()
	}, decimal.Decimal{})
	_ = v.RegisterValidation("module", func(fl validator.FieldLevel) bool {
		return Module(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("setting", func(fl validator.FieldLevel) bool {
		s := Setting(fl.Field().String())
		for _, x := range AllSettings {
			if x == s {
				return true
			}
		}
		return false
	})
	return v
}

// Validate checks field rules and the cross-field date and day-count rules.
// All violations are reported together.
func (c *Claim) Validate() error {
	var fields []FieldError

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate claim: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   trimNamespace(fe.Namespace()),
				Rule:    fe.Tag(),
				Message: ruleMessage(fe),
			})
		}
	}
	fields = append(fields, c.crossFieldErrors()...)

	if len(fields) > 0 {
		return &ValidationError{ClaimID: c.ClaimID, Fields: fields}
	}
	return nil
}

func (c *Claim) crossFieldErrors() []FieldError {
	var out []FieldError
	add := func(field, rule, msg string) {
		out = append(out, FieldError{Field: field, Rule: rule, Message: msg})
	}

	from, thru := c.FromDate.Time, c.ThruDate.Time
	haveRange := !from.IsZero() && !thru.IsZero()
	if haveRange && from.After(thru) {
		add("from_date", "ltefield", "from date cannot be after thru date")
	}
	if haveRange && !c.AdmitDate.IsZero() && c.AdmitDate.After(thru) {
		add("admit_date", "ltefield", "admit date cannot be after thru date")
	}
	if haveRange {
		for i, l := range c.Lines {
			if l.ServiceDate.IsZero() {
				continue
			}
			if l.ServiceDate.Before(from) || l.ServiceDate.After(thru) {
				add(fmt.Sprintf("lines[%d].service_date", i), "within", "line service date must be within claim from and thru dates")
			}
		}
	}
	for i, s := range c.SpanCodes {
		if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.StartDate.After(s.EndDate.Time) {
			add(fmt.Sprintf("span_codes[%d].start_date", i), "ltefield", "span start cannot be after span end")
		}
	}
	if c.LOS < c.NonCoveredDays {
		add("non_covered_days", "ltefield", "non-covered days cannot exceed length of stay")
	}
	for i, dx := range c.SecondaryDxs {
		if dx.DxType == DxPrimary {
			add(fmt.Sprintf("secondary_dxs[%d].dx_type", i), "principal", "principal diagnosis belongs in principal_dx")
		}
	}
	if e := c.AdditionalData.ESRD; e != nil && (e.ECTChoice == "P" || e.ECTChoice == "B") && e.PPAAdjustment == nil {
		add("additional_data.esrd.ppa_adjustment", "required_if", "ppa_adjustment is required when ect_choice is P or B")
	}
	return out
}

func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "eq":
		return "must be " + fe.Param()
	case "module":
		return fmt.Sprintf("unknown module %v", fe.Value())
	case "setting":
		return fmt.Sprintf("unknown setting %v", fe.Value())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return "failed " + fe.Tag()
}
