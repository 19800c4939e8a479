package checkout

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	domain "github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type kycThresholdKey struct{}

var validate = newValidator()

// newValidator reports fields by their json name and compares decimals as
// numbers, so tags like gt=0 work on amounts.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("tiptype", func(fl validator.FieldLevel) bool {
		return domain.TipType(fl.Field().String()).Valid()
	})
	v.RegisterStructValidationCtx(kycRule, Input{})
	return v
}

// kycRule requires the identity fields once the amount reaches the
// threshold carried in ctx.
func kycRule(ctx context.Context, sl validator.StructLevel) {
	threshold, ok := ctx.Value(kycThresholdKey{}).(decimal.Decimal)
	if !ok {
		return
	}
	in := sl.Current().Interface().(Input)
	if in.Amount.LessThan(threshold) {
		return
	}

	fields := []struct {
		value string
		json  string
		name  string
	}{
		{in.TaxID, "taxId", "TaxID"},
		{in.DateOfBirth, "dateOfBirth", "DateOfBirth"},
		{in.Gender, "gender", "Gender"},
		{in.DocumentID, "documentId", "DocumentID"},
	}
	for _, f := range fields {
		if f.value == "" {
			sl.ReportError(f.value, f.json, f.name, "kyc", threshold.StringFixed(2))
		}
	}
}

// toValidationError keeps the first failing field.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &domain.ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "kyc":
		return "is required above " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be less than " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be an absolute URL"
	case "datetime":
		return "must be YYYY-MM-DD"
	case "tiptype":
		return "must be cash or percent"
	}
	return "is invalid"
}
