package integration

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// OrderValidator checks remote orders for the fields ingestion depends on.
type OrderValidator struct {
	validate *validator.Validate
}

// NewOrderValidator creates a validator that understands decimal amounts.
func NewOrderValidator() *OrderValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &OrderValidator{validate: v}
}

// decimalValue lets numeric tags such as gte compare decimal amounts.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// Validate returns nil for a usable order, or the reason it must be skipped.
func (v *OrderValidator) Validate(order *integration.RemoteOrder) error {
	err := v.validate.Struct(order)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, fmt.Sprintf("%s failed %s", trimNamespace(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", integration.ErrMalformedRecord, strings.Join(reasons, "; "))
}

// trimNamespace drops the leading struct name from a field namespace.
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
