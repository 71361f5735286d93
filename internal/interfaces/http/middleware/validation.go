package middleware

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erp/connector/internal/domain/integration"
)

// RegisterValidators configures gin's validator: field errors carry the json
// (or form) name of the field, and the connector-specific tags below are
// available to request structs.
//
//	price_mode  FIXED or PROPORTIONAL, any case
//	sku         printable, no surrounding or embedded whitespace
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(payloadName)

	for tag, fn := range map[string]validator.Func{
		"price_mode": validPriceMode,
		"sku":        validSKU,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}

func payloadName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		}
		return name
	}
	return ""
}

func validPriceMode(fl validator.FieldLevel) bool {
	return integration.PriceMode(strings.ToUpper(fl.Field().String())).IsValid()
}

func validSKU(fl validator.FieldLevel) bool {
	sku := fl.Field().String()
	return sku != "" && strings.IndexFunc(sku, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) < 0
}
