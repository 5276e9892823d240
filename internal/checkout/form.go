package checkout

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/audiophile-commerce/storefront-backend/pkg/enums"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
)

// Form is the checkout form contract. The e-money number and PIN are only
// required when the e-money payment method is selected; they are ignored for
// cash on delivery.
type Form struct {
	Name    string `json:"name" validate:"required,max=100,person_name"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,intl_phone"`
	Address string `json:"address" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	Zip     string `json:"zip" validate:"required,max=10,postal_code"`
	Country string `json:"country" validate:"required,max=100"`

	PaymentMethod string `json:"payment_method" validate:"required,oneof=e_money cash_on_delivery"`
	EMoneyNumber  string `json:"e_money_number" validate:"required_if=PaymentMethod e_money,omitempty,len=9,numeric"`
	EMoneyPIN     string `json:"e_money_pin" validate:"required_if=PaymentMethod e_money,omitempty,len=4,numeric"`
}

var (
	personNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z .'-]*$`)
	intlPhoneRe  = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	postalCodeRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 -]*$`)
)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("intl_phone", func(fl validator.FieldLevel) bool {
		return intlPhoneRe.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	_ = v.RegisterValidation("postal_code", func(fl validator.FieldLevel) bool {
		return postalCodeRe.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks every field and returns a field-scoped validation error so
// each failing input can be surfaced next to its field.
func (f Form) Validate() error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout form")
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldName(fe.Field())] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "checkout form failed validation").
		WithDetails(details)
}

// Method returns the parsed payment method. Validate must pass first.
func (f Form) Method() enums.PaymentMethod {
	return enums.PaymentMethod(f.PaymentMethod)
}

func fieldName(structField string) string {
	switch structField {
	case "EMoneyNumber":
		return "e_money_number"
	case "EMoneyPIN":
		return "e_money_pin"
	case "PaymentMethod":
		return "payment_method"
	default:
		return strings.ToLower(structField)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "field is required"
	case "email":
		return "must be a valid email address"
	case "intl_phone":
		return "must be a valid phone number"
	case "person_name":
		return "contains unsupported characters"
	case "postal_code":
		return "must be a valid postal code"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return "must be exactly " + fe.Param() + " digits"
	case "numeric":
		return "must contain only digits"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
