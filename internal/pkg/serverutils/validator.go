package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and converts the first failure
// into a fiber 400 error.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if ok := AsValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			f := verrs[0]
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("field %s failed on %s", f.Field(), f.Tag()))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func AsValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
