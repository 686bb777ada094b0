package request

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nekogravitycat/zone-booking-backend/internal/user"
)

// PhoneTag is the binding tag for a customer phone number, checked with
// user.ValidPhone.
const PhoneTag = "phone10"

// RegisterValidators installs the custom binding tags on gin's validator.
// It is safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation(PhoneTag, func(fl validator.FieldLevel) bool {
		return user.ValidPhone(fl.Field().String())
	})
}

// FailedTag returns the tag of the first failed validation for field, if any.
func FailedTag(err error, field string) (string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "", false
	}
	for _, fe := range verrs {
		if fe.Field() == field {
			return fe.Tag(), true
		}
	}
	return "", false
}

// ByIDRequest is a common struct for endpoints that take a numeric ID path parameter.
type ByIDRequest struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}
