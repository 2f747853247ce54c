package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate

	hashtagPattern = regexp.MustCompile(`^#?[\p{L}\p{N}_]{1,64}$`)
)

// Validator returns the shared validator with the custom tags registered
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("hashtag", func(fl validator.FieldLevel) bool {
			return hashtagPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Struct validates s and converts the first failure to an APIError.
// Length and shape failures on domain input are INVALID_OPERATION.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.BadRequest(err.Error())
	}
	fe := verrs[0]
	apiErr := errors.InvalidOperation(fieldMessage(fe))
	apiErr.Field = strings.ToLower(fe.Field())
	return apiErr
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "hashtag":
		return fmt.Sprintf("%s contains an invalid hashtag", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
