// Package validation provides request validation on top of go-playground/validator
// plus the account rules shared by registration and admin edits.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"dreamio/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the singleton validator instance with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseRole(fl.Field().String())
			return ok
		})
		_ = validate.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			return models.ValidPlatform(models.Platform(fl.Field().String()))
		})
		_ = validate.RegisterValidation("streamstatus", func(fl validator.FieldLevel) bool {
			return models.ValidStreamStatus(models.StreamStatus(fl.Field().String()))
		})
	})
	return validate
}

var errorMessageTemplates = map[string]string{
	"required":     "%s is required",
	"email":        "%s must be a valid email address",
	"role":         "%s must be one of Admin, Designer, User",
	"platform":     "%s must be one of dreamio, youtube, facebook, twitch, custom",
	"streamstatus": "%s must be one of scheduled, live, ended, cancelled",
}

var errorMessageWithParam = map[string]string{
	"min":   "%s must be at least %s characters",
	"max":   "%s must not exceed %s characters",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"oneof": "%s must be one of: %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	if tmpl, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

// ValidateStruct validates s and returns a models.AppError with code
// VALIDATION_ERROR naming every failing field, or nil.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return models.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, translateError(fe))
	}
	return models.NewValidationError(strings.Join(messages, "; "))
}
