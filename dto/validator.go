package dto

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/sidequest-rpg/sidequest_api/config"
)

var (
	validate      *validator.Validate
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	gameConfig    = config.Default()
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("player_class", validatePlayerClass)
}

func GetValidator() *validator.Validate {
	return validate
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validatePlayerClass(fl validator.FieldLevel) bool {
	_, ok := gameConfig.Class(fl.Field().String())
	return ok
}

type ValidationError struct {
	Field   string `json:"field" example:"username"`
	Message string `json:"message" example:"username is required"`
}

func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			var message string

			switch fieldError.Tag() {
			case "required":
				message = fieldError.Field() + " is required"
			case "min":
				message = fieldError.Field() + " must be at least " + fieldError.Param() + " characters"
			case "max":
				message = fieldError.Field() + " must be at most " + fieldError.Param() + " characters"
			case "username":
				message = "Username must be 3-20 characters of letters, numbers or underscores"
			case "player_class":
				message = "Player class must be one of the available classes"
			case "oneof":
				message = fieldError.Field() + " must be one of: " + fieldError.Param()
			case "uuid":
				message = fieldError.Field() + " must be a valid id"
			default:
				message = fieldError.Field() + " is invalid"
			}

			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Message: message,
			})
		}
	}

	return errors
}
