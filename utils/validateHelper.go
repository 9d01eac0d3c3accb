package utils

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the `validate` tags of input and folds failures into one validation error.
func ValidateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	fields := ProcessValidationErrors(err)
	if len(fields) == 0 {
		return ValidationError("%s", err.Error())
	}
	var parts []string
	for field, tag := range fields {
		parts = append(parts, strings.ToLower(field)+" "+tag)
	}
	sort.Strings(parts)
	return ValidationError("invalid input: %s", strings.Join(parts, ", "))
}
