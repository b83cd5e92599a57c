// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// queryInt parses an optional integer query parameter, falling back to def.
func queryInt(c fiber.Ctx, name string, def int) int {
	if s := c.Query(name); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			return parsed
		}
	}
	return def
}

// queryBool parses an optional boolean query parameter.
func queryBool(c fiber.Ctx, name string) bool {
	if s := c.Query(name); s != "" {
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed
		}
	}
	return false
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "alphanum":
		return err.Field() + " must contain only letters and numbers"
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
