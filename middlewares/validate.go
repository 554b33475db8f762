package middlewares

import (
	"coderoast-backend/apperr"
	"coderoast-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// BindAndValidate parses the request body into dst, trims its strings and validates it.
// Parse errors and validation failures come back as apperr validation errors.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.FieldError("_form", "Invalid request body")
	}
	utils.NormalizeDTO(dst)
	return utils.ValidateStruct(dst)
}
