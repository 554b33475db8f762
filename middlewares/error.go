package middlewares

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"coderoast-backend/apperr"

	"github.com/gofiber/fiber/v2"
)

// PublicAPIPrefix marks routes that answer with flat {"error": "..."} bodies.
const PublicAPIPrefix = "/api/v1/"

// ErrorHandler centralizes error responses and keeps messages sanitized.
// Interactive routes answer {"error": <message | field map>, "upgradeRequired"?: true};
// public API routes answer {"error": "<message>"}.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		public := strings.HasPrefix(c.Path(), PublicAPIPrefix)

		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		// 2) Classified errors
		if e, ok := apperr.As(err); ok {
			status := statusFor(e.Kind, public)
			if status >= fiber.StatusInternalServerError {
				log.Error("request failed", "method", c.Method(), "path", c.Path(), "kind", e.Kind.String(), "error", err)
			}
			return c.Status(status).JSON(body(e, public))
		}

		// 3) Unknown errors (500)
		log.Error("internal error", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func statusFor(kind apperr.Kind, public bool) int {
	switch kind {
	case apperr.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindQuotaExceeded, apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindTransport:
		if public {
			return fiber.StatusInternalServerError
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func body(e *apperr.Error, public bool) fiber.Map {
	switch {
	case e.Kind == apperr.KindPersistence || e.Kind == apperr.KindUnknown:
		return fiber.Map{"error": "Internal server error"}
	case e.Kind == apperr.KindValidation && public:
		return fiber.Map{"error": firstMessage(e.Fields)}
	case e.Kind == apperr.KindValidation:
		return fiber.Map{"error": e.Fields}
	case e.UpgradeRequired && !public:
		return fiber.Map{"error": e.Message, "upgradeRequired": true}
	default:
		return fiber.Map{"error": e.Message}
	}
}

// firstMessage flattens a field map deterministically.
func firstMessage(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields[k]) > 0 {
			return fields[k][0]
		}
	}
	return "Invalid request"
}
