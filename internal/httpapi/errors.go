package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kasupel/server/internal/core"
)

// writeError maps a CodedError's numeric family to an HTTP status and
// writes the code/message as the whole response body, per spec §7:
// clients are expected to switch on the numeric code, not the status.
func writeError(c *fiber.Ctx, err error) error {
	ce := core.AsCoded(err)
	return c.Status(statusFor(ce.Code)).JSON(ce)
}

func statusFor(code core.Code) int {
	switch {
	case code == core.CodeAccountNotFound || code == core.CodeGameNotFound ||
		code == core.CodeVerificationNotFound || code == core.CodeNotificationNotFound ||
		code == core.CodeMediaNotFound || code == core.CodeUnknownURL:
		return fiber.StatusNotFound
	case code == core.CodeBadCredentials || code == core.CodeSessionNotFound ||
		code == core.CodeSessionExpired || code == core.CodeNotAuthenticated ||
		code >= core.CodeSocketAuthMalformed && code <= core.CodeSocketGameIDMalformed:
		return fiber.StatusUnauthorized
	case code == core.CodeUnauthorized || code == core.CodeSocketNotParticipant:
		return fiber.StatusForbidden
	case code == core.CodeInternal:
		return fiber.StatusInternalServerError
	case code >= 3000 && code < 4000:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusBadRequest
	}
}
