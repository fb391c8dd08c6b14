package httpapi

import (
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/kasupel/server/internal/core"
)

func TestStatusForMapsKnownCodes(t *testing.T) {
	cases := []struct {
		code core.Code
		want int
	}{
		{core.CodeGameNotFound, fiber.StatusNotFound},
		{core.CodeUnknownURL, fiber.StatusNotFound},
		{core.CodeBadCredentials, fiber.StatusUnauthorized},
		{core.CodeSocketAuthMalformed, fiber.StatusUnauthorized},
		{core.CodeUnauthorized, fiber.StatusForbidden},
		{core.CodeSocketNotParticipant, fiber.StatusForbidden},
		{core.CodeInternal, fiber.StatusInternalServerError},
		{core.CodeValueRequired, fiber.StatusBadRequest},
		{core.CodePageOutOfRange, fiber.StatusBadRequest},
	}
	for _, c := range cases {
		if got := statusFor(c.code); got != c.want {
			t.Errorf("statusFor(%d) = %d, want %d", c.code, got, c.want)
		}
	}
}
