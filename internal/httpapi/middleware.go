package httpapi

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kasupel/server/internal/core"
)

const localsUserID = "userID"

// parseSessionHeader splits the `Authorization: SessionKey <id>|<base64
// token>` header spec §6 specifies for the socket handshake; [A] HTTP
// endpoints are authenticated the same way, so both surfaces share this
// parser.
func parseSessionHeader(header string) (int64, []byte, error) {
	const prefix = "SessionKey "
	if !strings.HasPrefix(header, prefix) {
		return 0, nil, core.NewError(core.CodeSocketAuthMalformed, "missing SessionKey authorization header")
	}
	rest := strings.TrimPrefix(header, prefix)
	idStr, tokenB64, ok := strings.Cut(rest, "|")
	if !ok {
		return 0, nil, core.NewError(core.CodeSocketAuthMalformed, "authorization header missing '|' separator")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, nil, core.NewError(core.CodeSocketAuthMalformed, "session id is not numeric")
	}
	token, err := base64.StdEncoding.DecodeString(tokenB64)
	if err != nil {
		return 0, nil, core.NewError(core.CodeSocketAuthMalformed, "session token is not valid base64")
	}
	return id, token, nil
}

// AuthRequired implements [A]: every authenticated endpoint resolves to
// a userID stashed in fiber.Ctx locals for the handler to read.
func (h *Handler) AuthRequired(c *fiber.Ctx) error {
	sessionID, token, err := parseSessionHeader(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return writeError(c, err)
	}
	userID, err := h.sessions.Authenticate(sessionID, token)
	if err != nil {
		return writeError(c, err)
	}
	c.Locals(localsUserID, userID)
	return c.Next()
}

// EmailVerified implements [V]: must run after AuthRequired.
func (h *Handler) EmailVerified(c *fiber.Ctx) error {
	userID := c.Locals(localsUserID).(int64)
	u, err := h.accounts.ByID(userID)
	if err != nil {
		return writeError(c, err)
	}
	if !u.EmailVerified {
		return writeError(c, core.NewError(core.CodeEmailNotVerified, "email address not verified"))
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) int64 {
	return c.Locals(localsUserID).(int64)
}

// pageParam reads the 0-indexed `page` query parameter [P] endpoints
// accept, defaulting to the first page.
func pageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page", "0"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
