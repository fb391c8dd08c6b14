package httpapi

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kasupel/server/internal/core"
)

// Login implements POST /accounts/login [E].
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := h.bindEncrypted(c, &req); err != nil {
		return writeError(c, wrapOrPass(err))
	}
	token, err := base64.StdEncoding.DecodeString(req.Token)
	if err != nil {
		return writeError(c, core.NewError(core.CodeBadEncrypted, "token is not valid base64"))
	}
	user, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	// The spec hands the client-generated token straight to session
	// creation: the server never generates the secret for a login, only
	// hashes what the client supplied (see internal/session.Manager.Create
	// for the case where the server itself needs to originate one).
	sessionID, err := h.sessions.CreateWithToken(user.ID, token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"session_id": sessionID})
}

// Logout implements GET /accounts/logout [A].
func (h *Handler) Logout(c *fiber.Ctx) error {
	sessionID, _, err := parseSessionHeader(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return writeError(c, err)
	}
	if err := h.sessions.Destroy(sessionID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateAccount implements POST /accounts/create [E].
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := h.bindEncrypted(c, &req); err != nil {
		return writeError(c, wrapOrPass(err))
	}
	id, err := h.accounts.Create(req.Username, req.Password, req.Email)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.notifyQ.Enqueue(id, core.NotifyAccountsWelcome, nil); err != nil {
		h.log.Error("welcome notification failed", zap.Int64("user_id", id), zap.Error(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// ResendVerificationEmail implements GET /accounts/resend_verification_email [A].
func (h *Handler) ResendVerificationEmail(c *fiber.Ctx) error {
	if _, err := h.accounts.ResendVerificationEmail(currentUser(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VerifyEmail implements GET /accounts/verify_email.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	username := c.Query("username")
	token := c.Query("token")
	if username == "" || token == "" {
		return writeError(c, core.NewError(core.CodeValueRequired, "username and token are required"))
	}
	if err := h.accounts.VerifyEmail(username, token); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PatchMe implements PATCH /accounts/me [A][E].
func (h *Handler) PatchMe(c *fiber.Ctx) error {
	var req PatchAccountRequest
	if err := h.bindEncrypted(c, &req); err != nil {
		return writeError(c, wrapOrPass(err))
	}
	userID := currentUser(c)
	if req.Password != nil {
		if err := h.accounts.UpdatePassword(userID, *req.Password); err != nil {
			return writeError(c, err)
		}
	}
	if req.Email != nil {
		if err := h.accounts.UpdateEmail(userID, *req.Email); err != nil {
			return writeError(c, err)
		}
	}
	if req.Avatar != nil {
		decoded, err := base64.StdEncoding.DecodeString(*req.Avatar)
		if err != nil {
			return writeError(c, core.NewError(core.CodeWrongParams, "avatar is not valid base64"))
		}
		if len(decoded) > 1<<20 {
			return writeError(c, core.NewError(core.CodeWrongParams, "avatar must be at most 1 MiB"))
		}
		if !isSupportedImage(decoded) {
			return writeError(c, core.NewError(core.CodeWrongParams, "avatar must be png, jpeg, gif or webp"))
		}
		blobID, err := storeAvatarBlob(decoded)
		if err != nil {
			return writeError(c, err)
		}
		if err := h.accounts.UpdateAvatar(userID, blobID); err != nil {
			return writeError(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteMe implements DELETE /accounts/me [A].
func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	if err := h.accounts.Delete(currentUser(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MeResponse is GET /accounts/me's "User with email" shape, per spec §6.
type MeResponse struct {
	core.PublicUser
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	u, err := h.accounts.ByID(currentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(MeResponse{
		PublicUser:    core.PublicUser{ID: u.ID, Username: u.Username, Elo: u.Elo},
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	})
}

// GetAccount implements GET /accounts/account?id=.
func (h *Handler) GetAccount(c *fiber.Ctx) error {
	id := c.QueryInt("id", 0)
	if id == 0 {
		return writeError(c, core.NewError(core.CodeValueRequired, "id is required"))
	}
	user, err := h.accounts.ResolveUser(int64(id))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

// GetUserByUsername implements GET /users/<username>.
func (h *Handler) GetUserByUsername(c *fiber.Ctx) error {
	u, err := h.accounts.ByUsername(c.Params("username"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(core.PublicUser{ID: u.ID, Username: u.Username, Elo: u.Elo})
}

// Leaderboard implements GET /accounts/accounts [P].
func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	users, total, err := h.accounts.Leaderboard(pageParam(c))
	if err != nil {
		return writeError(c, err)
	}
	public := make([]core.PublicUser, len(users))
	for i, u := range users {
		public[i] = core.PublicUser{ID: u.ID, Username: u.Username, Elo: u.Elo}
	}
	page, err := NewPage(public, pageParam(c), total)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// NotificationWire is a notify.Store row shaped for the wire.
type NotificationWire struct {
	ID     int64                  `json:"id"`
	SentAt int64                  `json:"sent_at"`
	Type   core.NotificationType  `json:"type"`
	GameID *int64                 `json:"game_id"`
	Read   bool                   `json:"read"`
}

// ListNotifications implements GET /accounts/notifications [A][P].
func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	userID := currentUser(c)
	page := pageParam(c)
	records, err := h.games.NotificationsFor(userID, page, PageSize)
	if err != nil {
		return writeError(c, err)
	}
	wire := make([]NotificationWire, len(records))
	for i, r := range records {
		wire[i] = NotificationWire{ID: r.ID, SentAt: r.SentAt.Unix(), Type: r.TypeCode, GameID: r.GameID, Read: r.Read}
	}
	total, err := h.notifyQ.UnreadCount(userID)
	if err != nil {
		return writeError(c, err)
	}
	resp, err := NewPage(wire, page, int(total)+len(wire))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// UnreadNotificationCount implements GET /accounts/notifications/unread_count [A].
func (h *Handler) UnreadNotificationCount(c *fiber.Ctx) error {
	n, err := h.notifyQ.UnreadCount(currentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// AckNotification implements POST /accounts/notifications/ack [A].
func (h *Handler) AckNotification(c *fiber.Ctx) error {
	var req AckNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, core.NewError(core.CodeWrongParams, "malformed request body"))
	}
	if err := validate.Struct(req); err != nil {
		return writeError(c, wrapValidation(err))
	}
	if err := h.notifyQ.Ack(currentUser(c), req.ID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func wrapOrPass(err error) error {
	if _, ok := err.(*core.CodedError); ok {
		return err
	}
	return wrapValidation(err)
}
