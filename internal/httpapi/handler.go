// Package httpapi implements the HTTP surface of spec §6 and the
// websocket upgrade that hands a connection off to internal/hub's
// Registry. It is the "request dispatcher / validator / encryption
// envelope / pagination" boundary SPEC_FULL.md calls out: every
// engine/matchmaker/hub/account error surfaces here as a
// core.CodedError, never a raw Go error.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasupel/server/internal/account"
	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
	"github.com/kasupel/server/internal/hub"
	"github.com/kasupel/server/internal/matchmaker"
	"github.com/kasupel/server/internal/notify"
	"github.com/kasupel/server/internal/session"
	"github.com/kasupel/server/internal/storage"
)

// GameLister is the read-only subset of internal/storage the listing
// endpoints need, kept separate from matchmaker.GameStore/hub.GameStore
// since httpapi never mutates a game directly.
type GameLister interface {
	Game(id int64) (*engine.Game, error)
	GamesSearching(page, pageSize int) ([]*engine.Game, error)
	GamesInvitedTo(userID int64, page, pageSize int) ([]*engine.Game, error)
	GamesOngoingFor(userID int64, page, pageSize int) ([]*engine.Game, error)
	GamesCompletedFor(userID int64, page, pageSize int) ([]*engine.Game, error)
	GamesCommonCompleted(userA, userB int64, page, pageSize int) ([]*engine.Game, error)
	NotificationsFor(userID int64, page, pageSize int) ([]storage.NotificationRecord, error)
}

// Handler wires every component the REST surface calls into.
type Handler struct {
	accounts   *account.Accounts
	sessions   *session.Manager
	notifyQ    *notify.Queue
	matchmaker *matchmaker.Matchmaker
	registry   *hub.Registry
	games      GameLister
	envelope   *Envelope
	log        *zap.Logger
}

func NewHandler(accounts *account.Accounts, sessions *session.Manager, notifyQ *notify.Queue, mm *matchmaker.Matchmaker, registry *hub.Registry, games GameLister, envelope *Envelope, log *zap.Logger) *Handler {
	return &Handler{
		accounts:   accounts,
		sessions:   sessions,
		notifyQ:    notifyQ,
		matchmaker: mm,
		registry:   registry,
		games:      games,
		envelope:   envelope,
		log:        log,
	}
}

// NewFiberApp builds the fiber app, following the teacher's
// NewFiberApp in internal/http/handler.go: global middleware first,
// then route groups, rate-limited the same way.
func NewFiberApp(h *Handler, devMode bool) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency} ${locals:requestid}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,Game-ID",
	}))

	maxReq := 20
	if devMode {
		maxReq *= 2
	}
	app.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: time.Second,
		LimitReached: func(c *fiber.Ctx) error {
			return writeError(c, core.NewError(core.CodeWrongParams, "rate limit exceeded"))
		},
	}))

	app.Get("/rsa_key", h.RSAKey)

	accounts := app.Group("/accounts")
	accounts.Post("/login", h.Login)
	accounts.Post("/create", h.CreateAccount)
	accounts.Get("/verify_email", h.VerifyEmail)
	accounts.Get("/account", h.GetAccount)
	accounts.Get("/accounts", h.Leaderboard)
	accounts.Get("/logout", h.AuthRequired, h.Logout)
	accounts.Get("/resend_verification_email", h.AuthRequired, h.ResendVerificationEmail)
	accounts.Patch("/me", h.AuthRequired, h.PatchMe)
	accounts.Delete("/me", h.AuthRequired, h.DeleteMe)
	accounts.Get("/me", h.AuthRequired, h.GetMe)
	accounts.Get("/notifications", h.AuthRequired, h.ListNotifications)
	accounts.Get("/notifications/unread_count", h.AuthRequired, h.UnreadNotificationCount)
	accounts.Post("/notifications/ack", h.AuthRequired, h.AckNotification)

	app.Get("/users/:username", h.GetUserByUsername)

	games := app.Group("/games")
	games.Get("/invites", h.AuthRequired, h.ListInvites)
	games.Get("/searches", h.AuthRequired, h.ListSearches)
	games.Get("/ongoing", h.AuthRequired, h.ListOngoing)
	games.Get("/completed", h.ListCompleted)
	games.Get("/common_completed", h.AuthRequired, h.ListCommonCompleted)
	games.Get("/:id", h.GetGame)
	games.Post("/find", h.AuthRequired, h.EmailVerified, h.Find)
	games.Post("/send_invitation", h.AuthRequired, h.EmailVerified, h.SendInvitation)
	games.Post("/invites/:game", h.AuthRequired, h.EmailVerified, h.AcceptInvitation)
	games.Delete("/invites/:game", h.AuthRequired, h.DeclineInvitation)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		if e.Code == fiber.StatusNotFound {
			return writeError(c, core.NewError(core.CodeUnknownURL, "no such route"))
		}
	}
	return writeError(c, core.NewError(core.CodeInternal, err.Error()))
}
