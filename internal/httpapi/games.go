package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

// GamesPage is the [P] listing envelope for referenced-flavour game
// endpoints: the games plus the parallel users array spec §6's
// "referenced" representation requires, alongside the usual page count.
type GamesPage struct {
	Games []engine.WireGame  `json:"games"`
	Users []core.PublicUser  `json:"users"`
	Pages int                `json:"pages"`
}

func (h *Handler) gamesPage(c *fiber.Ctx, games []*engine.Game, page, total int) error {
	wire := make([]engine.WireGame, len(games))
	for i, g := range games {
		w, err := engine.ToWire(g)
		if err != nil {
			return writeError(c, err)
		}
		wire[i] = w
	}
	users, err := engine.CollectUsers(games, h.accounts)
	if err != nil {
		return writeError(c, err)
	}
	resp, err := NewPage(wire, page, total)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(GamesPage{Games: resp.Items, Users: users, Pages: resp.Pages})
}

// ListInvites implements GET /games/invites [A][P].
func (h *Handler) ListInvites(c *fiber.Ctx) error {
	page := pageParam(c)
	games, err := h.games.GamesInvitedTo(currentUser(c), page, PageSize)
	if err != nil {
		return writeError(c, err)
	}
	return h.gamesPage(c, games, page, page*PageSize+len(games))
}

// ListSearches implements GET /games/searches [A][P]. The matchmaker's
// in-memory pending index is listed directly rather than the storage
// query, since it is the moment-to-moment source of truth while the
// process is up (see matchmaker.Matchmaker.Snapshot's doc comment).
func (h *Handler) ListSearches(c *fiber.Ctx) error {
	ids := h.matchmaker.Snapshot()
	games := make([]*engine.Game, 0, len(ids))
	for _, id := range ids {
		g, err := h.games.Game(id)
		if err != nil {
			continue
		}
		games = append(games, g)
	}
	return h.gamesPage(c, games, 0, len(games))
}

// ListOngoing implements GET /games/ongoing [A][P].
func (h *Handler) ListOngoing(c *fiber.Ctx) error {
	page := pageParam(c)
	games, err := h.games.GamesOngoingFor(currentUser(c), page, PageSize)
	if err != nil {
		return writeError(c, err)
	}
	return h.gamesPage(c, games, page, page*PageSize+len(games))
}

// ListCompleted implements GET /games/completed?account= [P].
func (h *Handler) ListCompleted(c *fiber.Ctx) error {
	accountID := c.QueryInt("account", 0)
	if accountID == 0 {
		return writeError(c, core.NewError(core.CodeValueRequired, "account is required"))
	}
	page := pageParam(c)
	games, err := h.games.GamesCompletedFor(int64(accountID), page, PageSize)
	if err != nil {
		return writeError(c, err)
	}
	return h.gamesPage(c, games, page, page*PageSize+len(games))
}

// ListCommonCompleted implements GET /games/common_completed?account= [A][P].
func (h *Handler) ListCommonCompleted(c *fiber.Ctx) error {
	accountID := c.QueryInt("account", 0)
	if accountID == 0 {
		return writeError(c, core.NewError(core.CodeValueRequired, "account is required"))
	}
	page := pageParam(c)
	games, err := h.games.GamesCommonCompleted(currentUser(c), int64(accountID), page, PageSize)
	if err != nil {
		return writeError(c, err)
	}
	return h.gamesPage(c, games, page, page*PageSize+len(games))
}

// GetGame implements GET /games/<id> (users included).
func (h *Handler) GetGame(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return writeError(c, core.NewError(core.CodeWrongParams, "id must be an integer"))
	}
	g, err := h.games.Game(int64(id))
	if err != nil {
		return writeError(c, err)
	}
	w, err := engine.ToWireIncluded(g, h.accounts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(w)
}

// Find implements POST /games/find [A][V][E].
func (h *Handler) Find(c *fiber.Ctx) error {
	var req FindGameRequest
	if err := h.bindEncrypted(c, &req); err != nil {
		return writeError(c, wrapOrPass(err))
	}
	id, err := h.matchmaker.Find(currentUser(c), req.TimeControl.toCore(), time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"game_id": id})
}

// SendInvitation implements POST /games/send_invitation [A][V][E].
func (h *Handler) SendInvitation(c *fiber.Ctx) error {
	var req SendInvitationRequest
	if err := h.bindEncrypted(c, &req); err != nil {
		return writeError(c, wrapOrPass(err))
	}
	id, err := h.matchmaker.SendInvitation(currentUser(c), req.Invitee, req.TimeControl.toCore(), time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"game_id": id})
}

// AcceptInvitation implements POST /games/invites/<game> [A][V].
func (h *Handler) AcceptInvitation(c *fiber.Ctx) error {
	gameID, err := c.ParamsInt("game")
	if err != nil {
		return writeError(c, core.NewError(core.CodeWrongParams, "game must be an integer"))
	}
	if err := h.matchmaker.AcceptInvitation(currentUser(c), int64(gameID), time.Now().UTC()); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeclineInvitation implements DELETE /games/invites/<game> [A].
func (h *Handler) DeclineInvitation(c *fiber.Ctx) error {
	gameID, err := c.ParamsInt("game")
	if err != nil {
		return writeError(c, core.NewError(core.CodeWrongParams, "game must be an integer"))
	}
	if err := h.matchmaker.DeclineInvitation(currentUser(c), int64(gameID)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
