package engine

import (
	"fmt"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
)

func boardWire(squares []chessrules.Square) map[string][2]int {
	board := make(map[string][2]int, len(squares))
	for _, sq := range squares {
		board[fmt.Sprintf("%d,%d", sq.Rank, sq.File)] = [2]int{int(sq.Piece), int(sq.Side)}
	}
	return board
}

// WireGame is the "referenced" flavour of spec §6's Game wire
// representation: participants appear by id, and the endpoint is
// expected to also return a parallel users array built by
// CollectUsers.
type WireGame struct {
	ID               int64            `json:"id"`
	Mode             core.GameMode    `json:"mode"`
	HostID           int64            `json:"host_id"`
	AwayID           *int64           `json:"away_id"`
	InvitedID        *int64           `json:"invited_id"`
	TimeControl      core.TimeControl `json:"time_control"`
	HostTime         int              `json:"host_time"`
	AwayTime         int              `json:"away_time"`
	HostOfferingDraw bool             `json:"host_offering_draw"`
	AwayOfferingDraw bool             `json:"away_offering_draw"`
	CurrentTurn      core.Side        `json:"current_turn"`
	TurnNumber       int              `json:"turn_number"`
	Board            map[string][2]int `json:"board"`
	HalfmoveClock    int              `json:"halfmove_clock"`
	Winner           core.Winner      `json:"winner"`
	Conclusion       core.Conclusion  `json:"conclusion"`
	OpenedAt         int64            `json:"opened_at"`
	StartedAt        *int64           `json:"started_at"`
	LastTurn         *int64           `json:"last_turn"`
	EndedAt          *int64           `json:"ended_at"`
}

// WireGameIncluded is the "included" flavour: participants are embedded
// directly rather than referenced by id.
type WireGameIncluded struct {
	WireGame
	Host     core.PublicUser  `json:"host"`
	Away     *core.PublicUser `json:"away"`
	Invited  *core.PublicUser `json:"invited"`
}

// ToWire builds the referenced-flavour wire representation of g.
func ToWire(g *Game) (WireGame, error) {
	squares, err := chessrules.Squares(g.Board)
	if err != nil {
		return WireGame{}, err
	}
	w := WireGame{
		ID:               g.ID,
		Mode:             g.Mode,
		HostID:           g.HostID,
		AwayID:           g.AwayID,
		InvitedID:        g.InvitedID,
		TimeControl:      g.TimeControl,
		HostTime:         g.HostTime,
		AwayTime:         g.AwayTime,
		HostOfferingDraw: g.HostOfferingDraw,
		AwayOfferingDraw: g.AwayOfferingDraw,
		CurrentTurn:      g.CurrentTurn,
		TurnNumber:       g.TurnNumber,
		Board:            boardWire(squares),
		HalfmoveClock:    g.HalfmoveClock,
		Winner:           g.Winner,
		Conclusion:       g.Conclusion,
		OpenedAt:         g.OpenedAt.Unix(),
	}
	if g.StartedAt != nil {
		v := g.StartedAt.Unix()
		w.StartedAt = &v
	}
	if g.LastTurn != nil {
		v := g.LastTurn.Unix()
		w.LastTurn = &v
	}
	if g.EndedAt != nil {
		v := g.EndedAt.Unix()
		w.EndedAt = &v
	}
	return w, nil
}

// ToWireIncluded builds the included-flavour wire representation,
// resolving host/away/invited ids to PublicUsers through resolver.
func ToWireIncluded(g *Game, resolver core.UserResolver) (WireGameIncluded, error) {
	base, err := ToWire(g)
	if err != nil {
		return WireGameIncluded{}, err
	}
	host, err := resolver.ResolveUser(g.HostID)
	if err != nil {
		return WireGameIncluded{}, err
	}
	out := WireGameIncluded{WireGame: base, Host: host}
	if g.AwayID != nil {
		away, err := resolver.ResolveUser(*g.AwayID)
		if err != nil {
			return WireGameIncluded{}, err
		}
		out.Away = &away
	}
	if g.InvitedID != nil {
		invited, err := resolver.ResolveUser(*g.InvitedID)
		if err != nil {
			return WireGameIncluded{}, err
		}
		out.Invited = &invited
	}
	return out, nil
}

// CollectUsers resolves and deduplicates every user referenced by games,
// for the parallel "users" array that accompanies a referenced-flavour
// response.
func CollectUsers(games []*Game, resolver core.UserResolver) ([]core.PublicUser, error) {
	seen := make(map[int64]bool)
	var users []core.PublicUser
	add := func(id int64) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		u, err := resolver.ResolveUser(id)
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	}
	for _, g := range games {
		if err := add(g.HostID); err != nil {
			return nil, err
		}
		if g.AwayID != nil {
			if err := add(*g.AwayID); err != nil {
				return nil, err
			}
		}
		if g.InvitedID != nil {
			if err := add(*g.InvitedID); err != nil {
				return nil, err
			}
		}
	}
	return users, nil
}
