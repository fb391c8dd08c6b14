package storage

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kasupel/server/internal/chessrules"
	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/engine"
)

const gameColumns = `id, mode, host_id, away_id, invited_id,
	main_thinking_time, fixed_extra_time, time_increment_per_turn,
	host_time, away_time, host_offering_draw, away_offering_draw,
	current_turn, turn_number, board_fen, position_history, halfmove_clock,
	winner, conclusion, opened_at, started_at, last_turn, ended_at`

func encodeHistory(fps [][16]byte) (string, error) {
	hexes := make([]string, len(fps))
	for i, fp := range fps {
		hexes[i] = hex.EncodeToString(fp[:])
	}
	b, err := json.Marshal(hexes)
	return string(b), err
}

func decodeHistory(raw string) ([][16]byte, error) {
	var hexes []string
	if err := json.Unmarshal([]byte(raw), &hexes); err != nil {
		return nil, err
	}
	out := make([][16]byte, len(hexes))
	for i, h := range hexes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, err
		}
		copy(out[i][:], b)
	}
	return out, nil
}

type gameScanner interface {
	Scan(dest ...any) error
}

func scanGame(row gameScanner) (*engine.Game, error) {
	var g engine.Game
	var awayID, invitedID sql.NullInt64
	var startedAt, lastTurn, endedAt sql.NullTime
	var boardFEN, historyRaw string
	var currentTurn, winner, conclusion, mode int

	err := row.Scan(
		&g.ID, &mode, &g.HostID, &awayID, &invitedID,
		&g.TimeControl.MainThinkingTime, &g.TimeControl.FixedExtraTime, &g.TimeControl.TimeIncrementPerTurn,
		&g.HostTime, &g.AwayTime, &g.HostOfferingDraw, &g.AwayOfferingDraw,
		&currentTurn, &g.TurnNumber, &boardFEN, &historyRaw, &g.HalfmoveClock,
		&winner, &conclusion, &g.OpenedAt, &startedAt, &lastTurn, &endedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.NewError(core.CodeGameNotFound, "game not found")
	}
	if err != nil {
		return nil, err
	}

	g.Mode = core.GameMode(mode)
	g.TimeControl.Mode = g.Mode
	if awayID.Valid {
		v := awayID.Int64
		g.AwayID = &v
	}
	if invitedID.Valid {
		v := invitedID.Int64
		g.InvitedID = &v
	}
	if startedAt.Valid {
		v := startedAt.Time
		g.StartedAt = &v
	}
	if lastTurn.Valid {
		v := lastTurn.Time
		g.LastTurn = &v
	}
	if endedAt.Valid {
		v := endedAt.Time
		g.EndedAt = &v
	}
	g.CurrentTurn = core.Side(currentTurn)
	g.Winner = core.Winner(winner)
	g.Conclusion = core.Conclusion(conclusion)

	pos, err := chessrules.NewPosition(boardFEN)
	if err != nil {
		return nil, err
	}
	g.Board = pos
	g.PositionHistory, err = decodeHistory(historyRaw)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// NextGameID reserves the next game id by inserting a minimal
// placeholder row and returning its autoincrement id. Matchmaker calls
// NextGameID then SaveGame, which overwrites that row in full.
func (s *Store) NextGameID() (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO games (mode, host_id, main_thinking_time, fixed_extra_time,
			time_increment_per_turn, host_time, away_time, board_fen, position_history, opened_at)
		 VALUES (0, 0, 0, 0, 0, 0, 0, ?, '[]', ?)`,
		chessrules.StartingFEN, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SaveGame overwrites the full row for g with an UPDATE; the row must
// already exist (NextGameID creates it). Game mutation is frequent (every
// accepted move) and per spec §5 must not block the engine's command
// loop on disk I/O, so saves go through the async write queue; only the
// in-memory hub copy is the moment-to-moment source of truth.
func (s *Store) SaveGame(g *engine.Game) error {
	if !s.healthStatus.Load() {
		return nil
	}
	historyJSON, err := encodeHistory(g.PositionHistory)
	if err != nil {
		return err
	}
	select {
	case s.writeChan <- func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE games SET mode=?, host_id=?, away_id=?, invited_id=?,
				main_thinking_time=?, fixed_extra_time=?, time_increment_per_turn=?,
				host_time=?, away_time=?, host_offering_draw=?, away_offering_draw=?,
				current_turn=?, turn_number=?, board_fen=?, position_history=?, halfmove_clock=?,
				winner=?, conclusion=?, opened_at=?, started_at=?, last_turn=?, ended_at=?
			 WHERE id=?`,
			int(g.Mode), g.HostID, g.AwayID, g.InvitedID,
			g.TimeControl.MainThinkingTime, g.TimeControl.FixedExtraTime, g.TimeControl.TimeIncrementPerTurn,
			g.HostTime, g.AwayTime, g.HostOfferingDraw, g.AwayOfferingDraw,
			int(g.CurrentTurn), g.TurnNumber, g.Board.FEN(), historyJSON, g.HalfmoveClock,
			int(g.Winner), int(g.Conclusion), g.OpenedAt, g.StartedAt, g.LastTurn, g.EndedAt,
			g.ID,
		)
		return err
	}:
		return nil
	default:
		log.Printf("storage: write queue full, dropping save for game %d", g.ID)
		return nil
	}
}

func (s *Store) Game(id int64) (*engine.Game, error) {
	return scanGame(s.db.QueryRow(`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
}

func (s *Store) DeleteGame(id int64) error {
	_, err := s.db.Exec(`DELETE FROM games WHERE id = ?`, id)
	return err
}

func (s *Store) queryGames(query string, args ...any) ([]*engine.Game, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []*engine.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GamesSearching lists games with no away_id and no invited_id, for
// httpapi.GameLister. GET /games/searches itself lists the matchmaker's
// in-memory pending index (Matchmaker.Snapshot) and does not call this
// query.
func (s *Store) GamesSearching(page, pageSize int) ([]*engine.Game, error) {
	return s.queryGames(
		`SELECT `+gameColumns+` FROM games WHERE away_id IS NULL AND invited_id IS NULL
		 ORDER BY opened_at ASC LIMIT ? OFFSET ?`,
		pageSize, page*pageSize,
	)
}

// GamesInvitedTo lists games where userID is the pending invitee, for
// GET /games/invites.
func (s *Store) GamesInvitedTo(userID int64, page, pageSize int) ([]*engine.Game, error) {
	return s.queryGames(
		`SELECT `+gameColumns+` FROM games WHERE invited_id = ? ORDER BY opened_at DESC LIMIT ? OFFSET ?`,
		userID, pageSize, page*pageSize,
	)
}

// GamesOngoingFor lists userID's started-but-unfinished games, for
// GET /games/ongoing.
func (s *Store) GamesOngoingFor(userID int64, page, pageSize int) ([]*engine.Game, error) {
	return s.queryGames(
		`SELECT `+gameColumns+` FROM games
		 WHERE (host_id = ? OR away_id = ?) AND started_at IS NOT NULL AND ended_at IS NULL
		 ORDER BY last_turn DESC LIMIT ? OFFSET ?`,
		userID, userID, pageSize, page*pageSize,
	)
}

// GamesCompletedFor lists account's finished games, for
// GET /games/completed?account=.
func (s *Store) GamesCompletedFor(userID int64, page, pageSize int) ([]*engine.Game, error) {
	return s.queryGames(
		`SELECT `+gameColumns+` FROM games
		 WHERE (host_id = ? OR away_id = ?) AND ended_at IS NOT NULL
		 ORDER BY ended_at DESC LIMIT ? OFFSET ?`,
		userID, userID, pageSize, page*pageSize,
	)
}

// GamesCommonCompleted lists finished games between two specific
// accounts, for GET /games/common_completed?account=.
func (s *Store) GamesCommonCompleted(userA, userB int64, page, pageSize int) ([]*engine.Game, error) {
	return s.queryGames(
		`SELECT `+gameColumns+` FROM games
		 WHERE ended_at IS NOT NULL
		   AND ((host_id = ? AND away_id = ?) OR (host_id = ? AND away_id = ?))
		 ORDER BY ended_at DESC LIMIT ? OFFSET ?`,
		userA, userB, userB, userA, pageSize, page*pageSize,
	)
}
