package domain

import (
	"strings"

	"github.com/park285/cheese-chess-server/internal/chess"
)

// GameState is the persisted lifecycle of a game.
type GameState string

const (
	StateUnfinished GameState = "UNFINISHED"
	StateCheckmate  GameState = "CHECKMATE"
	StateStalemate  GameState = "STALEMATE"
	StateResigned   GameState = "RESIGNED"
)

func (s GameState) Finished() bool {
	return s != "" && s != StateUnfinished
}

// GameRecord is the authoritative stored game. Live sessions never keep one
// across requests; they load, mutate and persist it again.
type GameRecord struct {
	ID            int         `json:"gameID"`
	WhiteUsername string      `json:"whiteUsername,omitempty"`
	BlackUsername string      `json:"blackUsername,omitempty"`
	GameName      string      `json:"gameName"`
	Game          *chess.Game `json:"game"`
	State         GameState   `json:"state"`
}

// Player returns the username holding color, or "".
func (r *GameRecord) Player(color chess.Color) string {
	if color == chess.Black {
		return r.BlackUsername
	}
	return r.WhiteUsername
}

func (r *GameRecord) SetPlayer(color chess.Color, username string) {
	username = strings.TrimSpace(username)
	if color == chess.Black {
		r.BlackUsername = username
		return
	}
	r.WhiteUsername = username
}

// Clone deep-copies the record including its game.
func (r *GameRecord) Clone() *GameRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Game != nil {
		out.Game = r.Game.Copy()
	}
	return &out
}

type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Email        string `json:"email"`
}

type AuthToken struct {
	Token    string `json:"authToken"`
	Username string `json:"username"`
}
