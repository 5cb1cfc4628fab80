package chessdto

// Position is a 1-based board coordinate.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Move carries the promotion piece by name ("QUEEN"); empty when none.
type Move struct {
	StartPosition  Position `json:"startPosition"`
	EndPosition    Position `json:"endPosition"`
	PromotionPiece string   `json:"promotionPiece,omitempty"`
}

// GameSnapshot is the serialized game inside LOAD_GAME. ChessBoard is the
// base64 binary board.
type GameSnapshot struct {
	CurrentTeam string `json:"currentTeam"`
	ChessBoard  string `json:"chessBoard"`
	Round       int    `json:"round"`
}
