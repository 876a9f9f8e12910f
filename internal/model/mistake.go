package model

import "time"

// Mistake classification by centipawn loss.
const (
	MistakeBlunder    = "Blunder"
	MistakeMistake    = "Mistake"
	MistakeInaccuracy = "Inaccuracy"
)

// Mistake categories — why the move was bad, not just how bad it was.
const (
	CategoryMissedTactic    = "Missed_Tactic"
	CategoryHangingPiece    = "Hanging_Piece"
	CategoryPositionalError = "Positional_Error"
)

// Mistake is one bad move together with the full feature vector the habit
// clustering runs on. The categorical fields deliberately hold a small closed
// set of string values (e.g. GamePhase is one of Opening/Middlegame/Endgame);
// they are one-hot encoded downstream, so a new value is a new feature, not
// an error.
//
// HabitID is NULL until clustering assigns the mistake to a habit; only
// unassigned mistakes enter the next clustering run.
type Mistake struct {
	ID      string  `json:"id"       db:"id"`
	GameID  string  `json:"game_id"  db:"game_id"`
	HabitID *string `json:"habit_id" db:"habit_id"`

	// Core move info
	MoveNumber  int    `json:"move_number"  db:"move_number"`
	PlayerColor string `json:"player_color" db:"player_color"` // "white" or "black"
	PriorFEN    string `json:"prior_fen"    db:"prior_fen"`
	MoveMade    string `json:"move_made"    db:"move_made"` // UCI, e.g. "g1f3"
	BestMove    string `json:"best_move"    db:"best_move"`

	// Engine verdict
	CPL             int    `json:"cpl"              db:"cpl"` // centipawn loss vs the best move
	MistakeType     string `json:"mistake_type"     db:"mistake_type"`
	MistakeCategory string `json:"mistake_category" db:"mistake_category"`

	// Position context
	GamePhase       string `json:"game_phase"       db:"game_phase"`
	MaterialBalance string `json:"material_balance" db:"material_balance"`
	BoardComplexity string `json:"board_complexity" db:"board_complexity"`

	// King safety context
	KingSelfSafety     string `json:"king_self_safety"     db:"king_self_safety"`
	KingOpponentStatus string `json:"king_opponent_status" db:"king_opponent_status"`
	CastlingStatusSelf string `json:"castling_status_self" db:"castling_status_self"`

	// Move/piece context
	PieceMoved string `json:"piece_moved" db:"piece_moved"` // "QUEEN", "PAWN", ...
	MoveType   string `json:"move_type"   db:"move_type"`   // Capture / Check / Quiet

	// Tactical context
	PieceWasAttacked  bool `json:"piece_was_attacked"  db:"piece_was_attacked"`
	PieceWasDefended  bool `json:"piece_was_defended"  db:"piece_was_defended"`
	PieceWasDefending bool `json:"piece_was_defending" db:"piece_was_defending"`
	PieceWasPinned    bool `json:"piece_was_pinned"    db:"piece_was_pinned"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
