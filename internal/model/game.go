package model

import "time"

// Game is one fetched chess game, stored so a month is never downloaded and
// re-evaluated twice. (UserID, Source, SourceGameID) is unique — the source
// game ID is the trailing path segment of the game URL on chess.com.
type Game struct {
	ID           string     `json:"id"             db:"id"`
	UserID       string     `json:"user_id"        db:"user_id"`
	Source       string     `json:"source"         db:"source"` // "chess.com"
	SourceGameID string     `json:"source_game_id" db:"source_game_id"`
	GameURL      string     `json:"game_url"       db:"game_url"`
	PGN          string     `json:"-"              db:"pgn_data"`
	GameDate     time.Time  `json:"game_date"      db:"game_date"`
	AnalyzedAt   *time.Time `json:"analyzed_at"    db:"analyzed_at"`
	CreatedAt    time.Time  `json:"created_at"     db:"created_at"`
}

// SourceChessCom is the only game source currently ingested.
const SourceChessCom = "chess.com"
