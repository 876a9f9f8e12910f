// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Google is the identity provider, so the primary external identifier is the
// Google subject ID (a string of digits). We still generate our own internal
// string ID (xid) to avoid tying primary keys to a third party's numbering
// scheme.
//
// ChessComUsername is a pointer because "not linked yet" is a meaningful
// state the API must distinguish from an empty string: the dashboard renders
// the linking form until it is non-null. ChessLinkedAt records when the link
// was made and backs the once-per-month re-link rule.
type User struct {
	ID               string     `json:"id"                 db:"id"`
	GoogleID         string     `json:"-"                  db:"google_id"` // Google's subject claim, never exposed
	Name             string     `json:"name"               db:"name"`
	Email            string     `json:"email"              db:"email"` // immutable from the client's perspective
	ChessComUsername *string    `json:"chess_com_username" db:"chess_com_username"`
	ChessLinkedAt    *time.Time `json:"-"                  db:"chess_linked_at"`
	CreatedAt        time.Time  `json:"created_at"         db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"         db:"updated_at"`
}

// Linked reports whether a chess.com account is associated with the user.
// Analysis cannot run until this is true.
func (u *User) Linked() bool {
	return u.ChessComUsername != nil && *u.ChessComUsername != ""
}
