package model

import "time"

// Habit is one clustered pattern of recurring mistakes, with the coaching
// text generated for it. Habits are transient per analysis run: a new run
// clears the user's previous habits before saving fresh ones.
//
// The JSON field names are the wire contract the dashboard consumes —
// they mirror the analysis response shape exactly, including the
// hdbscan_cluster_id name the frontend keys off.
type Habit struct {
	ID     string `json:"-" db:"id"`
	UserID string `json:"-" db:"user_id"`

	// Name carries a "(H<cluster>)" suffix so two habits with the same
	// LLM-suggested name never collide on the per-user unique constraint.
	Name           string   `json:"habit_name"         db:"habit_name"`
	Confidence     *float64 `json:"confidence"         db:"confidence"` // mean member confidence, 0..1
	Description    string   `json:"habit_description"  db:"description"`
	ImprovementTip string   `json:"improvement_tip"    db:"improvement_tip"`
	TotalMistakes  int      `json:"total_mistakes"     db:"total_mistakes"`

	// PrimeExampleMistakeID points at the member mistake with the highest
	// centipawn loss — the clearest illustration of the habit.
	PrimeExampleMistakeID string `json:"prime_example_mistake_id,omitempty" db:"prime_example_mistake_id"`
	ClusterID             *int   `json:"hdbscan_cluster_id"                 db:"cluster_id"`

	// Triggers maps one-hot feature names (e.g. "game_phase_Endgame") to the
	// positive model coefficients that flagged them. Stored as JSON, not
	// exposed on the wire.
	Triggers map[string]float64 `json:"-" db:"triggers"`

	CreatedAt time.Time `json:"-" db:"created_at"`
}
