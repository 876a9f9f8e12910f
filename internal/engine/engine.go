// Package engine runs UCI chess engines and exposes position evaluations.
package engine

import (
	"context"
	"fmt"
)

// mateScore is the centipawn value substituted for a forced mate so mate
// scores dominate any material evaluation.
const mateScore = 10000

// Score is an engine evaluation from the side to move's point of view.
// Exactly one of CP or Mate is meaningful; Mate != 0 wins.
type Score struct {
	CP   int
	Mate int
}

// Centipawns flattens the score onto a single centipawn scale, clamping
// mates to +-mateScore.
func (s Score) Centipawns() int {
	if s.Mate > 0 {
		return mateScore
	}
	if s.Mate < 0 {
		return -mateScore
	}
	return s.CP
}

func (s Score) String() string {
	if s.Mate != 0 {
		return fmt.Sprintf("#%d", s.Mate)
	}
	return fmt.Sprintf("%+d", s.CP)
}

// Line is one principal variation from a multipv search.
type Line struct {
	MultiPV int
	Score   Score
	Moves   []string // UCI notation, best move first
}

// Move returns the first move of the line, or "" for an empty PV.
func (l Line) Move() string {
	if len(l.Moves) == 0 {
		return ""
	}
	return l.Moves[0]
}

// Evaluation is the result of searching one position.
type Evaluation struct {
	Lines []Line // sorted by MultiPV ascending
}

// Best returns the top line. ok is false when the engine produced no lines,
// which happens on positions that are already checkmate or stalemate.
func (e Evaluation) Best() (Line, bool) {
	if len(e.Lines) == 0 {
		return Line{}, false
	}
	return e.Lines[0], true
}

// Second returns the second-best line if the search ran with multipv >= 2
// and the position has at least two legal moves.
func (e Evaluation) Second() (Line, bool) {
	if len(e.Lines) < 2 {
		return Line{}, false
	}
	return e.Lines[1], true
}

// ScoreOf returns the score of the line starting with the given UCI move.
func (e Evaluation) ScoreOf(uciMove string) (Score, bool) {
	for _, l := range e.Lines {
		if l.Move() == uciMove {
			return l.Score, true
		}
	}
	return Score{}, false
}

// Evaluator searches single positions.
type Evaluator interface {
	// Evaluate searches the position given as a FEN string. The returned
	// scores are from the perspective of the side to move in that FEN.
	Evaluate(ctx context.Context, fen string) (Evaluation, error)
}

// Source hands out evaluators for the duration of one game analysis.
type Source interface {
	// Acquire blocks until an evaluator is free or ctx is done.
	Acquire(ctx context.Context) (Evaluator, error)
	// Release returns a healthy evaluator to the source.
	Release(e Evaluator)
	// Discard drops a broken evaluator; the source replaces it.
	Discard(e Evaluator)
}
