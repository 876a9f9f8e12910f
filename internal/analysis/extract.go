package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/notnil/chess"

	"github.com/sakif/chess-coach/internal/engine"
	"github.com/sakif/chess-coach/internal/model"
)

// Centipawn loss thresholds for mistake classification.
const (
	cplBlunder    = 300
	cplMistake    = 100
	cplInaccuracy = 50

	// tacticGapThreshold marks a position as tactical when the best move is
	// this much better than the second best.
	tacticGapThreshold = 150
)

var pieceNames = map[chess.PieceType]string{
	chess.King:   "KING",
	chess.Queen:  "QUEEN",
	chess.Rook:   "ROOK",
	chess.Bishop: "BISHOP",
	chess.Knight: "KNIGHT",
	chess.Pawn:   "PAWN",
}

// ExtractMistakes replays the game and evaluates every position where the
// named player is to move. Each move losing at least the inaccuracy
// threshold comes back as a Mistake with its full feature vector; GameID is
// left for the caller to fill in.
func ExtractMistakes(ctx context.Context, eval engine.Evaluator, pgn, username string, logger *slog.Logger) ([]*model.Mistake, error) {
	pgnOpt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("analysis: parsing pgn: %w", err)
	}
	game := chess.NewGame(pgnOpt)

	userColor, err := playerColor(game, username)
	if err != nil {
		return nil, err
	}

	positions := game.Positions()
	moves := game.Moves()

	var mistakes []*model.Mistake
	for i, move := range moves {
		pos := positions[i]
		if pos.Turn() != userColor {
			continue
		}
		if pos.Status() != chess.NoMethod {
			continue // game already decided
		}

		evaluation, err := eval.Evaluate(ctx, pos.String())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("engine evaluation failed, skipping move",
				slog.String("fen", pos.String()), slog.String("error", err.Error()))
			continue
		}
		best, ok := evaluation.Best()
		if !ok {
			continue
		}
		bestScore := best.Score.Centipawns()

		userMove := move.String()
		userScore, found := scoreForUserMove(evaluation, userMove)
		if !found {
			// Not in the top lines: evaluate the position after the move
			// and flip the sign back to the mover's perspective.
			reply, err := eval.Evaluate(ctx, positions[i+1].String())
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn("engine evaluation of reply failed, skipping move",
					slog.String("fen", positions[i+1].String()), slog.String("error", err.Error()))
				continue
			}
			replyBest, ok := reply.Best()
			if !ok {
				continue // the move ended the game
			}
			userScore = -replyBest.Score.Centipawns()
		}

		cpl := bestScore - userScore
		if cpl < 0 {
			cpl = 0
		}
		mistakeType := classifyCPL(cpl)
		if mistakeType == "" {
			continue
		}

		pieces := snapshot(pos)
		fullmove := i/2 + 1
		moved, hasMoved := pieces[move.S1()]
		pieceMoved := "UNKNOWN"
		if hasMoved {
			pieceMoved = pieceNames[moved.Type()]
		}

		mistakes = append(mistakes, &model.Mistake{
			MoveNumber:  fullmove,
			PlayerColor: strings.ToLower(userColor.Name()),
			PriorFEN:    pos.String(),
			MoveMade:    userMove,
			BestMove:    best.Move(),
			CPL:         cpl,
			MistakeType: mistakeType,
			MistakeCategory: categorize(evaluation, pieces, move),

			GamePhase:       gamePhase(pieces, fullmove),
			MaterialBalance: materialBalance(pieces, userColor),
			BoardComplexity: boardComplexity(pieces),

			KingSelfSafety:     kingSafety(pieces, userColor),
			KingOpponentStatus: kingSafety(pieces, userColor.Other()),
			CastlingStatusSelf: castlingStatus(pos, pieces, userColor),

			PieceMoved: pieceMoved,
			MoveType:   moveType(move),

			PieceWasAttacked:  isAttackedBy(pieces, userColor.Other(), move.S1()),
			PieceWasDefended:  defendedByOthers(pieces, userColor, move.S1()),
			PieceWasDefending: isDefending(pieces, userColor, move.S1()),
			PieceWasPinned:    isPinned(pieces, userColor, move.S1()),
		})
	}
	return mistakes, nil
}

func playerColor(game *chess.Game, username string) (chess.Color, error) {
	if tag := game.GetTagPair("White"); tag != nil && strings.EqualFold(tag.Value, username) {
		return chess.White, nil
	}
	if tag := game.GetTagPair("Black"); tag != nil && strings.EqualFold(tag.Value, username) {
		return chess.Black, nil
	}
	return chess.NoColor, fmt.Errorf("analysis: player %q not found in game headers", username)
}

func scoreForUserMove(evaluation engine.Evaluation, uciMove string) (int, bool) {
	score, ok := evaluation.ScoreOf(uciMove)
	if !ok {
		return 0, false
	}
	return score.Centipawns(), true
}

func classifyCPL(cpl int) string {
	switch {
	case cpl >= cplBlunder:
		return model.MistakeBlunder
	case cpl >= cplMistake:
		return model.MistakeMistake
	case cpl >= cplInaccuracy:
		return model.MistakeInaccuracy
	default:
		return ""
	}
}

// categorize picks the dominant explanation for a mistake: a tactic existed
// and was missed, the moved piece was hung, or neither.
func categorize(evaluation engine.Evaluation, pieces boardMap, move *chess.Move) string {
	if second, ok := evaluation.Second(); ok {
		if best, ok := evaluation.Best(); ok {
			if best.Score.Centipawns()-second.Score.Centipawns() > tacticGapThreshold {
				return model.CategoryMissedTactic
			}
		}
	}
	if isHang(pieces, move) {
		return model.CategoryHangingPiece
	}
	return model.CategoryPositionalError
}

// defendedByOthers reports whether a friendly piece other than the one on sq
// covers sq.
func defendedByOthers(pieces boardMap, color chess.Color, sq chess.Square) bool {
	for from, p := range pieces {
		if from == sq || p.Color() != color {
			continue
		}
		if attacks(pieces, from, sq) {
			return true
		}
	}
	return false
}
