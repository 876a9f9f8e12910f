package analysis

import (
	"github.com/notnil/chess"
)

// Feature value sets. These feed one-hot encoding downstream, so the exact
// strings are part of the stored data contract.
const (
	PhaseOpening    = "Opening"
	PhaseMiddlegame = "Middlegame"
	PhaseEndgame    = "Endgame"

	BalanceWinning = "Winning"
	BalanceLosing  = "Losing"
	BalanceEqual   = "Equal"

	ComplexityHigh   = "High"
	ComplexityMedium = "Medium"
	ComplexityLow    = "Low"

	KingInCheck = "In_Check"
	KingExposed = "Exposed"
	KingSafe    = "Safe"

	CastlingDone   = "Has_Castled"
	CastlingCan    = "Can_Castle"
	CastlingCannot = "Cannot_Castle"

	MoveCapture = "Capture"
	MoveCheck   = "Check"
	MoveQuiet   = "Quiet"
)

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
	chess.King:   100, // internal value, never counted as material
}

// boardMap is a snapshot of piece placement. All the attack geometry below
// runs on it because the underlying board type is immutable and does not
// expose attack queries.
type boardMap map[chess.Square]chess.Piece

func snapshot(pos *chess.Position) boardMap {
	m := boardMap{}
	for sq, p := range pos.Board().SquareMap() {
		m[sq] = p
	}
	return m
}

func squareAt(file, rank int) (chess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return chess.Square(rank*8 + file), true
}

var (
	knightDeltas = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = [][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	rookDirs     = [][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	bishopDirs   = [][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
)

// attacks reports whether the piece on from attacks the target square given
// the occupancy in pieces. Attack means capture geometry, so pawn pushes do
// not count.
func attacks(pieces boardMap, from, target chess.Square) bool {
	p, ok := pieces[from]
	if !ok {
		return false
	}
	ff, fr := int(from.File()), int(from.Rank())
	tf, tr := int(target.File()), int(target.Rank())
	df, dr := tf-ff, tr-fr

	switch p.Type() {
	case chess.Pawn:
		dir := 1
		if p.Color() == chess.Black {
			dir = -1
		}
		return dr == dir && (df == 1 || df == -1)
	case chess.Knight:
		for _, d := range knightDeltas {
			if df == d[0] && dr == d[1] {
				return true
			}
		}
		return false
	case chess.King:
		return df >= -1 && df <= 1 && dr >= -1 && dr <= 1 && !(df == 0 && dr == 0)
	case chess.Rook:
		return slidesTo(pieces, ff, fr, tf, tr, rookDirs)
	case chess.Bishop:
		return slidesTo(pieces, ff, fr, tf, tr, bishopDirs)
	case chess.Queen:
		return slidesTo(pieces, ff, fr, tf, tr, rookDirs) ||
			slidesTo(pieces, ff, fr, tf, tr, bishopDirs)
	}
	return false
}

func slidesTo(pieces boardMap, ff, fr, tf, tr int, dirs [][2]int) bool {
	for _, d := range dirs {
		f, r := ff+d[0], fr+d[1]
		for {
			sq, ok := squareAt(f, r)
			if !ok {
				break
			}
			if f == tf && r == tr {
				return true
			}
			if _, occupied := pieces[sq]; occupied {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
	return false
}

// attackers returns the squares of all pieces of color attacking target.
func attackers(pieces boardMap, color chess.Color, target chess.Square) []chess.Square {
	var result []chess.Square
	for sq, p := range pieces {
		if p.Color() == color && attacks(pieces, sq, target) {
			result = append(result, sq)
		}
	}
	return result
}

func isAttackedBy(pieces boardMap, color chess.Color, target chess.Square) bool {
	for sq, p := range pieces {
		if p.Color() == color && attacks(pieces, sq, target) {
			return true
		}
	}
	return false
}

func kingSquare(pieces boardMap, color chess.Color) (chess.Square, bool) {
	for sq, p := range pieces {
		if p.Type() == chess.King && p.Color() == color {
			return sq, true
		}
	}
	return 0, false
}

// isPinned reports whether the piece on sq is absolutely pinned: removing it
// would expose its own king to attack.
func isPinned(pieces boardMap, color chess.Color, sq chess.Square) bool {
	p, ok := pieces[sq]
	if !ok || p.Color() != color || p.Type() == chess.King {
		return false
	}
	king, ok := kingSquare(pieces, color)
	if !ok {
		return false
	}
	if isAttackedBy(pieces, color.Other(), king) {
		return false // already in check, not a pin
	}

	without := boardMap{}
	for s, piece := range pieces {
		if s != sq {
			without[s] = piece
		}
	}
	return isAttackedBy(without, color.Other(), king)
}

// isDefending reports whether the piece on sq protects a friendly piece that
// is under enemy attack.
func isDefending(pieces boardMap, color chess.Color, sq chess.Square) bool {
	p, ok := pieces[sq]
	if !ok || p.Color() != color {
		return false
	}
	for target, other := range pieces {
		if target == sq || other.Color() != color {
			continue
		}
		if attacks(pieces, sq, target) && isAttackedBy(pieces, color.Other(), target) {
			return true
		}
	}
	return false
}

// isHang reports whether playing the move leaves the moved piece attacked and
// either undefended or trading down.
func isHang(pieces boardMap, move *chess.Move) bool {
	moved, ok := pieces[move.S1()]
	if !ok {
		return false
	}
	movedValue := pieceValues[moved.Type()]
	color := moved.Color()

	opponentAttackers := attackers(pieces, color.Other(), move.S2())
	if len(opponentAttackers) == 0 {
		return false
	}
	if len(attackers(pieces, color, move.S2())) == 0 {
		return true // attacked and undefended
	}

	lowestAttacker := pieceValues[chess.King]
	for _, sq := range opponentAttackers {
		if v := pieceValues[pieces[sq].Type()]; v < lowestAttacker {
			lowestAttacker = v
		}
	}
	return movedValue > lowestAttacker
}

func gamePhase(pieces boardMap, fullmove int) string {
	count := len(pieces)
	if fullmove < 12 && count > 28 {
		return PhaseOpening
	}
	if count < 14 {
		return PhaseEndgame
	}
	return PhaseMiddlegame
}

func materialBalance(pieces boardMap, color chess.Color) string {
	var own, opp int
	for _, p := range pieces {
		if p.Type() == chess.King {
			continue
		}
		if p.Color() == color {
			own += pieceValues[p.Type()]
		} else {
			opp += pieceValues[p.Type()]
		}
	}
	diff := own - opp
	if diff > 1 {
		return BalanceWinning
	}
	if diff < -1 {
		return BalanceLosing
	}
	return BalanceEqual
}

func boardComplexity(pieces boardMap) string {
	count := len(pieces)
	if count > 26 {
		return ComplexityHigh
	}
	if count < 10 {
		return ComplexityLow
	}
	return ComplexityMedium
}

// kingSafety classifies the king of color: in check, exposed (more than 3 of
// the surrounding squares controlled by the enemy), or safe.
func kingSafety(pieces boardMap, color chess.Color) string {
	king, ok := kingSquare(pieces, color)
	if !ok {
		return KingSafe
	}
	if isAttackedBy(pieces, color.Other(), king) {
		return KingInCheck
	}

	exposed := 0
	kf, kr := int(king.File()), int(king.Rank())
	for _, d := range kingDeltas {
		sq, ok := squareAt(kf+d[0], kr+d[1])
		if !ok {
			continue
		}
		if isAttackedBy(pieces, color.Other(), sq) {
			exposed++
		}
	}
	if exposed > 3 {
		return KingExposed
	}
	return KingSafe
}

func castlingStatus(pos *chess.Position, pieces boardMap, color chess.Color) string {
	rights := pos.CastleRights()
	hasRights := rights.CanCastle(color, chess.KingSide) || rights.CanCastle(color, chess.QueenSide)

	king, ok := kingSquare(pieces, color)
	if ok && !hasRights {
		castledSquares := []chess.Square{chess.G1, chess.C1}
		if color == chess.Black {
			castledSquares = []chess.Square{chess.G8, chess.C8}
		}
		for _, sq := range castledSquares {
			if king == sq {
				return CastlingDone
			}
		}
	}
	if hasRights {
		return CastlingCan
	}
	return CastlingCannot
}

func moveType(move *chess.Move) string {
	if move.HasTag(chess.Capture) || move.HasTag(chess.EnPassant) {
		return MoveCapture
	}
	if move.HasTag(chess.Check) {
		return MoveCheck
	}
	return MoveQuiet
}
