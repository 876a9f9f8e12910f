package analysis

import (
	"testing"

	"github.com/notnil/chess"
)

// fenPosition builds a position from a FEN string.
func fenPosition(t *testing.T, fen string) *chess.Position {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("bad FEN %q: %v", fen, err)
	}
	return chess.NewGame(opt).Position()
}

// moveFromUCI decodes a UCI move against the position so move tags
// (capture, check) are populated.
func moveFromUCI(t *testing.T, pos *chess.Position, uci string) *chess.Move {
	t.Helper()
	move, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		t.Fatalf("decoding move %q: %v", uci, err)
	}
	return move
}

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ============================================================
// attack geometry
// ============================================================

func TestAttacks_StartingPosition(t *testing.T) {
	pieces := snapshot(fenPosition(t, startFEN))

	if !attacks(pieces, chess.B1, chess.C3) {
		t.Error("knight b1 should attack c3")
	}
	if !attacks(pieces, chess.E2, chess.D3) {
		t.Error("pawn e2 should attack d3")
	}
	if attacks(pieces, chess.E2, chess.E3) {
		t.Error("pawn pushes are not attacks")
	}
	// a1 rook is blocked by its own pawn
	if attacks(pieces, chess.A1, chess.A3) {
		t.Error("rook a1 should be blocked by pawn a2")
	}
}

func TestAttacks_SlidersStopAtBlockers(t *testing.T) {
	// Rook e1 looks up the e-file; the knight on e5 blocks e6 and beyond.
	pieces := snapshot(fenPosition(t, "4k3/8/8/4n3/8/8/8/4RK2 w - - 0 1"))

	if !attacks(pieces, chess.E1, chess.E5) {
		t.Error("rook should attack the blocking knight itself")
	}
	if attacks(pieces, chess.E1, chess.E8) {
		t.Error("rook should not see through the knight")
	}
}

func TestIsAttackedBy(t *testing.T) {
	pieces := snapshot(fenPosition(t, startFEN))

	if !isAttackedBy(pieces, chess.White, chess.F3) {
		t.Error("f3 is covered by white pawns")
	}
	if isAttackedBy(pieces, chess.Black, chess.F3) {
		t.Error("no black piece reaches f3 from the start")
	}
}

// ============================================================
// pins, defense, hangs
// ============================================================

func TestIsPinned(t *testing.T) {
	// Knight e5 shields the black king from the rook on e1.
	pieces := snapshot(fenPosition(t, "4k3/8/8/4n3/8/8/8/4RK2 b - - 0 1"))

	if !isPinned(pieces, chess.Black, chess.E5) {
		t.Error("knight e5 should be pinned to the king")
	}
}

func TestIsPinned_FreePiece(t *testing.T) {
	// Same rook, but the knight is off the e-file.
	pieces := snapshot(fenPosition(t, "4k3/8/8/n7/8/8/8/4RK2 b - - 0 1"))

	if isPinned(pieces, chess.Black, chess.A5) {
		t.Error("knight a5 is not pinned")
	}
}

func TestIsDefending(t *testing.T) {
	// White pawn e5 is attacked by the rook on e8 and guarded by the
	// knight on f3.
	pieces := snapshot(fenPosition(t, "4r1k1/8/8/4P3/8/5N2/8/4K3 w - - 0 1"))

	if !isDefending(pieces, chess.White, chess.F3) {
		t.Error("knight f3 is defending the attacked pawn e5")
	}
	if isDefending(pieces, chess.White, chess.E1) {
		t.Error("the king guards nothing under attack here")
	}
}

func TestIsHang_UndefendedSquare(t *testing.T) {
	// Qd4 walks into the e5 pawn's capture square with no defender.
	pos := fenPosition(t, "4k3/8/8/4p3/8/8/8/3QK3 w - - 0 1")
	pieces := snapshot(pos)

	if !isHang(pieces, moveFromUCI(t, pos, "d1d4")) {
		t.Error("Qd4 hangs the queen to exd4")
	}
	if isHang(pieces, moveFromUCI(t, pos, "d1d3")) {
		t.Error("Qd3 is not attacked by anything")
	}
}

func TestIsHang_TradingDown(t *testing.T) {
	// d4 is guarded by the c3 pawn, but queen-for-pawn is still a hang.
	pos := fenPosition(t, "4k3/8/8/4p3/8/2P5/8/3QK3 w - - 0 1")
	pieces := snapshot(pos)

	if !isHang(pieces, moveFromUCI(t, pos, "d1d4")) {
		t.Error("a defended square does not save the queen from exd4")
	}
}

// ============================================================
// position features
// ============================================================

func TestGamePhase(t *testing.T) {
	start := snapshot(fenPosition(t, startFEN))
	if got := gamePhase(start, 1); got != PhaseOpening {
		t.Errorf("start position = %s, want Opening", got)
	}
	// Full board past move 12 is no longer the opening.
	if got := gamePhase(start, 15); got != PhaseMiddlegame {
		t.Errorf("move 15 = %s, want Middlegame", got)
	}

	endgame := snapshot(fenPosition(t, "8/5k2/8/8/8/8/5K2/4R3 w - - 0 50"))
	if got := gamePhase(endgame, 50); got != PhaseEndgame {
		t.Errorf("three pieces = %s, want Endgame", got)
	}
}

func TestMaterialBalance(t *testing.T) {
	start := snapshot(fenPosition(t, startFEN))
	if got := materialBalance(start, chess.White); got != BalanceEqual {
		t.Errorf("start position = %s, want Equal", got)
	}

	// White is up a full rook.
	rookUp := snapshot(fenPosition(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1"))
	if got := materialBalance(rookUp, chess.White); got != BalanceWinning {
		t.Errorf("rook up for white = %s, want Winning", got)
	}
	if got := materialBalance(rookUp, chess.Black); got != BalanceLosing {
		t.Errorf("rook down for black = %s, want Losing", got)
	}

	// One pawn is within the Equal band.
	pawnUp := snapshot(fenPosition(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"))
	if got := materialBalance(pawnUp, chess.White); got != BalanceEqual {
		t.Errorf("single pawn edge = %s, want Equal", got)
	}
}

func TestBoardComplexity(t *testing.T) {
	if got := boardComplexity(snapshot(fenPosition(t, startFEN))); got != ComplexityHigh {
		t.Errorf("32 pieces = %s, want High", got)
	}
	sparse := snapshot(fenPosition(t, "8/5k2/8/8/8/8/5K2/4R3 w - - 0 50"))
	if got := boardComplexity(sparse); got != ComplexityLow {
		t.Errorf("3 pieces = %s, want Low", got)
	}
	middling := snapshot(fenPosition(t, "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1"))
	if got := boardComplexity(middling); got != ComplexityMedium {
		t.Errorf("22 pieces = %s, want Medium", got)
	}
}

func TestKingSafety(t *testing.T) {
	start := snapshot(fenPosition(t, startFEN))
	if got := kingSafety(start, chess.White); got != KingSafe {
		t.Errorf("start position = %s, want Safe", got)
	}

	// Rook e2 checks the black king up the open e-file.
	check := snapshot(fenPosition(t, "4k3/8/8/8/8/8/4R3/4K3 b - - 0 1"))
	if got := kingSafety(check, chess.Black); got != KingInCheck {
		t.Errorf("king on open file = %s, want In_Check", got)
	}

	// King e5 in the open with rooks raking d- and f-files: six of its
	// eight neighbouring squares are enemy-controlled.
	exposed := snapshot(fenPosition(t, "8/8/8/4k3/8/8/8/K2R1R2 b - - 0 40"))
	if got := kingSafety(exposed, chess.Black); got != KingExposed {
		t.Errorf("king in rook crossfire = %s, want Exposed", got)
	}
}

func TestCastlingStatus(t *testing.T) {
	start := fenPosition(t, startFEN)
	if got := castlingStatus(start, snapshot(start), chess.White); got != CastlingCan {
		t.Errorf("start position = %s, want Can_Castle", got)
	}

	// Both sides castled kingside (Italian-style position).
	castled := fenPosition(t, "rnbq1rk1/pppp1ppp/5n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 w - - 6 5")
	if got := castlingStatus(castled, snapshot(castled), chess.White); got != CastlingDone {
		t.Errorf("castled white = %s, want Has_Castled", got)
	}
	if got := castlingStatus(castled, snapshot(castled), chess.Black); got != CastlingDone {
		t.Errorf("castled black = %s, want Has_Castled", got)
	}

	// Bare kings in the centre: rights gone, never castled.
	bare := fenPosition(t, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if got := castlingStatus(bare, snapshot(bare), chess.White); got != CastlingCannot {
		t.Errorf("bare king = %s, want Cannot_Castle", got)
	}
}

func TestMoveType(t *testing.T) {
	pos := fenPosition(t, "4k3/8/8/3p4/8/8/8/3QK3 w - - 0 1")
	if got := moveType(moveFromUCI(t, pos, "d1d5")); got != MoveCapture {
		t.Errorf("Qxd5 = %s, want Capture", got)
	}
	if got := moveType(moveFromUCI(t, pos, "d1a4")); got != MoveCheck {
		t.Errorf("Qa4+ = %s, want Check", got)
	}
	if got := moveType(moveFromUCI(t, pos, "d1d2")); got != MoveQuiet {
		t.Errorf("Qd2 = %s, want Quiet", got)
	}
}
