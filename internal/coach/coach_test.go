package coach

import (
	"context"
	"strings"
	"testing"
)

func sampleRequest() Request {
	return Request{
		ClusterID:  0,
		Confidence: 0.82,
		TopContext: "game_phase_Middlegame",
		TopAction:  "piece_moved_QUEEN",
		Triggers: map[string]float64{
			"game_phase_Middlegame": 0.55,
			"piece_moved_QUEEN":     0.43,
		},
		Summary: ClusterSummary{
			TotalMistakes:   12,
			AvgCPL:          240,
			MaxCPL:          700,
			TopMistakeTypes: []string{"Blunder (8)", "Mistake (4)"},
			TopGamePhases:   []string{"Middlegame (10)", "Endgame (2)"},
			TopPiecesMoved:  []string{"QUEEN (7)", "ROOK (5)"},
			TopCategories:   []string{"Hanging_Piece (9)", "Missed_Tactic (3)"},
		},
	}
}

// ============================================================
// FallbackFeedback
// ============================================================

func TestFallbackFeedback_UsesTriggers(t *testing.T) {
	fb := FallbackFeedback(sampleRequest())

	if fb.HabitName != "QUEEN Pattern" {
		t.Errorf("HabitName = %q, want QUEEN Pattern", fb.HabitName)
	}
	if !strings.Contains(fb.Feedback, "12 similar mistakes") {
		t.Errorf("Feedback missing mistake count: %q", fb.Feedback)
	}
	if !strings.Contains(fb.Feedback, "Middlegame positions") {
		t.Errorf("Feedback missing context: %q", fb.Feedback)
	}
	if !strings.Contains(fb.Feedback, "240 centipawns") {
		t.Errorf("Feedback missing average loss: %q", fb.Feedback)
	}
	if fb.Tip == "" {
		t.Error("Tip should never be empty")
	}
}

func TestFallbackFeedback_WithoutTriggers(t *testing.T) {
	req := sampleRequest()
	req.TopContext = ""
	req.TopAction = ""

	fb := FallbackFeedback(req)
	if fb.HabitName != "Recurring Mistake Pattern" {
		t.Errorf("HabitName = %q, want the generic name", fb.HabitName)
	}
	if fb.Feedback == "" || fb.Tip == "" {
		t.Error("fallback must always produce complete feedback")
	}
}

// ============================================================
// Static
// ============================================================

func TestStatic_GeneratesFallback(t *testing.T) {
	fb := Static{}.Generate(context.Background(), sampleRequest())
	if fb != FallbackFeedback(sampleRequest()) {
		t.Error("Static should answer with the fallback feedback")
	}
}

// ============================================================
// cleanFeature
// ============================================================

func TestCleanFeature(t *testing.T) {
	cases := []struct{ in, want string }{
		{"game_phase_Middlegame", "Middlegame"},
		{"piece_moved_QUEEN", "QUEEN"},
		{"board_complexity_High", "High"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanFeature(tc.in); got != tc.want {
			t.Errorf("cleanFeature(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// ============================================================
// buildPrompt
// ============================================================

func TestBuildPrompt_ContainsEverything(t *testing.T) {
	prompt := buildPrompt(sampleRequest())

	for _, fragment := range []string{
		`"total_mistakes_in_habit": 12`,
		`"avg_cpl": 240`,
		"Top context feature: Middlegame",
		"Top action feature: QUEEN",
		"- game_phase_Middlegame (weight 0.55)",
		"- piece_moved_QUEEN (weight 0.43)",
		"Confidence of pattern: 82%",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestBuildPrompt_EmptyTriggersGetPlaceholders(t *testing.T) {
	req := sampleRequest()
	req.TopContext = ""
	req.TopAction = ""

	prompt := buildPrompt(req)
	if !strings.Contains(prompt, "General context") {
		t.Error("prompt missing the context placeholder")
	}
	if !strings.Contains(prompt, "Imprecise move") {
		t.Error("prompt missing the action placeholder")
	}
}
