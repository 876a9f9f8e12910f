// Package coach turns a clustered mistake pattern into human coaching
// feedback via the Gemini API, with a static fallback when the API is
// unavailable.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for feedback generation.
const DefaultModel = "gemini-2.5-flash"

const maxAttempts = 3

// ClusterSummary describes the statistical shape of one habit cluster for
// the prompt.
type ClusterSummary struct {
	TotalMistakes   int      `json:"total_mistakes_in_habit"`
	AvgCPL          int      `json:"avg_cpl"`
	MaxCPL          int      `json:"most_severe_cpl"`
	TopMistakeTypes []string `json:"top_mistake_type"`
	TopGamePhases   []string `json:"top_game_phase"`
	TopPiecesMoved  []string `json:"top_piece_moved"`
	TopCategories   []string `json:"top_mistake_category"`
}

// Request carries everything the coach needs to describe one habit.
type Request struct {
	ClusterID  int
	Confidence float64
	TopContext string // strongest positional trigger feature, may be empty
	TopAction  string // strongest behavioral trigger feature, may be empty
	Triggers   map[string]float64
	Summary    ClusterSummary
}

// Feedback is the structured coaching output for one habit.
type Feedback struct {
	HabitName string `json:"habit_name"`
	Feedback  string `json:"feedback"`
	Tip       string `json:"tip"`
}

// Gemini generates feedback through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger

	// sleep is swapped out in tests so retries do not wait
	sleep func(time.Duration)
}

// NewGemini builds a coach backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("coach: Gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("coach: creating Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, logger: logger, sleep: time.Sleep}, nil
}

var feedbackSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"habit_name": {
			Type:        genai.TypeString,
			Description: "A short, unique, descriptive name for the habit (max 6 words).",
		},
		"feedback": {
			Type:        genai.TypeString,
			Description: "A friendly coaching insight (1-2 sentences) explaining the cause of the habit.",
		},
		"tip": {
			Type:        genai.TypeString,
			Description: "One concrete improvement tip to correct the habit, addressing the strongest action trigger.",
		},
	},
	Required: []string{"habit_name", "feedback", "tip"},
}

const systemPrompt = "You are a friendly, encouraging, non-judgmental chess coach. " +
	"Your task is to analyze a player's recurring mistake pattern found by statistical clustering. " +
	"Use the provided cluster summary and trigger features to make your advice specific. " +
	"Respond with JSON only."

// Generate produces feedback for the habit, retrying with exponential
// backoff and falling back to a generic message when all attempts fail.
func (g *Gemini) Generate(ctx context.Context, req Request) Feedback {
	prompt := buildPrompt(req)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		fb, err := g.generateOnce(ctx, prompt)
		if err == nil {
			return fb
		}
		if ctx.Err() != nil {
			break
		}
		g.logger.Warn("coach generation failed",
			slog.Int("attempt", attempt+1),
			slog.Int("cluster", req.ClusterID),
			slog.String("error", err.Error()))
		if attempt < maxAttempts-1 {
			g.sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return FallbackFeedback(req)
}

func (g *Gemini) generateOnce(ctx context.Context, prompt string) (Feedback, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    feedbackSchema,
		},
	)
	if err != nil {
		return Feedback{}, fmt.Errorf("coach: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return Feedback{}, fmt.Errorf("coach: empty model response")
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(text), &fb); err != nil {
		return Feedback{}, fmt.Errorf("coach: decoding model response: %w", err)
	}
	if fb.HabitName == "" || fb.Feedback == "" || fb.Tip == "" {
		return Feedback{}, fmt.Errorf("coach: incomplete model response")
	}
	return fb, nil
}

// FallbackFeedback produces usable, if generic, feedback from the trigger
// features alone. It backs both the API failure path and the no-key setup.
func FallbackFeedback(req Request) Feedback {
	context := cleanFeature(req.TopContext)
	action := cleanFeature(req.TopAction)

	name := "Recurring Mistake Pattern"
	if action != "" {
		name = action + " Pattern"
	}

	var where string
	if context != "" {
		where = " in " + context + " positions"
	}
	feedback := fmt.Sprintf(
		"You have a recurring pattern of %d similar mistakes%s, averaging %d centipawns lost each.",
		req.Summary.TotalMistakes, where, req.Summary.AvgCPL)

	tip := "Slow down in these positions and double-check your move against the main threats."
	if action != "" {
		tip = fmt.Sprintf("Before committing, ask what changes when this happens: %s.", strings.ToLower(action))
	}

	return Feedback{HabitName: name, Feedback: feedback, Tip: tip}
}

// cleanFeature turns a one-hot feature name like "game_phase_Middlegame"
// into readable text ("Middlegame").
func cleanFeature(name string) string {
	if name == "" {
		return ""
	}
	if idx := strings.LastIndex(name, "_"); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func buildPrompt(req Request) string {
	summary, _ := json.MarshalIndent(req.Summary, "", "  ")

	triggerNames := make([]string, 0, len(req.Triggers))
	for name := range req.Triggers {
		triggerNames = append(triggerNames, name)
	}
	sort.Strings(triggerNames)
	triggerLines := make([]string, 0, len(triggerNames))
	for _, name := range triggerNames {
		triggerLines = append(triggerLines, fmt.Sprintf("- %s (weight %.2f)", name, req.Triggers[name]))
	}

	context := cleanFeature(req.TopContext)
	if context == "" {
		context = "General context"
	}
	action := cleanFeature(req.TopAction)
	if action == "" {
		action = "Imprecise move"
	}

	return fmt.Sprintf(`Cluster summary:
%s

Strongest triggers (statistical context):
- Top context feature: %s
- Top action feature: %s
- All significant triggers:
%s

Confidence of pattern: %.0f%%

Generate the habit name, coaching feedback, and improvement tip.`,
		summary, context, action, strings.Join(triggerLines, "\n"), req.Confidence*100)
}
