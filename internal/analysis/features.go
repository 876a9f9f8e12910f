package analysis

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sakif/chess-coach/internal/model"
)

// categoricalCols lists the categorical feature columns in a fixed order.
// The names double as column prefixes for one-hot feature names, so they
// must match the mistake JSON field names.
var categoricalCols = []string{
	"mistake_type", "mistake_category", "game_phase", "material_balance",
	"board_complexity", "king_self_safety", "king_opponent_status",
	"castling_status_self", "piece_moved", "move_type", "piece_was_attacked",
	"piece_was_defended", "piece_was_defending", "piece_was_pinned",
}

// contextTriggerPrefixes mark features describing the position the player
// was in; the rest describe what the player did.
var contextTriggerPrefixes = []string{
	"game_phase_", "material_balance_", "board_complexity_", "castling_status_",
}

func categoricalValues(m *model.Mistake) []string {
	return []string{
		m.MistakeType, m.MistakeCategory, m.GamePhase, m.MaterialBalance,
		m.BoardComplexity, m.KingSelfSafety, m.KingOpponentStatus,
		m.CastlingStatusSelf, m.PieceMoved, m.MoveType,
		strconv.FormatBool(m.PieceWasAttacked),
		strconv.FormatBool(m.PieceWasDefended),
		strconv.FormatBool(m.PieceWasDefending),
		strconv.FormatBool(m.PieceWasPinned),
	}
}

// oneHotEncoder maps categorical rows to a binary feature matrix with
// "column_value" feature names.
type oneHotEncoder struct {
	names []string
	index map[string]int // "col\x00value" -> feature column
}

func fitOneHot(rows [][]string) *oneHotEncoder {
	seen := make([]map[string]bool, len(categoricalCols))
	for j := range seen {
		seen[j] = map[string]bool{}
	}
	for _, row := range rows {
		for j, v := range row {
			seen[j][v] = true
		}
	}

	enc := &oneHotEncoder{index: map[string]int{}}
	for j, col := range categoricalCols {
		values := make([]string, 0, len(seen[j]))
		for v := range seen[j] {
			values = append(values, v)
		}
		sort.Strings(values)
		for _, v := range values {
			enc.index[col+"\x00"+v] = len(enc.names)
			enc.names = append(enc.names, col+"_"+v)
		}
	}
	return enc
}

func (e *oneHotEncoder) transform(row []string) []float64 {
	out := make([]float64, len(e.names))
	for j, v := range row {
		if idx, ok := e.index[categoricalCols[j]+"\x00"+v]; ok {
			out[idx] = 1
		}
	}
	return out
}

// TriggerSet is the output of trigger identification for one habit cluster:
// the positively associated one-hot features and the strongest context and
// action features among them.
type TriggerSet struct {
	Triggers   map[string]float64
	TopContext string
	TopAction  string
}

// triggerWeightThreshold filters model coefficients down to features with a
// meaningful positive association with the cluster.
const triggerWeightThreshold = 0.1

// FindTriggers trains a one-vs-all sparse logistic regression separating the
// cluster from every other mistake and returns the features that pull toward
// cluster membership. ok is false when the model finds no positive triggers.
func FindTriggers(mistakes []*model.Mistake, labels []int, cluster int) (TriggerSet, bool) {
	rows := make([][]string, len(mistakes))
	for i, m := range mistakes {
		rows[i] = categoricalValues(m)
	}
	enc := fitOneHot(rows)

	x := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i, row := range rows {
		x[i] = enc.transform(row)
		if labels[i] == cluster {
			y[i] = 1
		}
	}

	weights := trainL1Logistic(x, y)

	triggers := map[string]float64{}
	for j, name := range enc.names {
		if weights[j] > triggerWeightThreshold {
			triggers[name] = weights[j]
		}
	}
	if len(triggers) == 0 {
		return TriggerSet{}, false
	}

	ts := TriggerSet{Triggers: triggers}
	var bestContext, bestAction float64
	for name, w := range triggers {
		if isContextFeature(name) {
			if ts.TopContext == "" || w > bestContext {
				ts.TopContext, bestContext = name, w
			}
		} else {
			if ts.TopAction == "" || w > bestAction {
				ts.TopAction, bestAction = name, w
			}
		}
	}
	return ts, true
}

func isContextFeature(name string) bool {
	for _, prefix := range contextTriggerPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
