package recommend

import (
	"fmt"
	"strconv"

	"hotelbook/internal/models"
)

const (
	baseScore     = 0.5
	sizeBonus     = 0.2
	ambianceBonus = 0.3
	ratingBonus   = 0.1
	ratingCutoff  = 4.0
	highCutoff    = 0.7
)

// ScoreResult is the heuristic verdict for one resource.
type ScoreResult struct {
	Score       float64
	Confidence  string
	Explanation string
}

// Score rates how well res fits rc. Pure.
func Score(res models.Resource, rc models.RecommendationContext) ScoreResult {
	score := baseScore
	explanation := suitablePrefix(res.Kind, rc.Occasion)

	if res.Capacity >= rc.PartySize && res.Capacity <= rc.PartySize+2 {
		score += sizeBonus
		explanation += fmt.Sprintf(" (perfect size for %d guests)", rc.PartySize)
	}

	if rc.Occasion == models.OccasionRomantic &&
		(res.Ambiance == models.AmbianceIntimate || res.Ambiance == models.AmbianceRomantic) {
		score += ambianceBonus
		explanation += " (romantic ambiance)"
	}

	if rating, ok := res.Rating(); ok && rating >= ratingCutoff {
		score += ratingBonus
		explanation += fmt.Sprintf(" (%s/5 stars)", strconv.FormatFloat(rating, 'f', -1, 64))
	}

	score = clamp(score)
	return ScoreResult{
		Score:       score,
		Confidence:  ConfidenceFor(score),
		Explanation: explanation,
	}
}

// ConfidenceFor maps a heuristic score to a tier. Never yields low.
func ConfidenceFor(score float64) string {
	if score > highCutoff {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func suitablePrefix(kind, occasion string) string {
	if kind == models.KindRoom {
		if occasion == "" {
			occasion = "your stay"
		}
		return "Room suitable for " + occasion
	}
	if occasion == "" {
		occasion = "dining"
	}
	return "Table suitable for " + occasion
}

func matchesExplanation(kind, occasion string) string {
	if kind == models.KindRoom {
		if occasion == "" {
			occasion = "your stay"
		}
		return "This room matches your preferences for " + occasion
	}
	if occasion == "" {
		occasion = "dining"
	}
	return "This table matches your preferences for " + occasion
}

func popularExplanation(kind string, res models.Resource) string {
	noun := "table"
	if kind == models.KindRoom {
		noun = "room"
	}
	if rating, ok := res.Rating(); ok && rating > 0 {
		return fmt.Sprintf("Popular %s with %.1f/5 stars", noun, rating)
	}
	return fmt.Sprintf("Popular %s with high ratings", noun)
}
