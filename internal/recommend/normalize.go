package recommend

import (
	"sort"

	"hotelbook/internal/models"
)

// NormalizePersonalized fills the defaults the ML scorer may omit and returns
// a ranked list ordered by score.
func NormalizePersonalized(recs []models.ExternalRecommendation, rc models.RecommendationContext) []models.RankedRecommendation {
	out := make([]models.RankedRecommendation, 0, len(recs))
	for i, rec := range recs {
		item := models.RankedRecommendation{
			ResourceID:  rec.ResourceID,
			Resource:    rec.Resource,
			Rank:        i + 1,
			Score:       0.5,
			Confidence:  models.ConfidenceMedium,
			Source:      models.SourcePersonalized,
			Explanation: rec.Explanation,
			Image:       rec.Image,
		}
		if rec.Rank != nil && *rec.Rank > 0 {
			item.Rank = *rec.Rank
		}
		if rec.Score != nil {
			item.Score = clamp(*rec.Score)
		}
		if rec.Confidence != "" {
			item.Confidence = rec.Confidence
		}
		if item.Explanation == "" {
			item.Explanation = matchesExplanation(rc.Kind, rc.Occasion)
		}
		if item.Image == "" && rec.Resource != nil {
			item.Image = rec.Resource.Image
		}
		if item.Image == "" {
			item.Image = models.PlaceholderImage(rc.Kind)
		}
		out = append(out, item)
	}

	// Scorer ranks win ties; score order wins otherwise.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return Rank(out, rc.ResultCount)
}

// FromPopular converts a popularity listing, best first, into ranked entries
// with score (N-index)/N.
func FromPopular(resources []models.Resource, rc models.RecommendationContext) []models.RankedRecommendation {
	n := len(resources)
	out := make([]models.RankedRecommendation, 0, n)
	for i := range resources {
		res := resources[i]
		out = append(out, models.RankedRecommendation{
			ResourceID:  res.ID,
			Resource:    &res,
			Score:       float64(n-i) / float64(n),
			Confidence:  models.ConfidenceMedium,
			Source:      models.SourcePopularity,
			Rank:        i + 1,
			Explanation: popularExplanation(rc.Kind, res),
			Image:       imageOr(res.Image, rc.Kind),
		})
	}
	return Rank(out, rc.ResultCount)
}

// Heuristic scores every candidate with Score. Only resources marked
// Available are used unless none are.
func Heuristic(resources []models.Resource, rc models.RecommendationContext) []models.RankedRecommendation {
	candidates := resources
	available := make([]models.Resource, 0, len(resources))
	for i := range resources {
		if resources[i].IsAvailable() {
			available = append(available, resources[i])
		}
	}
	if len(available) > 0 {
		candidates = available
	}

	out := make([]models.RankedRecommendation, 0, len(candidates))
	for i := range candidates {
		res := candidates[i]
		sr := Score(res, rc)
		out = append(out, models.RankedRecommendation{
			ResourceID:  res.ID,
			Resource:    &res,
			Score:       sr.Score,
			Confidence:  sr.Confidence,
			Source:      models.SourceHeuristic,
			Explanation: sr.Explanation,
			Image:       imageOr(res.Image, rc.Kind),
		})
	}
	return Rank(out, rc.ResultCount)
}

// Rank orders recs by score, highest first, keeping input order on ties.
// Ranks are rewritten to 1..N and the list is capped at limit when limit > 0.
func Rank(recs []models.RankedRecommendation, limit int) []models.RankedRecommendation {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

func imageOr(image, kind string) string {
	if image != "" {
		return image
	}
	return models.PlaceholderImage(kind)
}
