package mlclient

import (
	"strings"

	json "github.com/goccy/go-json"

	"hotelbook/internal/models"
)

// wireResponse is the loose envelope returned by the scorer.
type wireResponse struct {
	Success         bool        `json:"success"`
	Recommendations wireRecords `json:"recommendations"`
	Fallback        bool        `json:"fallback"`
	Cached          bool        `json:"cached"`
}

// wireRecord accepts every record shape the scorer has been seen to emit:
// flat ids, mongo style _id/_doc wrappers and a nested table or room object.
type wireRecord struct {
	ID              wireID          `json:"id"`
	MongoID         wireID          `json:"_id"`
	ResourceID      wireID          `json:"resource_id"`
	TableID         wireID          `json:"table_id"`
	RoomID          wireID          `json:"room_id"`
	Doc             *wireRecord     `json:"_doc"`
	Table           *wireResource   `json:"table"`
	Room            *wireResource   `json:"room"`
	Rank            *int            `json:"rank"`
	Score           *float64        `json:"score"`
	PredictedRating *float64        `json:"predicted_rating"`
	Confidence      json.RawMessage `json:"confidence"`
	Explanation     string          `json:"explanation"`
	Reason          string          `json:"reason"`
	Image           string          `json:"image"`
}

// wireRecords decodes record by record; a malformed record is skipped
// instead of failing the whole list.
type wireRecords []wireRecord

func (rs *wireRecords) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(wireRecords, 0, len(raws))
	for _, raw := range raws {
		var rec wireRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	*rs = out
	return nil
}

// wireID is an id sent as a string, a number or a mongo {"$oid": "..."}
// object. Any other shape decodes to empty.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	*id = ""

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = wireID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = wireID(n.String())
		return nil
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &oid); err == nil {
		*id = wireID(strings.TrimSpace(oid.OID))
	}
	return nil
}

type wireResource struct {
	ID            wireID   `json:"id"`
	MongoID       wireID   `json:"_id"`
	Name          string   `json:"name"`
	Capacity      int      `json:"capacity"`
	Category      string   `json:"category"`
	Type          string   `json:"type"`
	Location      string   `json:"location"`
	Ambiance      string   `json:"ambiance"`
	AverageRating *float64 `json:"avgRating"`
	Rating        *float64 `json:"average_rating"`
	Price         float64  `json:"price"`
	Status        string   `json:"status"`
	Image         string   `json:"image"`
}

func (w wireResponse) toModel(kind string) *models.PersonalizedResponse {
	out := &models.PersonalizedResponse{
		Success:  w.Success,
		Fallback: w.Fallback,
		Cached:   w.Cached,
	}
	for _, rec := range w.Recommendations {
		ext, ok := rec.toModel(kind)
		if !ok {
			continue
		}
		out.Recommendations = append(out.Recommendations, ext)
	}
	return out
}

// toModel maps one record. Records with no resolvable id are dropped.
func (r wireRecord) toModel(kind string) (models.ExternalRecommendation, bool) {
	rec := r
	if r.Doc != nil {
		rec = r.Doc.merge(r)
	}

	nested := rec.Table
	if kind == models.KindRoom || nested == nil {
		if rec.Room != nil {
			nested = rec.Room
		}
	}

	ext := models.ExternalRecommendation{
		ResourceID:  firstID(rec.ResourceID, rec.TableID, rec.RoomID, rec.ID, rec.MongoID),
		Rank:        rec.Rank,
		Score:       rec.Score,
		Confidence:  decodeConfidence(rec.Confidence),
		Explanation: firstNonEmpty(rec.Explanation, explanationFromReason(rec.Reason)),
		Image:       rec.Image,
	}
	if ext.Score == nil && rec.PredictedRating != nil {
		s := *rec.PredictedRating / 5
		ext.Score = &s
	}
	if nested != nil {
		res := nested.toModel(kind)
		if ext.ResourceID == "" {
			ext.ResourceID = res.ID
		}
		if res.ID == "" {
			res.ID = ext.ResourceID
		}
		if ext.Image == "" {
			ext.Image = res.Image
		}
		ext.Resource = &res
	}
	if ext.ResourceID == "" {
		return ext, false
	}
	return ext, true
}

// merge overlays the outer record's set fields onto the wrapped document.
func (r wireRecord) merge(outer wireRecord) wireRecord {
	if outer.Rank != nil {
		r.Rank = outer.Rank
	}
	if outer.Score != nil {
		r.Score = outer.Score
	}
	if len(outer.Confidence) > 0 {
		r.Confidence = outer.Confidence
	}
	if outer.Explanation != "" {
		r.Explanation = outer.Explanation
	}
	if outer.Image != "" {
		r.Image = outer.Image
	}
	if outer.Table != nil {
		r.Table = outer.Table
	}
	if outer.Room != nil {
		r.Room = outer.Room
	}
	return r
}

func (w wireResource) toModel(kind string) models.Resource {
	rating := w.AverageRating
	if rating == nil {
		rating = w.Rating
	}
	return models.Resource{
		ID:            firstID(w.ID, w.MongoID),
		Kind:          kind,
		Name:          w.Name,
		Capacity:      w.Capacity,
		Category:      firstNonEmpty(w.Category, w.Type),
		Location:      w.Location,
		Ambiance:      w.Ambiance,
		AverageRating: rating,
		BasePrice:     w.Price,
		Status:        w.Status,
		Image:         w.Image,
	}
}

// decodeConfidence accepts either a tier name or a 0..1 number.
func decodeConfidence(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var tier string
	if err := json.Unmarshal(raw, &tier); err == nil {
		switch strings.ToLower(tier) {
		case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
			return strings.ToLower(tier)
		}
		return ""
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch {
	case v > 0.7:
		return models.ConfidenceHigh
	case v > 0.4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func explanationFromReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "svd_collaborative_filtering":
		return "Recommended based on guests with similar preferences"
	default:
		return strings.ReplaceAll(reason, "_", " ")
	}
}

func firstID(ids ...wireID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
