package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"hotelbook/internal/models"

	json "github.com/goccy/go-json"
)

type cacheKey struct {
	Kind        string `json:"kind"`
	Occasion    string `json:"occasion"`
	PartySize   int    `json:"party_size"`
	TimeSlot    string `json:"time_slot"`
	ResultCount int    `json:"result_count"`
	User        string `json:"user"`
}

// CacheKey derives the cache key of a request. Authenticated users get their
// own keys; everyone else shares the guest key.
func CacheKey(rc models.RecommendationContext, userID string, authenticated bool) string {
	user := models.GuestUserID
	if authenticated && userID != "" {
		user = "user:" + userID
	}
	k := cacheKey{
		Kind:        rc.Kind,
		Occasion:    rc.Occasion,
		PartySize:   rc.PartySize,
		TimeSlot:    rc.TimeSlot,
		ResultCount: rc.ResultCount,
		User:        user,
	}
	raw, err := json.Marshal(k)
	if err != nil {
		raw = []byte(fmt.Sprintf("%+v", k))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
