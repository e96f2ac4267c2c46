package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	matchEvaluatedSchema = "events/match-evaluated"

	// MatchEvaluatedRoutingKey is the routing key match events are published
	// under.
	MatchEvaluatedRoutingKey = "saved_search.match_evaluated"
	MatchEvaluatedVersion    = 1
)

// MatchEvaluated reports the match count of one active saved search at the
// time of a sweep. Detecting new matches is left to consumers.
type MatchEvaluated struct {
	SchemaVersion int       `json:"schema_version"`
	SavedSearchID string    `json:"saved_search_id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name,omitempty"`
	Count         int       `json:"count"`
	Exact         bool      `json:"exact"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// EncodeMatchEvaluated stamps the schema version and validates the result.
func EncodeMatchEvaluated(e MatchEvaluated) ([]byte, error) {
	e.SchemaVersion = MatchEvaluatedVersion
	e.EvaluatedAt = e.EvaluatedAt.UTC()
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode match event: %w", err)
	}
	if err := Validate(matchEvaluatedSchema, MatchEvaluatedVersion, body); err != nil {
		return nil, err
	}
	return body, nil
}

// DecodeMatchEvaluated validates and parses a match event.
func DecodeMatchEvaluated(body []byte) (MatchEvaluated, error) {
	var e MatchEvaluated
	version, err := peekVersion(body)
	if err != nil {
		return e, fmt.Errorf("decode match event: %w", err)
	}
	if err := Validate(matchEvaluatedSchema, version, body); err != nil {
		return e, err
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("decode match event: %w", err)
	}
	return e, nil
}
