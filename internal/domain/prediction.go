package domain

import (
	"fmt"
	"strings"
)

// Prediction is a wager on the final outcome of a fixture.
type Prediction string

const (
	PredictionHome Prediction = "home"
	PredictionDraw Prediction = "draw"
	PredictionAway Prediction = "away"
)

// Predictions lists every valid prediction in display order.
var Predictions = []Prediction{PredictionHome, PredictionDraw, PredictionAway}

// Valid reports whether p is one of home, draw or away.
func (p Prediction) Valid() bool {
	switch p {
	case PredictionHome, PredictionDraw, PredictionAway:
		return true
	}
	return false
}

// ParsePrediction parses a case-insensitive prediction name.
func ParsePrediction(s string) (Prediction, error) {
	p := Prediction(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: prediction %q", ErrInvalidInput, s)
	}
	return p, nil
}

// OutcomeFromScore maps a final score to the prediction it satisfies.
func OutcomeFromScore(s Score) Prediction {
	switch {
	case s.Home > s.Away:
		return PredictionHome
	case s.Home == s.Away:
		return PredictionDraw
	default:
		return PredictionAway
	}
}

// DidPredictionWin reports whether p matches the outcome of score.
func DidPredictionWin(p Prediction, score Score) bool {
	return OutcomeFromScore(score) == p
}
