package contract

import (
	"fmt"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// PredictionCodec maps predictions to the uint8 values the match manager
// stores. The mapping is configurable because it must follow the deployed
// contract's enum order.
type PredictionCodec struct {
	toWire   map[domain.Prediction]uint8
	fromWire map[uint8]domain.Prediction
}

// DefaultPredictionCodec returns the {home: 0, draw: 1, away: 2} mapping.
func DefaultPredictionCodec() PredictionCodec {
	c, _ := NewPredictionCodec(0, 1, 2)
	return c
}

// NewPredictionCodec builds a codec from the wire value of each prediction.
// The three values must be distinct.
func NewPredictionCodec(home, draw, away uint8) (PredictionCodec, error) {
	if home == draw || home == away || draw == away {
		return PredictionCodec{}, fmt.Errorf("contract: prediction encoding home=%d draw=%d away=%d must be distinct: %w",
			home, draw, away, domain.ErrInvalidInput)
	}
	c := PredictionCodec{
		toWire: map[domain.Prediction]uint8{
			domain.PredictionHome: home,
			domain.PredictionDraw: draw,
			domain.PredictionAway: away,
		},
		fromWire: make(map[uint8]domain.Prediction, 3),
	}
	for p, v := range c.toWire {
		c.fromWire[v] = p
	}
	return c, nil
}

// Encode returns the wire value of p.
func (c PredictionCodec) Encode(p domain.Prediction) (uint8, error) {
	v, ok := c.toWire[p]
	if !ok {
		return 0, fmt.Errorf("contract: encode prediction %q: %w", p, domain.ErrInvalidInput)
	}
	return v, nil
}

// Decode returns the prediction stored as v.
func (c PredictionCodec) Decode(v uint8) (domain.Prediction, error) {
	p, ok := c.fromWire[v]
	if !ok {
		return "", fmt.Errorf("contract: decode prediction %d: %w", v, domain.ErrInvalidInput)
	}
	return p, nil
}
