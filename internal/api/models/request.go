package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SubmitOrderRequest represents a single order submission. Price and
// quantity accept both JSON numbers and strings; strings avoid float
// precision loss at the client.
type SubmitOrderRequest struct {
	Owner    string          `json:"owner"`
	Pair     string          `json:"pair"`
	Kind     string          `json:"kind"` // "market" | "limit"
	Side     string          `json:"side"` // "buy" | "sell"
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Validate validates the order request
func (r *SubmitOrderRequest) Validate() *HTTPError {
	if strings.TrimSpace(r.Owner) == "" {
		return ErrBadRequest("owner cannot be empty", map[string]interface{}{"field": "owner"})
	}

	if strings.TrimSpace(r.Pair) == "" {
		return ErrInvalidPairError()
	}

	kind := strings.ToLower(strings.TrimSpace(r.Kind))
	if kind != "market" && kind != "limit" {
		return ErrInvalidOrderKindError(r.Kind)
	}

	side := strings.ToLower(strings.TrimSpace(r.Side))
	if side != "buy" && side != "sell" {
		return ErrInvalidSideError(r.Side)
	}

	if r.Quantity.Sign() <= 0 {
		return ErrInvalidQuantityError(r.Quantity.String())
	}

	if kind == "limit" {
		if r.Price.IsZero() {
			return ErrMissingPriceError()
		}
		if r.Price.Sign() <= 0 {
			return ErrInvalidPriceError(r.Price.String())
		}
	}

	return nil
}

// BatchOrderRequest represents a batch order submission
type BatchOrderRequest struct {
	Orders []SubmitOrderRequest `json:"orders"`
}

// Validate validates the batch request
func (r *BatchOrderRequest) Validate() *HTTPError {
	if len(r.Orders) == 0 {
		return ErrBadRequest("orders array cannot be empty", map[string]interface{}{"field": "orders"})
	}

	if len(r.Orders) > 1000 {
		return ErrBadRequest("batch size cannot exceed 1000 orders",
			map[string]interface{}{"field": "orders", "max_size": 1000, "provided_size": len(r.Orders)})
	}

	return nil
}
