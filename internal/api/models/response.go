package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseResponse is the base structure for all API responses
type BaseResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// TradeDTO represents a trade in API responses
type TradeDTO struct {
	TradeID     string          `json:"trade_id"`
	Pair        string          `json:"pair"`
	BuyOrderID  uint64          `json:"buy_order_id"`
	SellOrderID uint64          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// SubmitOrderResponse represents the response for order submission
type SubmitOrderResponse struct {
	BaseResponse
	OrderID     uint64          `json:"order_id,omitempty"`
	Status      string          `json:"status,omitempty"`
	Disposition string          `json:"disposition,omitempty"`
	Filled      decimal.Decimal `json:"filled"`
	Remaining   decimal.Decimal `json:"remaining"`
	Trades      []TradeDTO      `json:"trades,omitempty"`
}

// BatchOrderResult represents a single order result in batch submission
type BatchOrderResult struct {
	Index   int        `json:"index"`
	Success bool       `json:"success"`
	OrderID uint64     `json:"order_id,omitempty"`
	Status  string     `json:"status,omitempty"`
	Trades  []TradeDTO `json:"trades,omitempty"`
	Error   *APIError  `json:"error,omitempty"`
}

// BatchOrderSummary provides summary statistics for batch submission
type BatchOrderSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchOrderResponse represents the response for batch order submission
type BatchOrderResponse struct {
	BaseResponse
	Results []BatchOrderResult `json:"results"`
	Summary BatchOrderSummary  `json:"summary"`
}

// CancelOrderResponse represents the response for order cancellation
type CancelOrderResponse struct {
	BaseResponse
	OrderID uint64 `json:"order_id,omitempty"`
}

// OrderDTO represents an order in API responses
type OrderDTO struct {
	OrderID   uint64          `json:"order_id"`
	Owner     string          `json:"owner"`
	Pair      string          `json:"pair"`
	Kind      string          `json:"kind"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Filled    decimal.Decimal `json:"filled"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// GetOrderResponse represents the response for getting a single order
type GetOrderResponse struct {
	BaseResponse
	Order *OrderDTO `json:"order,omitempty"`
}

// GetOrdersResponse represents the response for getting multiple orders
type GetOrdersResponse struct {
	BaseResponse
	Orders []OrderDTO `json:"orders"`
	Count  int        `json:"count"`
}

// PriceLevel represents an aggregated price level in the order book
type PriceLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

// OrderBookResponse represents the order book snapshot
type OrderBookResponse struct {
	BaseResponse
	Pair string       `json:"pair"`
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// BestQuote represents the best bid or ask
type BestQuote struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// TopOfBookResponse represents the best bid and ask
type TopOfBookResponse struct {
	BaseResponse
	Pair    string           `json:"pair"`
	BestBid *BestQuote       `json:"best_bid,omitempty"`
	BestAsk *BestQuote       `json:"best_ask,omitempty"`
	Spread  *decimal.Decimal `json:"spread,omitempty"`
}

// GetTradesResponse represents the response for getting trades
type GetTradesResponse struct {
	BaseResponse
	Trades []TradeDTO `json:"trades"`
	Count  int        `json:"count"`
}

// TickerResponse summarises 24h market activity for one pair
type TickerResponse struct {
	BaseResponse
	Pair      string           `json:"pair"`
	LastPrice *decimal.Decimal `json:"last_price,omitempty"`
	High      decimal.Decimal  `json:"high"`
	Low       decimal.Decimal  `json:"low"`
	Volume    decimal.Decimal  `json:"volume"`
	Trades    int              `json:"trades"`
	BestBid   *BestQuote       `json:"best_bid,omitempty"`
	BestAsk   *BestQuote       `json:"best_ask,omitempty"`
	Spread    *decimal.Decimal `json:"spread,omitempty"`
}

// PairsResponse lists pairs with live books
type PairsResponse struct {
	BaseResponse
	Pairs []string `json:"pairs"`
	Count int      `json:"count"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Version       string    `json:"version"`
	EventsDropped uint64    `json:"events_dropped"`
}
