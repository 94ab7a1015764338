package rebalance

import "github.com/shopspring/decimal"

// Holding represents one position, created by brokerage sync or manual
// entry and read-only to the analysis engine. Market value is derived
// (quantity × current price), never stored.
type Holding struct {
	ID           int64   `json:"id"`
	Market       string  `json:"market"`
	Symbol       string  `json:"symbol"`
	Quantity     Amount  `json:"quantity"`
	CurrentPrice Amount  `json:"current_price"`
	MarketValue  Amount  `json:"market_value"`
	Currency     string  `json:"currency"`
	AccountID    string  `json:"account_id"`
	CreatedAt    *string `json:"created_at"`
	UpdatedAt    *string `json:"updated_at"`
}

// UpsertHoldingRequest defines inputs to create or refresh a holding.
type UpsertHoldingRequest struct {
	Market       string
	Symbol       string
	Quantity     decimal.Decimal
	CurrentPrice decimal.Decimal
	Currency     string
	AccountID    string
}

// Tag is a user-defined investment category attachable to holdings.
type Tag struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
	CreatedAt   *string `json:"created_at"`
}

// HoldingTag links a holding to a tag (many-to-many).
type HoldingTag struct {
	HoldingID int64  `json:"holding_id"`
	TagID     string `json:"tag_id"`
}

// RebalancingGroup is a named, ordered set of tags with target percentage
// weights, defining one rebalancing strategy.
type RebalancingGroup struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	BaseCurrency string   `json:"base_currency"`
	TagIDs       []string `json:"tag_ids"`
	CreatedAt    *string  `json:"created_at"`
	UpdatedAt    *string  `json:"updated_at"`
}

// TargetAllocation assigns a target percentage to one tag within a group.
type TargetAllocation struct {
	TagID         string  `json:"tag_id"`
	TargetPercent float64 `json:"target_percent"`
}

// TagAllocation is one tag's slice of a rebalancing analysis. Difference
// is target minus current; positive means underweight.
type TagAllocation struct {
	TagID          string `json:"tag_id"`
	TagName        string `json:"tag_name"`
	TagColor       string `json:"tag_color"`
	CurrentValue   Amount `json:"current_value"`
	CurrentPercent Amount `json:"current_percent"`
	TargetPercent  Amount `json:"target_percent"`
	Difference     Amount `json:"difference"`
}

// RebalancingAnalysis compares a group's current allocation against its
// targets. Computed fresh per request, never cached.
type RebalancingAnalysis struct {
	GroupID      string          `json:"group_id"`
	GroupName    string          `json:"group_name"`
	TotalValue   Amount          `json:"total_value"`
	BaseCurrency string          `json:"base_currency"`
	LastUpdated  string          `json:"last_updated"`
	Allocations  []TagAllocation `json:"allocations"`
}

// InvestmentRecommendation proposes how much of a new cash amount should
// flow into one tag, with currently held symbols as buy candidates.
type InvestmentRecommendation struct {
	TagID            string   `json:"tag_id"`
	TagName          string   `json:"tag_name"`
	Amount           Amount   `json:"recommended_amount"`
	Percent          Amount   `json:"recommended_percent"`
	SuggestedSymbols []string `json:"suggested_symbols"`
	BaseCurrency     string   `json:"base_currency"`
}

// Account represents a brokerage account holdings belong to.
type Account struct {
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	Broker      *string `json:"broker"`
	AccountType *string `json:"account_type"`
	CreatedAt   *string `json:"created_at"`
}

// OperationLog represents an audit log record of a mutation.
type OperationLog struct {
	ID        int64   `json:"id"`
	Operation string  `json:"operation_type"`
	EntityID  *string `json:"entity_id"`
	Details   *string `json:"details"`
	CreatedAt *string `json:"created_at"`
}
