package mobile

import (
	"encoding/json"

	"rebalance/pkg/rebalance"
)

// Core wraps the rebalancing core for gomobile bindings. All methods
// exchange JSON strings because gomobile cannot bind slices of structs.
type Core struct {
	core *rebalance.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := rebalance.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// GetHoldingsJSON returns holdings as JSON, optionally filtered by account.
func (c *Core) GetHoldingsJSON(accountID string) (string, error) {
	data, err := c.core.GetHoldings(accountID)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// UpsertHoldingJSON creates or updates a holding from JSON and returns id JSON.
func (c *Core) UpsertHoldingJSON(payloadJSON string) (string, error) {
	var payload holdingPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", err
	}
	quantity, err := rebalance.ParseDecimal(payload.Quantity)
	if err != nil {
		return "", err
	}
	price, err := rebalance.ParseDecimal(payload.CurrentPrice)
	if err != nil {
		return "", err
	}
	id, err := c.core.UpsertHolding(rebalance.UpsertHoldingRequest{
		Market:       payload.Market,
		Symbol:       payload.Symbol,
		Quantity:     quantity,
		CurrentPrice: price,
		Currency:     payload.Currency,
		AccountID:    payload.AccountID,
	})
	if err != nil {
		return "", err
	}
	return marshalJSON(map[string]any{"id": id})
}

// DeleteHolding deletes a holding by id.
func (c *Core) DeleteHolding(id int64) (bool, error) {
	return c.core.DeleteHolding(id)
}

// GetTagsJSON returns all tags as JSON.
func (c *Core) GetTagsJSON() (string, error) {
	data, err := c.core.GetTags()
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// LinkHoldingTag attaches a tag to a holding.
func (c *Core) LinkHoldingTag(holdingID int64, tagID string) error {
	return c.core.LinkHoldingTag(holdingID, tagID)
}

// UnlinkHoldingTag detaches a tag from a holding.
func (c *Core) UnlinkHoldingTag(holdingID int64, tagID string) (bool, error) {
	return c.core.UnlinkHoldingTag(holdingID, tagID)
}

// GetGroupsJSON returns all rebalancing groups as JSON.
func (c *Core) GetGroupsJSON() (string, error) {
	data, err := c.core.GetGroups()
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// GetAnalysisJSON computes the current allocation analysis for a group.
func (c *Core) GetAnalysisJSON(groupID string) (string, error) {
	data, err := c.core.ComputeRebalancingAnalysis(groupID)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// GetRecommendationJSON computes investment recommendations for a group.
// The amount is a decimal string in the group's base currency.
func (c *Core) GetRecommendationJSON(groupID, amount string) (string, error) {
	parsed, err := rebalance.ParseDecimal(amount)
	if err != nil {
		return "", err
	}
	data, err := c.core.ComputeInvestmentRecommendation(groupID, parsed)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type holdingPayload struct {
	Market       string `json:"market"`
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	CurrentPrice string `json:"current_price"`
	Currency     string `json:"currency"`
	AccountID    string `json:"account_id"`
}
