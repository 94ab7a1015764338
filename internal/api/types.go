package api

import "encoding/json"

type addAccountPayload struct {
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	Broker      *string `json:"broker"`
	AccountType *string `json:"account_type"`
}

type upsertHoldingPayload struct {
	Market       string      `json:"market"`
	Symbol       string      `json:"symbol"`
	Quantity     json.Number `json:"quantity"`
	CurrentPrice json.Number `json:"current_price"`
	Currency     string      `json:"currency"`
	AccountID    string      `json:"account_id"`
}

type addTagPayload struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}

type updateTagPayload struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

type linkTagPayload struct {
	TagID string `json:"tag_id"`
}

type createGroupPayload struct {
	Name         string   `json:"name"`
	BaseCurrency string   `json:"base_currency"`
	TagIDs       []string `json:"tag_ids"`
}

type updateGroupPayload struct {
	Name         *string   `json:"name"`
	BaseCurrency *string   `json:"base_currency"`
	TagIDs       *[]string `json:"tag_ids"`
}

type targetsPayload struct {
	Targets []targetAllocationPayload `json:"targets"`
}

type targetAllocationPayload struct {
	TagID         string  `json:"tag_id"`
	TargetPercent float64 `json:"target_percent"`
}

type recommendationPayload struct {
	Amount json.Number `json:"amount"`
}

type aiAdvicePayload struct {
	BaseURL      string `json:"base_url"`
	APIKey       string `json:"api_key"`
	Model        string `json:"model"`
	CustomPrompt string `json:"custom_prompt"`
}
