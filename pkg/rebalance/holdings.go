package rebalance

import (
	"context"
	"database/sql"
)

// UpsertHolding creates a holding or refreshes quantity and price of an
// existing one, keyed by (market, symbol, account). The owning account is
// created on the fly when missing so brokerage sync can write blind.
func (c *Core) UpsertHolding(req UpsertHoldingRequest) (int64, error) {
	symbol := normalizeSymbol(req.Symbol)
	if symbol == "" {
		return 0, NewError(ErrCodeInvalidInput, "symbol is required")
	}
	currency := normalizeCurrency(req.Currency)
	if !isValidCurrency(currency) {
		return 0, Errorf(ErrCodeInvalidInput, "invalid currency: %s", req.Currency)
	}
	if req.AccountID == "" {
		return 0, NewError(ErrCodeInvalidInput, "account_id is required")
	}
	if req.Quantity.IsNegative() {
		return 0, NewError(ErrCodeInvalidInput, "quantity must be non-negative")
	}
	if req.CurrentPrice.IsNegative() {
		return 0, NewError(ErrCodeInvalidInput, "current_price must be non-negative")
	}
	market := normalizeMarket(req.Market)

	quantity, _ := req.Quantity.Round(8).Float64()
	price, _ := req.CurrentPrice.Round(8).Float64()

	var id int64
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO accounts (account_id, account_name)
			VALUES (?, ?)
		`, req.AccountID, req.AccountID); err != nil {
			return WrapError(ErrCodeDatabase, "ensure account", err)
		}
		result, err := tx.Exec(`
			INSERT INTO holdings (market, symbol, quantity, current_price, currency, account_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(market, symbol, account_id) DO UPDATE SET
				quantity = excluded.quantity,
				current_price = excluded.current_price,
				currency = excluded.currency,
				updated_at = CURRENT_TIMESTAMP
		`, market, symbol, quantity, price, currency, req.AccountID)
		if err != nil {
			return WrapError(ErrCodeDatabase, "upsert holding", err)
		}
		if lastID, err := result.LastInsertId(); err == nil && lastID > 0 {
			id = lastID
		}
		if id == 0 {
			if err := tx.QueryRow(
				"SELECT id FROM holdings WHERE market = ? AND symbol = ? AND account_id = ?",
				market, symbol, req.AccountID,
			).Scan(&id); err != nil {
				return WrapError(ErrCodeDatabase, "resolve holding id", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetHoldings returns holdings with computed market value, optionally
// filtered by account.
func (c *Core) GetHoldings(accountID string) ([]Holding, error) {
	query := `
		SELECT id, market, symbol, quantity, current_price, currency, account_id, created_at, updated_at
		FROM holdings
	`
	params := []any{}
	if accountID != "" {
		query += " WHERE account_id = ?"
		params = append(params, accountID)
	}
	query += " ORDER BY symbol, account_id"

	rows, err := c.db.Query(query, params...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query holdings", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// GetHolding returns one holding by id.
func (c *Core) GetHolding(id int64) (*Holding, error) {
	rows, err := c.db.Query(`
		SELECT id, market, symbol, quantity, current_price, currency, account_id, created_at, updated_at
		FROM holdings WHERE id = ?
	`, id)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query holding", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, Errorf(ErrCodeNotFound, "holding not found: %d", id)
	}
	h, err := scanHolding(rows)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHolding removes a holding; its tag links go with it.
func (c *Core) DeleteHolding(id int64) (bool, error) {
	result, err := c.db.Exec("DELETE FROM holdings WHERE id = ?", id)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete holding", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (Holding, error) {
	var h Holding
	var createdAt, updatedAt sql.NullString
	if err := row.Scan(&h.ID, &h.Market, &h.Symbol, &h.Quantity, &h.CurrentPrice, &h.Currency, &h.AccountID, &createdAt, &updatedAt); err != nil {
		return Holding{}, err
	}
	if createdAt.Valid {
		h.CreatedAt = &createdAt.String
	}
	if updatedAt.Valid {
		h.UpdatedAt = &updatedAt.String
	}
	h.MarketValue = Amount{h.Quantity.Mul(h.CurrentPrice.Decimal)}
	return h, nil
}
