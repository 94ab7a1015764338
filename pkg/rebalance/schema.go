package rebalance

import "database/sql"

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS accounts (
			account_id TEXT PRIMARY KEY,
			account_name TEXT NOT NULL,
			broker TEXT,
			account_type TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS holdings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			market TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			quantity REAL NOT NULL,
			current_price REAL NOT NULL,
			currency TEXT NOT NULL,
			account_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME,
			UNIQUE(market, symbol, account_id),
			FOREIGN KEY(account_id) REFERENCES accounts(account_id) ON UPDATE CASCADE ON DELETE RESTRICT
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL DEFAULT '#808080',
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS holding_tags (
			holding_id INTEGER NOT NULL,
			tag_id TEXT NOT NULL,
			PRIMARY KEY(holding_id, tag_id),
			FOREIGN KEY(holding_id) REFERENCES holdings(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS rebalancing_groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			base_currency TEXT NOT NULL DEFAULT 'USD',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS group_tags (
			group_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(group_id, tag_id),
			FOREIGN KEY(group_id) REFERENCES rebalancing_groups(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS target_allocations (
			group_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			target_percent REAL NOT NULL DEFAULT 0,
			PRIMARY KEY(group_id, tag_id),
			FOREIGN KEY(group_id) REFERENCES rebalancing_groups(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS operation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_type TEXT NOT NULL,
			entity_id TEXT,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_holdings_account ON holdings(account_id)",
		"CREATE INDEX IF NOT EXISTS idx_holdings_symbol ON holdings(symbol)",
		"CREATE INDEX IF NOT EXISTS idx_holding_tags_tag ON holding_tags(tag_id)",
		"CREATE INDEX IF NOT EXISTS idx_group_tags_group ON group_tags(group_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_target_allocations_group ON target_allocations(group_id)",
	}
	for _, idx := range indexes {
		if err := exec(tx, idx); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}
