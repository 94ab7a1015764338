package rebalance

import "database/sql"

// AddOperationLog adds a new operation log entry.
func (c *Core) AddOperationLog(log OperationLog) (int64, error) {
	result, err := c.db.Exec(`
		INSERT INTO operation_logs (operation_type, entity_id, details)
		VALUES (?, ?, ?)
	`, log.Operation, log.EntityID, log.Details)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert operation log", err)
	}
	return result.LastInsertId()
}

// GetOperationLogs returns recent operation logs.
func (c *Core) GetOperationLogs(limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.Query(
		"SELECT id, operation_type, entity_id, details, created_at FROM operation_logs ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query operation logs", err)
	}
	defer rows.Close()

	var logs []OperationLog
	for rows.Next() {
		var log OperationLog
		var entityID, details, createdAt sql.NullString
		if err := rows.Scan(&log.ID, &log.Operation, &entityID, &details, &createdAt); err != nil {
			return nil, err
		}
		if entityID.Valid {
			log.EntityID = &entityID.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
