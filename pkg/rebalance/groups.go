package rebalance

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strings"

	"github.com/google/uuid"
)

// targetSumTolerance is the accepted drift when target percentages are
// checked against 100.
const targetSumTolerance = 0.01

// CreateGroupRequest defines inputs to create a rebalancing group.
type CreateGroupRequest struct {
	Name         string
	BaseCurrency string
	TagIDs       []string
}

// CreateGroup creates a group with an ordered tag set.
func (c *Core) CreateGroup(req CreateGroupRequest) (*RebalancingGroup, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewError(ErrCodeInvalidInput, "group name is required")
	}
	currency := normalizeCurrency(req.BaseCurrency)
	if currency == "" {
		currency = "USD"
	}
	if !isValidCurrency(currency) {
		return nil, Errorf(ErrCodeInvalidInput, "invalid base currency: %s", req.BaseCurrency)
	}
	tagIDs, err := dedupeTagIDs(req.TagIDs)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	err = c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO rebalancing_groups (id, name, base_currency, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, id, name, currency); err != nil {
			return WrapError(ErrCodeDatabase, "insert group", err)
		}
		return replaceGroupTags(tx, id, tagIDs)
	})
	if err != nil {
		return nil, err
	}
	c.logOperation("GROUP_CREATE", id, map[string]any{"name": name})
	return c.GetGroup(id)
}

// UpdateGroupRequest carries optional group field updates. A non-nil
// TagIDs replaces the group's ordered tag set; targets for removed tags
// are dropped.
type UpdateGroupRequest struct {
	Name         *string
	BaseCurrency *string
	TagIDs       *[]string
}

// UpdateGroup applies non-nil fields to an existing group.
func (c *Core) UpdateGroup(id string, req UpdateGroupRequest) (*RebalancingGroup, error) {
	if _, err := c.GetGroup(id); err != nil {
		return nil, err
	}
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return NewError(ErrCodeInvalidInput, "group name cannot be empty")
			}
			if _, err := tx.Exec("UPDATE rebalancing_groups SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", name, id); err != nil {
				return WrapError(ErrCodeDatabase, "update group name", err)
			}
		}
		if req.BaseCurrency != nil {
			currency := normalizeCurrency(*req.BaseCurrency)
			if !isValidCurrency(currency) {
				return Errorf(ErrCodeInvalidInput, "invalid base currency: %s", *req.BaseCurrency)
			}
			if _, err := tx.Exec("UPDATE rebalancing_groups SET base_currency = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", currency, id); err != nil {
				return WrapError(ErrCodeDatabase, "update group currency", err)
			}
		}
		if req.TagIDs != nil {
			tagIDs, err := dedupeTagIDs(*req.TagIDs)
			if err != nil {
				return err
			}
			if _, err := tx.Exec("DELETE FROM group_tags WHERE group_id = ?", id); err != nil {
				return WrapError(ErrCodeDatabase, "clear group tags", err)
			}
			if err := replaceGroupTags(tx, id, tagIDs); err != nil {
				return err
			}
			// Targets for tags no longer in the group are stale.
			if _, err := tx.Exec(`
				DELETE FROM target_allocations
				WHERE group_id = ?
				  AND tag_id NOT IN (SELECT tag_id FROM group_tags WHERE group_id = ?)
			`, id, id); err != nil {
				return WrapError(ErrCodeDatabase, "prune stale targets", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.GetGroup(id)
}

// GetGroup returns one group with its ordered tag ids.
func (c *Core) GetGroup(id string) (*RebalancingGroup, error) {
	var group RebalancingGroup
	var createdAt, updatedAt sql.NullString
	err := c.db.QueryRow(
		"SELECT id, name, base_currency, created_at, updated_at FROM rebalancing_groups WHERE id = ?", id,
	).Scan(&group.ID, &group.Name, &group.BaseCurrency, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "group not found: %s", id)
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query group", err)
	}
	if createdAt.Valid {
		group.CreatedAt = &createdAt.String
	}
	if updatedAt.Valid {
		group.UpdatedAt = &updatedAt.String
	}

	rows, err := c.db.Query("SELECT tag_id FROM group_tags WHERE group_id = ? ORDER BY position", id)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query group tags", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		group.TagIDs = append(group.TagIDs, tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroups returns all groups with their ordered tag ids.
func (c *Core) GetGroups() ([]RebalancingGroup, error) {
	rows, err := c.db.Query("SELECT id FROM rebalancing_groups ORDER BY created_at, id")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query groups", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]RebalancingGroup, 0, len(ids))
	for _, id := range ids {
		group, err := c.GetGroup(id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

// DeleteGroup removes a group; memberships and targets cascade.
func (c *Core) DeleteGroup(id string) (bool, error) {
	result, err := c.db.Exec("DELETE FROM rebalancing_groups WHERE id = ?", id)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete group", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		c.logOperation("GROUP_DELETE", id, nil)
	}
	return rows > 0, nil
}

// ValidateTargetAllocations checks that target percentages sum to
// 100 ± 0.01 and each lies in [0, 100]. Returns nil when valid.
func ValidateTargetAllocations(targets []TargetAllocation) error {
	sum := 0.0
	for _, t := range targets {
		if t.TargetPercent < 0 || t.TargetPercent > 100 {
			return Errorf(ErrCodeValidation, "target percent out of range for tag %s: %g", t.TagID, t.TargetPercent)
		}
		sum += t.TargetPercent
	}
	if math.Abs(sum-100) > targetSumTolerance {
		return Errorf(ErrCodeUnbalancedTargets, "target percentages sum to %g, expected 100", sum)
	}
	return nil
}

// SetGroupTargets validates and replaces a group's target allocations.
// Every target must reference a tag in the group.
func (c *Core) SetGroupTargets(groupID string, targets []TargetAllocation) error {
	group, err := c.GetGroup(groupID)
	if err != nil {
		return err
	}
	if err := ValidateTargetAllocations(targets); err != nil {
		return err
	}
	inGroup := map[string]bool{}
	for _, tagID := range group.TagIDs {
		inGroup[tagID] = true
	}
	for _, t := range targets {
		if !inGroup[t.TagID] {
			return Errorf(ErrCodeInvalidInput, "tag %s is not in group %s", t.TagID, groupID)
		}
	}

	err = c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM target_allocations WHERE group_id = ?", groupID); err != nil {
			return WrapError(ErrCodeDatabase, "clear targets", err)
		}
		for _, t := range targets {
			if _, err := tx.Exec(`
				INSERT INTO target_allocations (group_id, tag_id, target_percent)
				VALUES (?, ?, ?)
			`, groupID, t.TagID, t.TargetPercent); err != nil {
				return WrapError(ErrCodeDatabase, "insert target", err)
			}
		}
		if _, err := tx.Exec("UPDATE rebalancing_groups SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", groupID); err != nil {
			return WrapError(ErrCodeDatabase, "touch group", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logOperation("TARGETS_SET", groupID, map[string]any{"count": len(targets)})
	return nil
}

// GetGroupTargets returns a group's stored targets keyed by tag id.
// Tags without a stored row are absent; callers default them to 0.
func (c *Core) GetGroupTargets(groupID string) (map[string]float64, error) {
	rows, err := c.db.Query("SELECT tag_id, target_percent FROM target_allocations WHERE group_id = ?", groupID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query targets", err)
	}
	defer rows.Close()

	targets := map[string]float64{}
	for rows.Next() {
		var tagID string
		var percent float64
		if err := rows.Scan(&tagID, &percent); err != nil {
			return nil, err
		}
		targets[tagID] = percent
	}
	return targets, rows.Err()
}

func dedupeTagIDs(tagIDs []string) ([]string, error) {
	seen := map[string]bool{}
	result := make([]string, 0, len(tagIDs))
	for _, id := range tagIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, NewError(ErrCodeInvalidInput, "empty tag id")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result, nil
}

func replaceGroupTags(tx *sql.Tx, groupID string, tagIDs []string) error {
	for position, tagID := range tagIDs {
		var exists int
		err := tx.QueryRow("SELECT 1 FROM tags WHERE id = ?", tagID).Scan(&exists)
		if err == sql.ErrNoRows {
			return Errorf(ErrCodeNotFound, "tag not found: %s", tagID)
		}
		if err != nil {
			return WrapError(ErrCodeDatabase, "check tag", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO group_tags (group_id, tag_id, position) VALUES (?, ?, ?)",
			groupID, tagID, position,
		); err != nil {
			return WrapError(ErrCodeDatabase, "insert group tag", err)
		}
	}
	return nil
}

func (c *Core) logOperation(operation, entityID string, details map[string]any) {
	var detailsText *string
	if len(details) > 0 {
		if data, err := json.Marshal(details); err == nil {
			s := string(data)
			detailsText = &s
		}
	}
	if _, err := c.AddOperationLog(OperationLog{
		Operation: operation,
		EntityID:  stringPtr(entityID),
		Details:   detailsText,
	}); err != nil {
		c.logger.Warn("operation log write failed", "operation", operation, "err", err)
	}
}
