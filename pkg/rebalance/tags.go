package rebalance

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// AddTagRequest defines inputs to create a tag.
type AddTagRequest struct {
	Name        string
	Color       string
	Description *string
}

// AddTag creates a tag and returns its generated id.
func (c *Core) AddTag(req AddTagRequest) (*Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewError(ErrCodeInvalidInput, "tag name is required")
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = "#808080"
	}
	id := uuid.NewString()
	_, err := c.db.Exec(`
		INSERT INTO tags (id, name, color, description)
		VALUES (?, ?, ?, ?)
	`, id, name, color, req.Description)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, Errorf(ErrCodeDuplicate, "tag name already exists: %s", name)
		}
		return nil, WrapError(ErrCodeDatabase, "insert tag", err)
	}
	return c.GetTag(id)
}

// GetTag returns one tag by id.
func (c *Core) GetTag(id string) (*Tag, error) {
	var tag Tag
	var description, createdAt sql.NullString
	err := c.db.QueryRow(
		"SELECT id, name, color, description, created_at FROM tags WHERE id = ?", id,
	).Scan(&tag.ID, &tag.Name, &tag.Color, &description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "tag not found: %s", id)
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query tag", err)
	}
	if description.Valid {
		tag.Description = &description.String
	}
	if createdAt.Valid {
		tag.CreatedAt = &createdAt.String
	}
	return &tag, nil
}

// GetTags returns all tags ordered by name.
func (c *Core) GetTags() ([]Tag, error) {
	rows, err := c.db.Query("SELECT id, name, color, description, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query tags", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		var description, createdAt sql.NullString
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &description, &createdAt); err != nil {
			return nil, err
		}
		if description.Valid {
			tag.Description = &description.String
		}
		if createdAt.Valid {
			tag.CreatedAt = &createdAt.String
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateTagRequest carries optional tag field updates.
type UpdateTagRequest struct {
	Name        *string
	Color       *string
	Description *string
}

// UpdateTag applies non-nil fields to an existing tag.
func (c *Core) UpdateTag(id string, req UpdateTagRequest) (*Tag, error) {
	if _, err := c.GetTag(id); err != nil {
		return nil, err
	}
	sets := []string{}
	params := []any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewError(ErrCodeInvalidInput, "tag name cannot be empty")
		}
		sets = append(sets, "name = ?")
		params = append(params, name)
	}
	if req.Color != nil {
		sets = append(sets, "color = ?")
		params = append(params, strings.TrimSpace(*req.Color))
	}
	if req.Description != nil {
		sets = append(sets, "description = ?")
		params = append(params, *req.Description)
	}
	if len(sets) == 0 {
		return c.GetTag(id)
	}
	params = append(params, id)
	if _, err := c.db.Exec("UPDATE tags SET "+strings.Join(sets, ", ")+" WHERE id = ?", params...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, NewError(ErrCodeDuplicate, "tag name already exists")
		}
		return nil, WrapError(ErrCodeDatabase, "update tag", err)
	}
	return c.GetTag(id)
}

// DeleteTag removes a tag; links, group memberships, and targets cascade.
func (c *Core) DeleteTag(id string) (bool, error) {
	result, err := c.db.Exec("DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete tag", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// LinkHoldingTag attaches a tag to a holding. Linking twice is a no-op.
func (c *Core) LinkHoldingTag(holdingID int64, tagID string) error {
	if _, err := c.GetHolding(holdingID); err != nil {
		return err
	}
	if _, err := c.GetTag(tagID); err != nil {
		return err
	}
	if _, err := c.db.Exec(
		"INSERT OR IGNORE INTO holding_tags (holding_id, tag_id) VALUES (?, ?)",
		holdingID, tagID,
	); err != nil {
		return WrapError(ErrCodeDatabase, "link holding tag", err)
	}
	return nil
}

// UnlinkHoldingTag detaches a tag from a holding.
func (c *Core) UnlinkHoldingTag(holdingID int64, tagID string) (bool, error) {
	result, err := c.db.Exec(
		"DELETE FROM holding_tags WHERE holding_id = ? AND tag_id = ?",
		holdingID, tagID,
	)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "unlink holding tag", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetHoldingTags returns the tags attached to one holding.
func (c *Core) GetHoldingTags(holdingID int64) ([]Tag, error) {
	rows, err := c.db.Query(`
		SELECT t.id, t.name, t.color, t.description, t.created_at
		FROM holding_tags ht
		JOIN tags t ON t.id = ht.tag_id
		WHERE ht.holding_id = ?
		ORDER BY t.name
	`, holdingID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query holding tags", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		var description, createdAt sql.NullString
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &description, &createdAt); err != nil {
			return nil, err
		}
		if description.Valid {
			tag.Description = &description.String
		}
		if createdAt.Valid {
			tag.CreatedAt = &createdAt.String
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// getHoldingLinks returns all holding↔tag links.
func (c *Core) getHoldingLinks() ([]HoldingTag, error) {
	rows, err := c.db.Query("SELECT holding_id, tag_id FROM holding_tags")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query holding links", err)
	}
	defer rows.Close()

	var links []HoldingTag
	for rows.Next() {
		var link HoldingTag
		if err := rows.Scan(&link.HoldingID, &link.TagID); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
