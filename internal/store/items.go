package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/chkd/chkd/internal/item"
)

const itemColumns = `id, repo_id, display_id, title, description, story,
	key_requirements, files_to_change, testing, area_code, section_number,
	workflow_type, parent_id, sort_order, status, priority, created_at, updated_at`

// itemOrder is the default ordering for item queries.
const itemOrder = `area_code, section_number, sort_order, display_id`

// ItemInput carries the fields for creating an item.
type ItemInput struct {
	RepoID          string
	DisplayID       string
	Title           string
	Description     *string
	Story           *string
	KeyRequirements []string
	FilesToChange   []string
	Testing         []string
	AreaCode        item.Area
	SectionNumber   int
	WorkflowType    *string
	ParentID        *string
	SortOrder       int
	Status          item.Status
	Priority        item.Priority
}

// ItemUpdate carries partial updates; nil fields are left untouched.
type ItemUpdate struct {
	Title           *string
	Description     *string
	Story           *string
	KeyRequirements []string
	FilesToChange   []string
	Testing         []string
	WorkflowType    *string
	SortOrder       *int
	Status          *item.Status
	Priority        *item.Priority
}

// CreateItem inserts a new item. A duplicate (repo, displayId) fails with
// a conflict error.
func (s *Store) CreateItem(in ItemInput) (*Item, error) {
	if in.Status == "" {
		in.Status = item.StatusOpen
	}
	if in.Priority == "" {
		in.Priority = item.PriorityMedium
	}
	now := s.now().UTC()
	it := &Item{
		ID:              newULID(),
		RepoID:          in.RepoID,
		DisplayID:       in.DisplayID,
		Title:           in.Title,
		Description:     in.Description,
		Story:           in.Story,
		KeyRequirements: in.KeyRequirements,
		FilesToChange:   in.FilesToChange,
		Testing:         in.Testing,
		AreaCode:        in.AreaCode,
		SectionNumber:   in.SectionNumber,
		WorkflowType:    in.WorkflowType,
		ParentID:        in.ParentID,
		SortOrder:       in.SortOrder,
		Status:          in.Status,
		Priority:        in.Priority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if it.KeyRequirements == nil {
		it.KeyRequirements = []string{}
	}
	if it.FilesToChange == nil {
		it.FilesToChange = []string{}
	}
	if it.Testing == nil {
		it.Testing = []string{}
	}

	_, err := s.conn.Exec(
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.RepoID, it.DisplayID, it.Title, it.Description, it.Story,
		marshalStrings(it.KeyRequirements), marshalStrings(it.FilesToChange), marshalStrings(it.Testing),
		string(it.AreaCode), it.SectionNumber, it.WorkflowType, it.ParentID,
		it.SortOrder, string(it.Status), string(it.Priority), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return nil, classify("create item", err)
	}
	return it, nil
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	it := &Item{}
	var keyReqs, files, testing, area, status, priority string
	err := row.Scan(
		&it.ID, &it.RepoID, &it.DisplayID, &it.Title, &it.Description, &it.Story,
		&keyReqs, &files, &testing, &area, &it.SectionNumber,
		&it.WorkflowType, &it.ParentID, &it.SortOrder, &status, &priority,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.KeyRequirements = unmarshalStrings(keyReqs)
	it.FilesToChange = unmarshalStrings(files)
	it.Testing = unmarshalStrings(testing)
	it.AreaCode = item.Area(area)
	it.Status = item.Status(status)
	it.Priority = item.Priority(priority)
	return it, nil
}

func (s *Store) queryItems(query string, args ...any) ([]*Item, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, classify("query items", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, classify("query items", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query items", err)
	}
	return items, nil
}

// GetItem retrieves an item by id.
func (s *Store) GetItem(id string) (*Item, error) {
	it, err := scanItem(s.conn.QueryRow(
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("get item", "item")
	}
	if err != nil {
		return nil, classify("get item", err)
	}
	return it, nil
}

// GetItemByDisplayID retrieves an item by (repo, displayId),
// case-insensitively.
func (s *Store) GetItemByDisplayID(repoID, displayID string) (*Item, error) {
	it, err := scanItem(s.conn.QueryRow(
		`SELECT `+itemColumns+` FROM items WHERE repo_id = ? AND display_id = ? COLLATE NOCASE`,
		repoID, displayID))
	if err == sql.ErrNoRows {
		return nil, notFound("get item by display id", "item")
	}
	if err != nil {
		return nil, classify("get item by display id", err)
	}
	return it, nil
}

// UpdateItem applies a partial update and refreshes updatedAt.
func (s *Store) UpdateItem(id string, upd ItemUpdate) (*Item, error) {
	it, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		it.Title = *upd.Title
	}
	if upd.Description != nil {
		it.Description = upd.Description
	}
	if upd.Story != nil {
		it.Story = upd.Story
	}
	if upd.KeyRequirements != nil {
		it.KeyRequirements = upd.KeyRequirements
	}
	if upd.FilesToChange != nil {
		it.FilesToChange = upd.FilesToChange
	}
	if upd.Testing != nil {
		it.Testing = upd.Testing
	}
	if upd.WorkflowType != nil {
		it.WorkflowType = upd.WorkflowType
	}
	if upd.SortOrder != nil {
		it.SortOrder = *upd.SortOrder
	}
	if upd.Status != nil {
		it.Status = *upd.Status
	}
	if upd.Priority != nil {
		it.Priority = *upd.Priority
	}
	it.UpdatedAt = s.now().UTC()

	_, err = s.conn.Exec(
		`UPDATE items SET title = ?, description = ?, story = ?,
			key_requirements = ?, files_to_change = ?, testing = ?,
			workflow_type = ?, sort_order = ?, status = ?, priority = ?, updated_at = ?
		WHERE id = ?`,
		it.Title, it.Description, it.Story,
		marshalStrings(it.KeyRequirements), marshalStrings(it.FilesToChange), marshalStrings(it.Testing),
		it.WorkflowType, it.SortOrder, string(it.Status), string(it.Priority), it.UpdatedAt,
		it.ID,
	)
	if err != nil {
		return nil, classify("update item", err)
	}
	return it, nil
}

// MoveItem reassigns an item (and its subtree's display ids) to a new area
// with a fresh top-level section number.
func (s *Store) MoveItem(id string, area item.Area) (*Item, error) {
	it, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	if it.ParentID != nil {
		return nil, conflict("move item", fmt.Errorf("only top-level items can move areas"))
	}

	section, err := s.NextSectionNumber(it.RepoID, area)
	if err != nil {
		return nil, err
	}
	newDisplayID := item.TopLevelDisplayID(area, section)

	descendants, err := s.Descendants(id)
	if err != nil {
		return nil, err
	}

	oldPrefix := it.DisplayID + "."
	now := s.now().UTC()

	err = s.InTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`UPDATE items SET display_id = ?, area_code = ?, section_number = ?, updated_at = ? WHERE id = ?`,
			newDisplayID, string(area), section, now, id,
		); err != nil {
			return classify("move item", err)
		}
		for _, d := range descendants {
			childDisplayID := newDisplayID + "." + strings.TrimPrefix(d.DisplayID, oldPrefix)
			if _, err := tx.Exec(
				`UPDATE items SET display_id = ?, area_code = ?, updated_at = ? WHERE id = ?`,
				childDisplayID, string(area), now, d.ID,
			); err != nil {
				return classify("move item", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(id)
}

// DeleteItemTree deletes the item and its transitive subtree in a single
// transaction. Foreign keys are deferred inside the transaction so rows can
// be removed regardless of declaration order.
func (s *Store) DeleteItemTree(id string) error {
	if _, err := s.GetItem(id); err != nil {
		return err
	}
	descendants, err := s.Descendants(id)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(descendants)+1)
	for _, d := range descendants {
		ids = append(ids, d.ID)
	}
	ids = append(ids, id)

	return s.InTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("PRAGMA defer_foreign_keys=ON"); err != nil {
			return classify("delete item tree", err)
		}
		for _, itemID := range ids {
			if _, err := tx.Exec(`DELETE FROM item_tags WHERE item_id = ?`, itemID); err != nil {
				return classify("delete item tree", err)
			}
			if _, err := tx.Exec(`DELETE FROM item_durations WHERE item_id = ?`, itemID); err != nil {
				return classify("delete item tree", err)
			}
			if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, itemID); err != nil {
				return classify("delete item tree", err)
			}
		}
		return nil
	})
}

// ItemsByRepo returns all items in a repo in display order.
func (s *Store) ItemsByRepo(repoID string) ([]*Item, error) {
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items WHERE repo_id = ? ORDER BY `+itemOrder, repoID)
}

// ItemsByArea returns a repo's items in one area.
func (s *Store) ItemsByArea(repoID string, area item.Area) ([]*Item, error) {
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items WHERE repo_id = ? AND area_code = ? ORDER BY `+itemOrder,
		repoID, string(area))
}

// ItemsByParent returns the direct children of an item.
func (s *Store) ItemsByParent(parentID string) ([]*Item, error) {
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items WHERE parent_id = ? ORDER BY `+itemOrder, parentID)
}

// ItemsByStatus returns a repo's items with the given status.
func (s *Store) ItemsByStatus(repoID string, status item.Status) ([]*Item, error) {
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items WHERE repo_id = ? AND status = ? ORDER BY `+itemOrder,
		repoID, string(status))
}

// TopLevelItems returns a repo's items without a parent.
func (s *Store) TopLevelItems(repoID string) ([]*Item, error) {
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items WHERE repo_id = ? AND parent_id IS NULL ORDER BY `+itemOrder,
		repoID)
}

// Children is an alias for ItemsByParent, matching hierarchy terminology.
func (s *Store) Children(id string) ([]*Item, error) {
	return s.ItemsByParent(id)
}

// Descendants returns the transitive subtree below an item, depth-first.
func (s *Store) Descendants(id string) ([]*Item, error) {
	var out []*Item
	children, err := s.ItemsByParent(id)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		out = append(out, child)
		sub, err := s.Descendants(child.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// Ancestors returns the chain of parents, nearest first and root last.
func (s *Store) Ancestors(id string) ([]*Item, error) {
	var out []*Item
	it, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	for it.ParentID != nil {
		it, err = s.GetItem(*it.ParentID)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// FindOneItem resolves a free-form query to at most one item: exact display
// id first (case-insensitive), then normalized id ("sd37" matches "SD.37"),
// then title substring, then description substring. Returns nil, nil when
// nothing matches.
func (s *Store) FindOneItem(repoID, query string) (*Item, error) {
	it, err := s.GetItemByDisplayID(repoID, query)
	if err == nil {
		return it, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	if normalized := item.NormalizeQuery(query); normalized != "" {
		items, err := s.ItemsByRepo(repoID)
		if err != nil {
			return nil, err
		}
		for _, candidate := range items {
			if item.NormalizeQuery(candidate.DisplayID) == normalized {
				return candidate, nil
			}
		}
	}

	for _, column := range []string{"title", "description"} {
		items, err := s.queryItems(
			`SELECT `+itemColumns+` FROM items
			 WHERE repo_id = ? AND `+column+` LIKE ? ESCAPE '\'
			 ORDER BY `+itemOrder+` LIMIT 1`,
			repoID, "%"+escapeLike(query)+"%")
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items[0], nil
		}
	}
	return nil, nil
}

// SearchItems matches the query case-insensitively against display id,
// title, and description, capped at limit.
func (s *Store) SearchItems(repoID, query string, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(query) + "%"
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items
		 WHERE repo_id = ? AND (display_id LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
		 ORDER BY `+itemOrder+` LIMIT ?`,
		repoID, pattern, pattern, pattern, limit)
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// ItemProgress reports total/done/percent for a repo, optionally narrowed
// to one area. Skipped items are excluded from both counts.
func (s *Store) ItemProgress(repoID string, area *item.Area) (*Progress, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)
	FROM items WHERE repo_id = ? AND status != 'skipped'`
	args := []any{repoID}
	if area != nil {
		query += ` AND area_code = ?`
		args = append(args, string(*area))
	}

	p := &Progress{}
	if err := s.conn.QueryRow(query, args...).Scan(&p.Total, &p.Done); err != nil {
		return nil, classify("item progress", err)
	}
	if p.Total > 0 {
		p.Percent = p.Done * 100 / p.Total
	}
	return p, nil
}

// NextSectionNumber returns max(section over top-level items in the
// area) + 1.
func (s *Store) NextSectionNumber(repoID string, area item.Area) (int, error) {
	var maxSection sql.NullInt64
	err := s.conn.QueryRow(
		`SELECT MAX(section_number) FROM items
		 WHERE repo_id = ? AND area_code = ? AND parent_id IS NULL`,
		repoID, string(area)).Scan(&maxSection)
	if err != nil {
		return 0, classify("next section number", err)
	}
	return int(maxSection.Int64) + 1, nil
}
