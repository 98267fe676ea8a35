package store

import (
	"database/sql"
	"fmt"

	"github.com/chkd/chkd/internal/item"
)

// AddTag attaches a tag to an item. The tag is lowercased and validated;
// duplicates are a no-op.
func (s *Store) AddTag(itemID, tag string) error {
	if !item.ValidTag(tag) {
		return conflict("add tag", fmt.Errorf("invalid tag %q", tag))
	}
	normalized := item.NormalizeTags([]string{tag})[0]

	if _, err := s.GetItem(itemID); err != nil {
		return err
	}
	_, err := s.conn.Exec(
		`INSERT OR IGNORE INTO item_tags (item_id, tag) VALUES (?, ?)`,
		itemID, normalized)
	if err != nil {
		return classify("add tag", err)
	}
	return nil
}

// RemoveTag detaches a tag from an item. Removing an absent tag is a no-op.
func (s *Store) RemoveTag(itemID, tag string) error {
	normalized := item.NormalizeTags([]string{tag})
	if len(normalized) == 0 {
		return nil
	}
	_, err := s.conn.Exec(
		`DELETE FROM item_tags WHERE item_id = ? AND tag = ?`, itemID, normalized[0])
	if err != nil {
		return classify("remove tag", err)
	}
	return nil
}

// SetTags replaces an item's tag set atomically.
func (s *Store) SetTags(itemID string, tags []string) error {
	if _, err := s.GetItem(itemID); err != nil {
		return err
	}
	normalized := item.NormalizeTags(tags)

	return s.InTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM item_tags WHERE item_id = ?`, itemID); err != nil {
			return classify("set tags", err)
		}
		for _, tag := range normalized {
			if _, err := tx.Exec(
				`INSERT INTO item_tags (item_id, tag) VALUES (?, ?)`, itemID, tag); err != nil {
				return classify("set tags", err)
			}
		}
		return nil
	})
}

// ItemTags returns an item's tags in alphabetical order.
func (s *Store) ItemTags(itemID string) ([]string, error) {
	rows, err := s.conn.Query(
		`SELECT tag FROM item_tags WHERE item_id = ? ORDER BY tag`, itemID)
	if err != nil {
		return nil, classify("item tags", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, classify("item tags", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("item tags", err)
	}
	return tags, nil
}

// ItemsByTag returns a repo's items carrying the given tag.
func (s *Store) ItemsByTag(repoID, tag string) ([]*Item, error) {
	normalized := item.NormalizeTags([]string{tag})
	if len(normalized) == 0 {
		return nil, nil
	}
	return s.queryItems(
		`SELECT `+itemColumns+` FROM items
		 WHERE repo_id = ? AND id IN (SELECT item_id FROM item_tags WHERE tag = ?)
		 ORDER BY `+itemOrder,
		repoID, normalized[0])
}
