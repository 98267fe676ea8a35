package engine

import (
	"fmt"

	"github.com/chkd/chkd/internal/item"
	"github.com/chkd/chkd/internal/store"
)

// ItemDetail bundles an item with its tags.
type ItemDetail struct {
	*store.Item
	Tags []string `json:"tags"`
}

// CreateItemInput carries the caller-supplied fields for a new
// top-level item. The display id is assigned from the area's next free
// section number.
type CreateItemInput struct {
	RepoID          string
	Area            string
	Title           string
	Description     *string
	Story           *string
	KeyRequirements []string
	FilesToChange   []string
	Testing         []string
	Priority        string
}

// Items lists a repo's items, optionally restricted to one area.
func (e *Engine) Items(repoID string, area *item.Area) ([]*store.Item, error) {
	return retryIO(func() ([]*store.Item, error) {
		if area != nil {
			return e.store.ItemsByArea(repoID, *area)
		}
		return e.store.ItemsByRepo(repoID)
	})
}

// Item resolves a display id (any case, dots optional for top-level
// ids) to the item plus its tags.
func (e *Engine) Item(repoID, query string) (*ItemDetail, error) {
	it, err := e.store.FindOneItem(repoID, query)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, store.NewNotFound("get item", fmt.Sprintf("item %q", query))
	}
	return e.itemDetail(it)
}

func (e *Engine) itemDetail(it *store.Item) (*ItemDetail, error) {
	tags, err := e.store.ItemTags(it.ID)
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: it, Tags: tags}, nil
}

// CreateItem appends a top-level item to an area.
func (e *Engine) CreateItem(in CreateItemInput) (*ItemDetail, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	if !item.ValidArea(in.Area) {
		return nil, fmt.Errorf("unknown area %q", in.Area)
	}
	priority := item.PriorityMedium
	if in.Priority != "" {
		if !item.ValidPriority(in.Priority) {
			return nil, fmt.Errorf("unknown priority %q", in.Priority)
		}
		priority = item.Priority(in.Priority)
	}

	area := item.Area(in.Area)
	section, err := e.store.NextSectionNumber(in.RepoID, area)
	if err != nil {
		return nil, err
	}
	created, err := e.store.CreateItem(store.ItemInput{
		RepoID:          in.RepoID,
		DisplayID:       item.TopLevelDisplayID(area, section),
		Title:           in.Title,
		Description:     in.Description,
		Story:           in.Story,
		KeyRequirements: in.KeyRequirements,
		FilesToChange:   in.FilesToChange,
		Testing:         in.Testing,
		AreaCode:        area,
		SectionNumber:   section,
		Status:          item.StatusOpen,
		Priority:        priority,
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("item", created.DisplayID).Msg("item created")
	return &ItemDetail{Item: created, Tags: []string{}}, nil
}

// AddChild appends a child under an existing item, assigning the next
// free `<parent>.<n>` display id.
func (e *Engine) AddChild(parentID, title string, description *string) (*ItemDetail, error) {
	if title == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	parent, err := e.store.GetItem(parentID)
	if err != nil {
		return nil, err
	}
	children, err := e.store.Children(parent.ID)
	if err != nil {
		return nil, err
	}

	// Deleted siblings leave gaps, so probe upward from the count.
	index := len(children)
	displayID := item.ChildDisplayID(parent.DisplayID, index)
	for {
		_, err := e.store.GetItemByDisplayID(parent.RepoID, displayID)
		if store.IsNotFound(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		index++
		displayID = item.ChildDisplayID(parent.DisplayID, index)
	}

	created, err := e.store.CreateItem(store.ItemInput{
		RepoID:        parent.RepoID,
		DisplayID:     displayID,
		Title:         title,
		Description:   description,
		AreaCode:      parent.AreaCode,
		SectionNumber: parent.SectionNumber,
		ParentID:      &parent.ID,
		SortOrder:     index,
		Status:        item.StatusOpen,
		Priority:      item.PriorityMedium,
	})
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: created, Tags: []string{}}, nil
}

// UpdateItem applies a partial update after validating enum fields.
func (e *Engine) UpdateItem(id string, upd store.ItemUpdate) (*store.Item, error) {
	if upd.Status != nil && !item.ValidStatus(string(*upd.Status)) {
		return nil, fmt.Errorf("unknown status %q", *upd.Status)
	}
	if upd.Priority != nil && !item.ValidPriority(string(*upd.Priority)) {
		return nil, fmt.Errorf("unknown priority %q", *upd.Priority)
	}
	updated, err := e.store.UpdateItem(id, upd)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil && *upd.Status == item.StatusDone {
		e.recordItemDuration(updated)
	}
	return updated, nil
}

// recordItemDuration stores how long the session's current item took
// once it lands done. Best effort: without a session pointing at the
// item there is nothing to measure.
func (e *Engine) recordItemDuration(it *store.Item) {
	sess, err := e.sessions.Get(it.RepoID)
	if err != nil {
		e.log.Warn().Err(err).Str("item", it.DisplayID).Msg("item duration skipped")
		return
	}
	if sess.CurrentItem == nil || *sess.CurrentItem != it.DisplayID || sess.CurrentItemStartTime == nil {
		return
	}
	now := e.clock.Now()
	ms := now.Sub(*sess.CurrentItemStartTime).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if err := e.store.RecordItemDuration(it.ID, it.RepoID, ms, now); err != nil {
		e.log.Warn().Err(err).Str("item", it.DisplayID).Msg("item duration not recorded")
	}
}

// DeleteItem removes an item and its whole subtree.
func (e *Engine) DeleteItem(id string) error {
	return e.store.DeleteItemTree(id)
}

// MoveItem reassigns a top-level item (and its subtree) to another
// area, renumbering its display ids.
func (e *Engine) MoveItem(id, area string) (*store.Item, error) {
	if !item.ValidArea(area) {
		return nil, fmt.Errorf("unknown area %q", area)
	}
	return e.store.MoveItem(id, item.Area(area))
}

// SetPriority changes one item's priority.
func (e *Engine) SetPriority(id, priority string) (*store.Item, error) {
	if !item.ValidPriority(priority) {
		return nil, fmt.Errorf("unknown priority %q", priority)
	}
	p := item.Priority(priority)
	return e.store.UpdateItem(id, store.ItemUpdate{Priority: &p})
}

// SetItemTags replaces an item's tag set.
func (e *Engine) SetItemTags(id string, tags []string) ([]string, error) {
	if err := e.store.SetTags(id, tags); err != nil {
		return nil, err
	}
	return e.store.ItemTags(id)
}

// SearchItems matches title, description, and display id, most recently
// updated first.
func (e *Engine) SearchItems(repoID, query string, limit int) ([]*store.Item, error) {
	return e.store.SearchItems(repoID, query, limit)
}

// TBCCheck names the descriptor fields of an item that are still
// placeholders. Empty means the item is fully specified.
func (e *Engine) TBCCheck(id string) ([]string, error) {
	it, err := e.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	return item.TBCFields(it.KeyRequirements, it.FilesToChange, it.Testing), nil
}

// Progress reports done/total counts for a repo, optionally one area.
func (e *Engine) Progress(repoID string, area *item.Area) (*store.Progress, error) {
	return retryIO(func() (*store.Progress, error) { return e.store.ItemProgress(repoID, area) })
}
