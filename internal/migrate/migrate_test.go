package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chkd/chkd/internal/item"
	"github.com/chkd/chkd/internal/store"
)

const sampleSpec = `# Project checklist

## SD - Site Design

- [x] [P1] **Feature A** #urgent - ship the thing
- [ ] **Feature B**
  - [~] child one
  - [ ] [P2] child two #api
    - [s] grandchild

## FE - Frontend

- [ ] [p3] Navigation redesign #ui #Urgent - rebuild the nav

## QA - Not an area

- [ ] ignored entry
`

func TestParse(t *testing.T) {
	result := Parse(sampleSpec)
	require.Empty(t, result.Errors)
	require.Len(t, result.Areas, 2)

	sd := result.Areas[0]
	assert.Equal(t, item.AreaSD, sd.Code)
	assert.Equal(t, "Site Design", sd.Name)
	require.Len(t, sd.Items, 2)

	a := sd.Items[0]
	assert.Equal(t, "Feature A", a.Title)
	assert.Equal(t, item.StatusDone, a.Status)
	assert.Equal(t, item.PriorityCritical, a.Priority)
	assert.Equal(t, []string{"urgent"}, a.Tags)
	require.NotNil(t, a.Description)
	assert.Equal(t, "ship the thing", *a.Description)

	b := sd.Items[1]
	assert.Equal(t, "Feature B", b.Title)
	assert.Equal(t, item.StatusOpen, b.Status)
	assert.Equal(t, item.PriorityMedium, b.Priority)
	require.Len(t, b.Children, 2)
	assert.Equal(t, item.StatusInProgress, b.Children[0].Status)
	assert.Equal(t, item.PriorityHigh, b.Children[1].Priority)
	assert.Equal(t, []string{"api"}, b.Children[1].Tags)
	require.Len(t, b.Children[1].Children, 1)
	assert.Equal(t, item.StatusSkipped, b.Children[1].Children[0].Status)

	fe := result.Areas[1]
	assert.Equal(t, item.AreaFE, fe.Code)
	require.Len(t, fe.Items, 1)
	nav := fe.Items[0]
	assert.Equal(t, "Navigation redesign", nav.Title)
	assert.Equal(t, item.PriorityMedium, nav.Priority)
	assert.Equal(t, []string{"ui", "urgent"}, nav.Tags)
}

func TestParseCollectsErrors(t *testing.T) {
	result := Parse("## SD - x\n- [q] bad marker\n    - [ ] floating child\n")
	assert.NotEmpty(t, result.Errors)
}

func newTestImporter(t *testing.T) (*Importer, *store.Store, *store.Repo, string) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repoPath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repoPath, "docs"), 0o755))
	repo, err := st.CreateRepo(repoPath, "app", "main")
	require.NoError(t, err)

	return NewImporter(st, zerolog.Nop()), st, repo, repoPath
}

func writeSpec(t *testing.T, repoPath, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "docs", DefaultSpecFile), []byte(content), 0o644))
}

func TestRunImportsItems(t *testing.T) {
	im, st, repo, repoPath := newTestImporter(t)
	writeSpec(t, repoPath, sampleSpec)

	result, err := im.Run(repo.ID, repoPath)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	// A, B, B's two children, grandchild, and the FE item.
	assert.Equal(t, 6, result.ItemsImported)
	assert.Equal(t, 0, result.ItemsUpdated)
	assert.Equal(t, 0, result.ItemsSkipped)

	a, err := st.GetItemByDisplayID(repo.ID, "SD.1")
	require.NoError(t, err)
	assert.Equal(t, item.StatusDone, a.Status)
	assert.Equal(t, item.PriorityCritical, a.Priority)
	tags, err := st.ItemTags(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, tags)

	childTwo, err := st.GetItemByDisplayID(repo.ID, "SD.2.2")
	require.NoError(t, err)
	require.NotNil(t, childTwo.ParentID)
	grand, err := st.GetItemByDisplayID(repo.ID, "SD.2.2.1")
	require.NoError(t, err)
	assert.Equal(t, item.StatusSkipped, grand.Status)
	assert.Equal(t, childTwo.ID, *grand.ParentID)

	nav, err := st.GetItemByDisplayID(repo.ID, "FE.1")
	require.NoError(t, err)
	assert.Equal(t, "Navigation redesign", nav.Title)
}

func TestRunIsIdempotent(t *testing.T) {
	im, _, repo, repoPath := newTestImporter(t)
	writeSpec(t, repoPath, sampleSpec)

	_, err := im.Run(repo.ID, repoPath)
	require.NoError(t, err)

	second, err := im.Run(repo.ID, repoPath)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ItemsImported)
	assert.Equal(t, 0, second.ItemsUpdated)
	assert.Equal(t, 6, second.ItemsSkipped)
}

func TestRunUpdatesStatusOnly(t *testing.T) {
	im, st, repo, repoPath := newTestImporter(t)
	writeSpec(t, repoPath, "## SD - x\n\n- [ ] **Feature A** - original description\n")

	_, err := im.Run(repo.ID, repoPath)
	require.NoError(t, err)

	// The entry is now done and renamed; only the status lands.
	writeSpec(t, repoPath, "## SD - x\n\n- [x] **Feature A renamed** - new description\n")
	result, err := im.Run(repo.ID, repoPath)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsImported)
	assert.Equal(t, 1, result.ItemsUpdated)

	got, err := st.GetItemByDisplayID(repo.ID, "SD.1")
	require.NoError(t, err)
	assert.Equal(t, item.StatusDone, got.Status)
	assert.Equal(t, "Feature A", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "original description", *got.Description)
}

func TestRunSkipsChildrenOfDoneParent(t *testing.T) {
	im, st, repo, repoPath := newTestImporter(t)
	writeSpec(t, repoPath, "## SD - x\n\n- [x] **Parent**\n  - [ ] child\n    - [ ] grandchild\n")

	result, err := im.Run(repo.ID, repoPath)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsImported)
	assert.Equal(t, 2, result.ItemsSkipped)

	_, err = st.GetItemByDisplayID(repo.ID, "SD.1.1")
	assert.True(t, store.IsNotFound(err))
}

func TestRunMissingFile(t *testing.T) {
	im, _, repo, repoPath := newTestImporter(t)
	_, err := im.Run(repo.ID, repoPath)
	require.Error(t, err)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	im, st, repo, repoPath := newTestImporter(t)
	writeSpec(t, repoPath, sampleSpec)

	parsed, err := im.Preview(repoPath)
	require.NoError(t, err)
	assert.Len(t, parsed.Areas, 2)

	items, err := st.ItemsByRepo(repo.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
