package client

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/config"
	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/store"
	"github.com/chkd/chkd/internal/web"
)

type nullDriver struct{}

func (nullDriver) CreateWorktree(_ context.Context, repoPath, _, username, displayID, title string) (*git.Worktree, error) {
	return &git.Worktree{
		Path:   git.WorktreePath(repoPath, username, 1),
		Branch: git.BranchName(username, displayID, title),
	}, nil
}

func (nullDriver) RemoveWorktree(context.Context, string, string, bool) error { return nil }
func (nullDriver) DeleteBranch(context.Context, string, string) error         { return nil }

func (nullDriver) DryRunMerge(context.Context, string, string, string) (*git.MergeCheck, error) {
	return &git.MergeCheck{Clean: true}, nil
}

func (nullDriver) ApplyMerge(context.Context, string, string, string, git.Strategy) error {
	return nil
}

func (nullDriver) AbortMerge(context.Context, string) error { return nil }

func (nullDriver) Stats(context.Context, string, string, string) (*git.Stats, error) {
	return &git.Stats{}, nil
}

func startServer(t *testing.T) (*Client, *store.Repo) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng := engine.New(config.DefaultConfig(), st, nullDriver{}, clock.System{}, zerolog.Nop())
	srv := web.New("127.0.0.1:0", eng, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	repo, err := eng.AddRepo(t.TempDir(), "app", "main")
	require.NoError(t, err)

	return New(srv.Addr()), repo
}

func TestClientRoundTrip(t *testing.T) {
	c, repo := startServer(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	view, err := c.Session(ctx, repo.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, store.SessionIdle, view.Status)

	workers, err := c.Workers(ctx, repo.AbsolutePath)
	require.NoError(t, err)
	assert.Empty(t, workers)

	progress, err := c.Progress(ctx, repo.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Total)
}

func TestClientSurfacesServerErrors(t *testing.T) {
	c, _ := startServer(t)

	_, err := c.Session(context.Background(), "/nowhere/at/all")
	require.Error(t, err)
}

func TestClientUnreachable(t *testing.T) {
	c := New("127.0.0.1:1")
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}
