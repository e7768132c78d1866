package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPromptsSeeded(t *testing.T) {
	s := openTest(t)
	got, err := s.PromptTexts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts, got)
}

func TestAddPromptGoesFirst(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.AddPrompt(ctx, "  Snowy temples  ")
	require.NoError(t, err)
	_, err = s.AddPrompt(ctx, "Desert dunes")
	require.NoError(t, err)
	p, err := s.AddPrompt(ctx, "   ")
	require.NoError(t, err)
	assert.Zero(t, p.ID)

	got, err := s.PromptTexts(ctx)
	require.NoError(t, err)
	want := append([]string{"Desert dunes", "Snowy temples"}, DefaultPrompts...)
	assert.Equal(t, want, got)
}

func TestRemovePrompt(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	ps, err := s.Prompts(ctx)
	require.NoError(t, err)
	require.NoError(t, s.RemovePrompt(ctx, ps[1].ID))

	got, err := s.PromptTexts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Undersea marine life", "Amazon Rainforest", "Anime sword battle"}, got)

	err = s.RemovePrompt(ctx, ps[1].ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSeedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "qrart.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	ps, err := s.Prompts(ctx)
	require.NoError(t, err)
	for _, p := range ps {
		require.NoError(t, s.RemovePrompt(ctx, p.ID))
	}
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	ps, err = s.Prompts(ctx)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	id, err := s.CreateRun(ctx, "lantern", "upload", 2)
	require.NoError(t, err)

	require.NoError(t, s.AddImage(ctx, Image{
		RunID: id, PromptIndex: 0, ComboIndex: 1, Prompt: "NYC skyline",
		Params: map[string]any{"steps": "30"}, File: "gen_image_0_1.png",
	}))
	require.NoError(t, s.AddImage(ctx, Image{
		RunID: id, PromptIndex: 0, ComboIndex: 0, Prompt: "NYC skyline",
		Params: map[string]any{"weight": "1", "steps": "20"}, ParamKeys: []string{"steps", "weight"},
		File: "gen_image_0_0.png",
	}))
	require.NoError(t, s.FinishRun(ctx, id, nil))

	run, imgs, err := s.RunByFolder(ctx, "lantern")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, run.Status)
	assert.Equal(t, 2, run.Total)
	assert.False(t, run.CreatedAt.IsZero())
	require.Len(t, imgs, 2)
	assert.Equal(t, "gen_image_0_0.png", imgs[0].File)
	assert.Equal(t, "20", imgs[0].Params["steps"])
	assert.Equal(t, []string{"steps", "weight"}, imgs[0].ParamKeys)
	assert.Empty(t, imgs[1].ParamKeys)

	failedID, err := s.CreateRun(ctx, "ember", "generated", 1)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, failedID, errors.New("backend down")))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "ember", runs[0].Folder)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "backend down", runs[0].Error)

	_, _, err = s.RunByFolder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateFolderRejected(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	_, err := s.CreateRun(ctx, "same", "upload", 1)
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "same", "upload", 1)
	assert.Error(t, err)
}
