package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/parafrasa/internal/model"
)

func doneResult(id string, index int, text string) model.Result {
	return model.Result{
		RequestID:      id,
		ParagraphIndex: index,
		Mode:           model.ModeSmart,
		Original:       text,
		Candidate:      model.NewCandidate(text, 70, nil, "local_smart"),
		Reason:         "Local processing adequate",
		Trace:          []model.Stage{model.StageCreated, model.StageLocalTransformed, model.StageDone},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_SaveAndCompleted(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "run-a", doneResult("p1", 0, "Paragraf pertama.")))
			require.NoError(t, s.Save(ctx, "run-a", doneResult("p2", 1, "Paragraf kedua.")))
			require.NoError(t, s.Save(ctx, "run-b", doneResult("p1", 0, "Paragraf lain.")))

			done, err := s.Completed(ctx, "run-a")
			require.NoError(t, err)
			require.Len(t, done, 2)
			assert.Equal(t, "Paragraf kedua.", done["p2"].Candidate.Text)
			assert.Equal(t, 1, done["p2"].ParagraphIndex)
			p1 := done["p1"]
			assert.True(t, p1.Done())

			other, err := s.Completed(ctx, "run-b")
			require.NoError(t, err)
			assert.Equal(t, "Paragraf lain.", other["p1"].Original)

			empty, err := s.Completed(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, "run", doneResult("p1", 0, "Versi lama.")))
			require.NoError(t, s.Save(ctx, "run", doneResult("p1", 3, "Versi baru.")))

			done, err := s.Completed(ctx, "run")
			require.NoError(t, err)
			require.Len(t, done, 1)
			assert.Equal(t, "Versi baru.", done["p1"].Candidate.Text)
			assert.Equal(t, 3, done["p1"].ParagraphIndex)
		})
	}
}

func TestStore_RejectsUnfinished(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := doneResult("p1", 0, "Belum selesai.")
			r.Trace = r.Trace[:2]

			err := s.Save(context.Background(), "run", r)
			assert.ErrorIs(t, err, ErrNotDone)

			done, err := s.Completed(context.Background(), "run")
			require.NoError(t, err)
			assert.Empty(t, done)
		})
	}
}

func TestStore_Reset(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, "run", doneResult("p1", 0, "Satu.")))
			require.NoError(t, s.Save(ctx, "keep", doneResult("p1", 0, "Dua.")))

			require.NoError(t, s.Reset(ctx, "run"))

			done, err := s.Completed(ctx, "run")
			require.NoError(t, err)
			assert.Empty(t, done)

			kept, err := s.Completed(ctx, "keep")
			require.NoError(t, err)
			assert.Len(t, kept, 1)
		})
	}
}

func TestSQLite_ReopenKeepsResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "run", doneResult("p1", 0, "Tetap ada.")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	done, err := reopened.Completed(ctx, "run")
	require.NoError(t, err)
	require.Contains(t, done, "p1")
	p1 := done["p1"]
	assert.Equal(t, model.StageDone, p1.Stage())
}

func TestNewSQLite_EmptyPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}
