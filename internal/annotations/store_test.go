package annotations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"codedup/internal/models"
)

func openTestStore(t *testing.T, allowHuman bool) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "progress.sqlite"), "test-session", allowHuman)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestSetAndGet(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, true)

	ann, err := store.Set(SetParams{
		TargetType: models.TargetChunk,
		TargetID:   "chunk-1",
		Status:     strPtr("reviewed"),
		AIPriority: intPtr(3),
		Comment:    strPtr("looks intentional"),
	})
	require.NoError(t, err)
	require.NotNil(t, ann)
	require.Equal(t, "test-session", ann.SessionID)
	require.Equal(t, "reviewed", *ann.Status)
	require.Equal(t, 3, *ann.AIPriority)
	require.Nil(t, ann.HumanPriority)
	require.Greater(t, ann.UpdatedAt, float64(0))

	got, err := store.Get(models.TargetChunk, "chunk-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "looks intentional", *got.Comment)

	missing, err := store.Get(models.TargetChunk, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

// Re-setting without a human priority must keep the previously stored one;
// only an explicit new value replaces it.
func TestHumanPriorityPreservedOnUpdate(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, true)

	_, err := store.Set(SetParams{
		TargetType:    models.TargetDupGroup,
		TargetID:      "fp-1",
		Status:        strPtr("todo"),
		HumanPriority: intPtr(5),
	})
	require.NoError(t, err)

	ann, err := store.Set(SetParams{
		TargetType: models.TargetDupGroup,
		TargetID:   "fp-1",
		Status:     strPtr("in_progress"),
		AIPriority: intPtr(2),
	})
	require.NoError(t, err)
	require.Equal(t, "in_progress", *ann.Status)
	require.Equal(t, 5, *ann.HumanPriority)
	require.Equal(t, 2, *ann.AIPriority)
}

func TestHumanPriorityGated(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, false)

	ann, err := store.Set(SetParams{
		TargetType:    models.TargetChunk,
		TargetID:      "chunk-1",
		HumanPriority: intPtr(9),
	})
	require.NoError(t, err)
	require.Nil(t, ann.HumanPriority, "human priority written despite updates being disabled")
}

func TestLegacyPriorityAlias(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, true)

	ann, err := store.Set(SetParams{
		TargetType: models.TargetChunk,
		TargetID:   "chunk-1",
		Priority:   intPtr(4),
	})
	require.NoError(t, err)
	require.Equal(t, 4, *ann.AIPriority)

	// An explicit ai_priority wins over the alias.
	ann, err = store.Set(SetParams{
		TargetType: models.TargetChunk,
		TargetID:   "chunk-1",
		Priority:   intPtr(4),
		AIPriority: intPtr(7),
	})
	require.NoError(t, err)
	require.Equal(t, 7, *ann.AIPriority)
}

func TestListFiltersAndOrder(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, true)

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Set(SetParams{
			TargetType: models.TargetChunk,
			TargetID:   id,
			Status:     strPtr("reviewed"),
		})
		require.NoError(t, err)
	}
	_, err := store.Set(SetParams{
		TargetType: models.TargetDupGroup,
		TargetID:   "fp-1",
		Status:     strPtr("todo"),
	})
	require.NoError(t, err)

	all, err := store.List(ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		require.GreaterOrEqual(t, all[i-1].UpdatedAt, all[i].UpdatedAt, "list is not newest-first")
	}

	chunksOnly, err := store.List(ListParams{TargetType: models.TargetChunk})
	require.NoError(t, err)
	require.Len(t, chunksOnly, 3)

	todo, err := store.List(ListParams{Status: "todo"})
	require.NoError(t, err)
	require.Len(t, todo, 1)
	require.Equal(t, "fp-1", todo[0].TargetID)

	limited, err := store.List(ListParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestStatusMap(t *testing.T) {
	t.Parallel()
	store := openTestStore(t, true)

	_, err := store.Set(SetParams{TargetType: models.TargetChunk, TargetID: "a", Status: strPtr("ignored")})
	require.NoError(t, err)
	_, err = store.Set(SetParams{TargetType: models.TargetChunk, TargetID: "b", Status: strPtr("reviewed")})
	require.NoError(t, err)
	_, err = store.Set(SetParams{TargetType: models.TargetDupGroup, TargetID: "c", Status: strPtr("ignored")})
	require.NoError(t, err)

	m, err := store.StatusMap(models.TargetChunk, []string{"ignored", "wontfix"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "ignored"}, m)

	empty, err := store.StatusMap(models.TargetChunk, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
