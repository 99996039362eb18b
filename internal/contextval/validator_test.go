package contextval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovoice/agrovoice/pkg/session"
)

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	backend, err := session.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store := session.NewStore(backend)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFirstMatch(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple", "my cabbage has holes", "cabbage"},
		{"case insensitive", "CABBAGE leaves turning yellow", "cabbage"},
		{"declaration order wins", "should I rotate wheat and rice", "wheat"},
		{"substring of word", "my cabbages look sick", "cabbage"},
		{"no match", "the weather is nice", ""},
		{"empty text", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstMatch(tt.text, Crops))
		})
	}
}

func TestValidateAndMergeExtractsVocabulary(t *testing.T) {
	store := newTestStore(t)
	v := NewValidator(store)
	ctx := context.Background()

	applied, err := v.ValidateAndMerge(ctx, "s1", nil, "growing cabbage in punjab", nil)
	require.NoError(t, err)
	assert.Equal(t, "cabbage", applied[KeyCropType])
	assert.Equal(t, "punjab", applied[KeyRegion])

	meta, err := store.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "cabbage", meta.Context[KeyCropType])
	assert.Equal(t, "punjab", meta.Context[KeyRegion])
}

func TestValidateAndMergeProposalsWin(t *testing.T) {
	store := newTestStore(t)
	v := NewValidator(store)
	ctx := context.Background()

	proposed := map[string]string{KeyCropType: "tomato", KeyLastFertilizer: "urea"}
	applied, err := v.ValidateAndMerge(ctx, "s2", proposed, "my cabbage needs help", nil)
	require.NoError(t, err)

	// The worker's extraction overrides the vocabulary scan per key.
	assert.Equal(t, "tomato", applied[KeyCropType])
	assert.Equal(t, "urea", applied[KeyLastFertilizer])
}

func TestValidateAndMergeIgnoresEmptyProposals(t *testing.T) {
	store := newTestStore(t)
	v := NewValidator(store)
	ctx := context.Background()

	applied, err := v.ValidateAndMerge(ctx, "s3", map[string]string{KeyCropType: ""}, "my cabbage", nil)
	require.NoError(t, err)
	assert.Equal(t, "cabbage", applied[KeyCropType], "empty proposal must not clobber the scan result")
}

func TestValidateAndMergeNothingToApply(t *testing.T) {
	store := newTestStore(t)
	v := NewValidator(store)
	ctx := context.Background()

	applied, err := v.ValidateAndMerge(ctx, "s4", nil, "hello there", nil)
	require.NoError(t, err)
	assert.Empty(t, applied)

	// No context write means no session was materialized by the merge.
	_, err = store.Stats(ctx, "s4")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestValidateAndMergePreservesOtherKeys(t *testing.T) {
	store := newTestStore(t)
	v := NewValidator(store)
	ctx := context.Background()

	_, err := v.ValidateAndMerge(ctx, "s5", nil, "cabbage in punjab", nil)
	require.NoError(t, err)

	// A later turn about a different crop must not erase the region.
	current := map[string]string{KeyCropType: "cabbage", KeyRegion: "punjab"}
	_, err = v.ValidateAndMerge(ctx, "s5", nil, "switching to wheat", current)
	require.NoError(t, err)

	meta, err := store.Stats(ctx, "s5")
	require.NoError(t, err)
	assert.Equal(t, "wheat", meta.Context[KeyCropType])
	assert.Equal(t, "punjab", meta.Context[KeyRegion])
}
