package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchTexts_GroupsUnderBudget(t *testing.T) {
	texts := []string{"a", "b", "c"}
	batches := BatchTexts(texts, 8192)
	require.Len(t, batches, 1)
	assert.Equal(t, texts, batches[0])
}

func TestBatchTexts_SplitsWhenBudgetExceeded(t *testing.T) {
	big := strings.Repeat("x", 40) // ~10 tokens
	texts := []string{big, big, big}
	batches := BatchTexts(texts, 20)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
}

func TestBatchTexts_OversizedSingleTextGetsOwnBatch(t *testing.T) {
	huge := strings.Repeat("y", 100000)
	texts := []string{"tiny", huge, "tiny"}
	batches := BatchTexts(texts, 8192)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"tiny"}, batches[0])
	assert.Equal(t, []string{huge}, batches[1])
	assert.Equal(t, []string{"tiny"}, batches[2])
}

func TestBatchTexts_DefaultsWhenBudgetNonPositive(t *testing.T) {
	batches := BatchTexts([]string{"a"}, 0)
	require.Len(t, batches, 1)
}
