package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopKeywords(t *testing.T) {
	texts := []string{
		"battery life is amazing",
		"battery drains too fast",
		"the battery could be better",
		"camera quality is amazing",
	}

	keywords := TopKeywords(texts, 3)

	require.NotEmpty(t, keywords)
	assert.Equal(t, "battery", keywords[0].Keyword)
	assert.Equal(t, 3, keywords[0].Count)
	assert.LessOrEqual(t, len(keywords), 3)
}

func TestTopKeywordsFiltersStopwordsAndShortTokens(t *testing.T) {
	keywords := TopKeywords([]string{"it is so so ok", "it is up to me"}, 10)
	assert.Empty(t, keywords)
}

func TestExtractClusters(t *testing.T) {
	texts := []string{
		"battery life is amazing",
		"battery drains fast",
		"screen looks nice",
	}

	clusters := ExtractClusters(texts, "prod-1", 5)

	require.NotEmpty(t, clusters)
	assert.Equal(t, "battery", clusters[0].Label)
	assert.Equal(t, 2, clusters[0].Frequency)
	assert.Equal(t, "prod-1", clusters[0].ProductID)

	// Tokens seen only once never become clusters
	for _, c := range clusters {
		assert.GreaterOrEqual(t, c.Frequency, 2)
	}
}

func TestExtractClustersEmptyBatch(t *testing.T) {
	assert.Empty(t, ExtractClusters(nil, "", 5))
}
