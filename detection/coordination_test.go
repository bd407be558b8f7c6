package detection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCoordinationBasic(t *testing.T) {
	assert := assert.New(t)

	comments := []Comment{
		{ID: "1", Username: "alice", Text: "This product changed my life!"},
		{ID: "2", Username: "bob", Text: "This product changed my life!"},
		{ID: "3", Username: "carol", Text: "This product changed my life!"},
		{ID: "4", Username: "dave", Text: "congrats on the launch"},
	}

	clusters := DetectCoordination(comments)
	require.Len(t, clusters, 1)

	cluster := clusters[0]
	assert.Equal("this product changed my life!", cluster.Text)
	assert.Equal([]string{"alice", "bob", "carol"}, cluster.Users)
	assert.Equal(3, cluster.CommentCount)
	assert.Greater(cluster.Confidence, 0.7)
	assert.LessOrEqual(cluster.Confidence, 0.9)
}

func TestDetectCoordinationPairConfidence(t *testing.T) {
	assert := assert.New(t)

	comments := []Comment{
		{ID: "1", Username: "alice", Text: "amazing post"},
		{ID: "2", Username: "bob", Text: "amazing post"},
	}

	clusters := DetectCoordination(comments)
	require.Len(t, clusters, 1)
	assert.InDelta(0.7, clusters[0].Confidence, 1e-9)
	assert.Equal(2, clusters[0].CommentCount)
}

func TestDetectCoordinationShortText(t *testing.T) {
	assert := assert.New(t)

	// identical but under ten characters: too generic to report
	comments := []Comment{
		{ID: "1", Username: "alice", Text: "nice!"},
		{ID: "2", Username: "bob", Text: "nice!"},
		{ID: "3", Username: "carol", Text: "nice!"},
		{ID: "4", Username: "alice", Text: "so cool 🔥"},
		{ID: "5", Username: "bob", Text: "so cool 🔥"},
	}

	// "so cool 🔥" is nine runes; the emoji counts once, not four bytes
	assert.Empty(DetectCoordination(comments))
}

func TestDetectCoordinationTextLengthIsRunes(t *testing.T) {
	assert := assert.New(t)

	// exactly ten CJK characters pass the length floor despite multibyte encoding
	comments := []Comment{
		{ID: "1", Username: "alice", Text: "这个产品改变我的生活"},
		{ID: "2", Username: "bob", Text: "这个产品改变我的生活"},
	}
	assert.Len(DetectCoordination(comments), 1)
}

func TestDetectCoordinationSingleAuthor(t *testing.T) {
	assert := assert.New(t)

	// one account repeating itself is spam, not coordination
	comments := []Comment{
		{ID: "1", Username: "alice", Text: "buy my amazing course today"},
		{ID: "2", Username: "alice", Text: "buy my amazing course today"},
		{ID: "3", Username: "alice", Text: "buy my amazing course today"},
	}
	assert.Empty(DetectCoordination(comments))
}

func TestDetectCoordinationNormalization(t *testing.T) {
	assert := assert.New(t)

	comments := []Comment{
		{ID: "1", Username: "bob", Text: "  Buy Crypto Now, Thank Me Later  "},
		{ID: "2", Username: "alice", Text: "buy crypto now, thank me later"},
		{ID: "3", Username: "carol", Text: "BUY CRYPTO NOW, THANK ME LATER"},
	}

	clusters := DetectCoordination(comments)
	require.Len(t, clusters, 1)
	assert.Equal("buy crypto now, thank me later", clusters[0].Text)
	assert.Equal([]string{"alice", "bob", "carol"}, clusters[0].Users)
}

func TestDetectCoordinationRepeatInflatesCount(t *testing.T) {
	assert := assert.New(t)

	comments := []Comment{
		{ID: "1", Username: "alice", Text: "follow for follow back always"},
		{ID: "2", Username: "bob", Text: "follow for follow back always"},
		{ID: "3", Username: "alice", Text: "follow for follow back always"},
	}

	clusters := DetectCoordination(comments)
	require.Len(t, clusters, 1)
	assert.Equal(2, len(clusters[0].Users))
	assert.Equal(3, clusters[0].CommentCount)
	assert.InDelta(0.8, clusters[0].Confidence, 1e-9)
}

func TestDetectCoordinationConfidenceCeiling(t *testing.T) {
	assert := assert.New(t)

	var comments []Comment
	for i := 0; i < 8; i++ {
		comments = append(comments, Comment{
			ID:       fmt.Sprintf("%d", i),
			Username: fmt.Sprintf("user%d", i),
			Text:     "incredible opportunity, join now",
		})
	}

	clusters := DetectCoordination(comments)
	require.Len(t, clusters, 1)
	assert.InDelta(0.9, clusters[0].Confidence, 1e-9)
}

func TestDetectCoordinationDegenerateInputs(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(DetectCoordination(nil))
	assert.Empty(DetectCoordination([]Comment{}))
	assert.Empty(DetectCoordination([]Comment{
		{ID: "1", Username: "alice", Text: "a single long enough comment"},
	}))
}

func TestDetectCoordinationStableOutput(t *testing.T) {
	assert := assert.New(t)

	comments := []Comment{
		{ID: "1", Username: "alice", Text: "zero effort copy paste text"},
		{ID: "2", Username: "bob", Text: "zero effort copy paste text"},
		{ID: "3", Username: "carol", Text: "another recycled comment here"},
		{ID: "4", Username: "dave", Text: "another recycled comment here"},
	}

	first := DetectCoordination(comments)
	require.Len(t, first, 2)
	assert.Less(first[0].Text, first[1].Text)
	for i := 0; i < 5; i++ {
		assert.Equal(first, DetectCoordination(comments))
	}
}
