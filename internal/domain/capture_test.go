package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMomentType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected MomentType
	}{
		{name: "standard", input: "STANDARD", expected: MomentTypeStandard},
		{name: "sponsored", input: "SPONSORED", expected: MomentTypeSponsored},
		{name: "lowercase emotional", input: "emotional", expected: MomentTypeEmotional},
		{name: "padded historic", input: "  HISTORIC ", expected: MomentTypeHistoric},
		{name: "empty defaults", input: "", expected: MomentTypeStandard},
		{name: "unknown defaults", input: "LEGENDARY", expected: MomentTypeStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseMomentType(tt.input))
		})
	}
}

func TestParseFeedSort(t *testing.T) {
	assert.Equal(t, FeedSortTop, ParseFeedSort("top"))
	assert.Equal(t, FeedSortLatest, ParseFeedSort("latest"))
	assert.Equal(t, FeedSortLatest, ParseFeedSort(""))
	assert.Equal(t, FeedSortLatest, ParseFeedSort("hot"))
}
