package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	testCases := []struct {
		content  string
		expected []string
	}{
		{"hey @Bob and @carol!", []string{"bob", "carol"}},
		{"@bob @bob @BOB", []string{"bob"}},
		{"no mentions here", nil},
		{"@ab too short", nil},
		{"email me at a@b.com", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.content, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractMentions(tc.content))
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"go", "golang"}, ExtractHashtags("learning #Go, loving #golang #go"))
	assert.Nil(t, ExtractHashtags("# alone"))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "rust"}, NormalizeTags([]string{"#Go", " go ", "", "Rust"}))
}

func TestNewPage(t *testing.T) {
	testCases := []struct {
		name          string
		page, limit   int
		expectedPage  int
		expectedLimit int
		expectedSkip  int
	}{
		{"defaults", 0, 0, 1, DefaultPageLimit, 0},
		{"second page", 2, 10, 2, 10, 10},
		{"limit clamped", 1, 1000, 1, MaxPageLimit, 0},
		{"negative page", -3, 5, 1, 5, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage(tc.page, tc.limit)
			assert.Equal(t, tc.expectedPage, p.Page)
			assert.Equal(t, tc.expectedLimit, p.Limit)
			assert.Equal(t, tc.expectedSkip, p.Offset())
		})
	}
}

func TestNewPagination(t *testing.T) {
	meta := NewPagination(NewPage(1, 20), 45)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasMore)

	meta = NewPagination(NewPage(3, 20), 45)
	assert.False(t, meta.HasMore)

	meta = NewPagination(NewPage(1, 20), 0)
	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasMore)
}
