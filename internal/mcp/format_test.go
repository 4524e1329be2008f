package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/search"
	"github.com/Aman-CERP/mdsearch/internal/service"
)

func TestFormatSearchResults(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		out := FormatSearchResults(&service.Response{Query: "zebra"})
		assert.Equal(t, `No results found for "zebra"`, out)
	})

	t.Run("second page", func(t *testing.T) {
		// Given: page two of a three-result query
		resp := &service.Response{
			Total:  3,
			Query:  "fox",
			Limit:  2,
			Offset: 2,
			Results: []search.Hit{
				{ID: 9, Path: "notes/untitled.md", Snippet: "a <mark>fox</mark>\nline two", Score: 0.1},
			},
		}

		// When: formatting
		out := FormatSearchResults(resp)

		// Then: numbering continues from the offset and the path stands in for the title
		assert.Contains(t, out, "Showing 3-3 of 3 results")
		assert.Contains(t, out, "### 3. notes/untitled.md")
		assert.Contains(t, out, "**ID:** 9")
		assert.Contains(t, out, "> a <mark>fox</mark>\n> line two")
	})
}

func TestFormatStatus_States(t *testing.T) {
	assert.Contains(t, FormatStatus(service.Status{Rebuilding: true}), "**State:** rebuilding")
	assert.Contains(t, FormatStatus(service.Status{RebuildPending: true}), "**State:** rebuild pending")
	assert.Contains(t, FormatStatus(service.Status{Overflows: 2}), "**Queue overflows:** 2")
	assert.NotContains(t, FormatStatus(service.Status{}), "overflows")
}

func TestFormatRebuild(t *testing.T) {
	out := FormatRebuild(&index.RebuildStats{Scanned: 4, Indexed: 3, Skipped: 1, Generation: 2, Duration: 1234567 * time.Microsecond})

	assert.Contains(t, out, "**Skipped:** 1")
	assert.Contains(t, out, "**Duration:** 1.235s")
}
