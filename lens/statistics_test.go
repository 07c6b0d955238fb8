package lens

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStatistics(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)
	stats, err := report.Statistics()
	require.NoError(t, err)
	require.NotNil(t, stats)
	again, err := report.Statistics()
	require.NoError(t, err)
	assert.Same(t, stats, again)

	require.Len(t, stats.Total, 2)
	assert.Equal(t, Stat{Label: "Critical Tests", Pass: 2, Fail: 3}, stats.Total[0])
	assert.Equal(t, int64(5), stats.Total[1].Total())

	require.Len(t, stats.Tags, 2)
	assert.Equal(t, "smoke", stats.Tags[0].Label)
	assert.Equal(t, "Smoke tests", stats.Tags[0].Doc)

	require.Len(t, stats.Suites, 1)
	assert.Equal(t, Stat{Label: "Root", Pass: 2, Fail: 3, ID: "s1", Name: "Root"}, stats.Suites[0])
}

func TestReportStatisticsMalformedCount(t *testing.T) {
	t.Parallel()

	payload := samplePayload(t, PoolOptions{})
	payload.Stats[1][1]["fail"] = "x"
	report, err := NewReport(payload, PoolOptions{})
	require.NoError(t, err)

	stats, err := report.Statistics()
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Nil(t, stats)
	assert.Contains(t, err.Error(), "tag statistics 1")

	_, again := report.Statistics()
	assert.Same(t, err, again)
}

func TestParseStatistics(t *testing.T) {
	t.Parallel()

	t.Run("json_numbers", func(t *testing.T) {
		var raw [][]map[string]any
		require.NoError(t, json.Unmarshal([]byte(`[[{"label":"All Tests","pass":10,"fail":1}],[],[]]`), &raw))

		stats, err := parseStatistics(raw)
		require.NoError(t, err)
		assert.Equal(t, []Stat{{Label: "All Tests", Pass: 10, Fail: 1}}, stats.Total)
		assert.Empty(t, stats.Tags)
		assert.Empty(t, stats.Suites)
	})

	t.Run("missing_groups", func(t *testing.T) {
		stats, err := parseStatistics(nil)
		require.NoError(t, err)
		assert.Nil(t, stats.Total)
		assert.Nil(t, stats.Tags)
		assert.Nil(t, stats.Suites)
	})

	t.Run("missing_counts", func(t *testing.T) {
		stats, err := parseStatistics([][]map[string]any{{{"label": "All Tests", "fail": nil}}})
		require.NoError(t, err)
		assert.Equal(t, []Stat{{Label: "All Tests"}}, stats.Total)
	})

	t.Run("tag_fields", func(t *testing.T) {
		stats, err := parseStatistics([][]map[string]any{nil, {{
			"label": "owner-*", "pass": int8(1), "fail": uint16(2),
			"info": "combined", "combined": "owner-*", "links": "Wiki:http://wiki",
		}}})
		require.NoError(t, err)
		require.Len(t, stats.Tags, 1)
		tag := stats.Tags[0]
		assert.Equal(t, int64(3), tag.Total())
		assert.Equal(t, "combined", tag.Info)
		assert.Equal(t, "owner-*", tag.Combined)
		assert.Equal(t, "Wiki:http://wiki", tag.Links)
	})

	t.Run("malformed_counts", func(t *testing.T) {
		for _, v := range []any{"x", 2.5, true, json.Number("1.5")} {
			_, err := parseStatistics([][]map[string]any{{{"label": "All Tests", "pass": v}}})
			assert.ErrorIs(t, err, ErrShapeMismatch, "%v", v)
		}
	})
}
