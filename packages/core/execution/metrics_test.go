package execution

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricStore_SetGet(t *testing.T) {
	m := NewMetricStore()

	m.Set("count", 3)
	m.Set("name", "login flow")
	m.Set("tags", []any{"smoke", "auth"})

	v, ok := m.Get("count")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMetricStore_NilIsStorable(t *testing.T) {
	m := NewMetricStore()
	m.Set("maybe", nil)

	v, ok := m.Get("maybe")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMetricStore_LastWriteWinsKeepsOrder(t *testing.T) {
	m := NewMetricStore()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10)

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, 10, all[0].Value)
	assert.Equal(t, "b", all[1].Name)
	assert.Equal(t, 2, m.Len())
}

func TestNormalizeValue_Timestamps(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)

	t.Run("bare timestamp", func(t *testing.T) {
		assert.Equal(t, ts.Format(time.RFC3339Nano), NormalizeValue(ts))
	})

	t.Run("pointer", func(t *testing.T) {
		assert.Equal(t, ts.Format(time.RFC3339Nano), NormalizeValue(&ts))
		var nilTime *time.Time
		assert.Nil(t, NormalizeValue(nilTime))
	})

	t.Run("nested in map and slice", func(t *testing.T) {
		v := map[string]any{
			"started": ts,
			"samples": []any{ts, 42, "plain"},
			"inner":   map[string]any{"at": ts},
		}
		got := NormalizeValue(v).(map[string]any)
		want := ts.Format(time.RFC3339Nano)
		assert.Equal(t, want, got["started"])
		assert.Equal(t, want, got["samples"].([]any)[0])
		assert.Equal(t, 42, got["samples"].([]any)[1])
		assert.Equal(t, want, got["inner"].(map[string]any)["at"])
	})
}

func TestMetricStore_JSONRoundTrip(t *testing.T) {
	m := NewMetricStore()
	m.Set("scalar", 2.5)
	m.Set("list", []any{1.0, "two", true, nil})
	m.Set("mapping", map[string]any{"k": "v", "n": 7.0})
	m.Set("nothing", nil)

	for _, metric := range m.All() {
		encoded, err := json.Marshal(metric.Value)
		require.NoError(t, err)

		var decoded any
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, metric.Value, decoded, "metric %s", metric.Name)
	}
}
