package history

import (
	"testing"
	"time"

	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Summary(t *testing.T) {
	var entries []Entry
	for i := 1; i <= 100; i++ {
		entries = append(entries, Entry{
			Request: hithttp.Template{Method: "GET", URL: "http://a"},
			TimeMs:  int64(i),
		})
	}
	entries = append(entries,
		Entry{Request: hithttp.Template{Method: "POST", URL: "http://b"}, TimeMs: 500},
		Entry{Request: hithttp.Template{Method: "POST", URL: "http://b"}, ErrorKind: "NetworkError"},
	)

	sum := StatsFor(entries).Summary()

	assert.Equal(t, int64(102), sum.Total)
	assert.Equal(t, int64(101), sum.Responses)
	assert.Equal(t, int64(1), sum.Failures)
	assert.InDelta(t, float64(51*time.Millisecond), float64(sum.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(96*time.Millisecond), float64(sum.P95), float64(time.Millisecond))
	assert.InDelta(t, float64(500*time.Millisecond), float64(sum.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(time.Millisecond), float64(sum.Min), float64(10*time.Microsecond))

	require.Len(t, sum.Endpoints, 2)
	assert.Equal(t, "GET http://a", sum.Endpoints[0].Label)
	assert.Equal(t, int64(100), sum.Endpoints[0].Total)
	assert.Equal(t, "POST http://b", sum.Endpoints[1].Label)
	assert.Equal(t, int64(1), sum.Endpoints[1].Failures)
}

func TestStats_Empty(t *testing.T) {
	sum := NewStats().Summary()
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.P99)
	assert.Zero(t, sum.Mean)
	assert.Empty(t, sum.Endpoints)
}

func TestClampLatency(t *testing.T) {
	assert.Equal(t, int64(minLatencyUs), clampLatency(0))
	assert.Equal(t, int64(maxLatencyUs), clampLatency(time.Hour))
	assert.Equal(t, int64(1500), clampLatency(1500*time.Microsecond))
}
