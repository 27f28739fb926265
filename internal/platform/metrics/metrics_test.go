package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMiddleware(t *testing.T) {
	m := New()
	status := http.StatusOK
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/layout", nil))
	status = http.StatusConflict
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/streams", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal))
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncStreamsAdded()
	m.IncStreamsAdded()
	m.AddStreamsRemoved(2)
	m.IncCapacityRejections()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.streamsAddedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.streamsRemovedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.capacityRejected))
}

func TestHandler_refreshes_gauges(t *testing.T) {
	m := New()
	srv := httptest.NewServer(m.Handler(func() {
		m.SetActiveStreams(4)
		m.SetWSClients(2)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "multiview_active_streams 4")
	assert.Contains(t, string(body), "multiview_ws_clients 2")
}
