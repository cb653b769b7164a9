package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePrometheus answers instant queries from a fixed table. Queries not in
// the table return an empty vector.
func fakePrometheus(t *testing.T, values map[string][]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, r.ParseForm())
		query := r.Form.Get("query")

		result := ""
		for i, v := range values[query] {
			if i > 0 {
				result += ","
			}
			result += fmt.Sprintf(`{"metric":{"instance":"node-%d"},"value":[1700000000,"%s"]}`, i, v)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[%s]}}`, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testQueries() PrometheusQueries {
	return PrometheusQueries{
		CPU:       "cpu_pct",
		RAM:       "ram_pct",
		Storage:   "storage_gb",
		Hosts:     "hosts",
		Instances: "instances",
		Volumes:   "volumes",
	}
}

func TestPrometheusSourceFetch(t *testing.T) {
	srv := fakePrometheus(t, map[string][]string{
		"up":         {"1"},
		"cpu_pct":    {"42.5"},
		"ram_pct":    {"30", "20.25"},
		"storage_gb": {"812.5"},
		"hosts":      {"3"},
		"instances":  {"57"},
		"volumes":    {"12"},
	})

	src, err := NewPrometheusSource(srv.URL, testQueries(), 0, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, src.Connect(ctx))

	u, err := src.FetchUtilization(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 42.5, u.CPUPercent, 1e-9)
	assert.InDelta(t, 50.25, u.RAMPercent, 1e-9, "multi-series vectors are summed")
	assert.Equal(t, 3, u.Hosts)
	assert.Equal(t, 57, u.Instances)

	s, err := src.FetchStorage(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 812.5, s.TotalGB, 1e-9)
	assert.Equal(t, 12, s.Volumes)

	assert.Equal(t, "prometheus", src.Name())
}

func TestPrometheusSourceEmptyVector(t *testing.T) {
	srv := fakePrometheus(t, map[string][]string{
		"cpu_pct": {"10"},
		"ram_pct": {"20"},
	})

	src, err := NewPrometheusSource(srv.URL, testQueries(), 0, nil)
	require.NoError(t, err)

	u, err := src.FetchUtilization(context.Background())
	require.NoError(t, err, "missing count series only zero the annotations")
	assert.Equal(t, 0, u.Hosts)

	_, err = src.FetchStorage(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestPrometheusSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := NewPrometheusSource(url, PrometheusQueries{}, 0, nil)
	require.NoError(t, err)

	err = src.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = src.FetchUtilization(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestPrometheusSourceDefaults(t *testing.T) {
	_, err := NewPrometheusSource("", PrometheusQueries{}, 0, nil)
	assert.Error(t, err)

	src, err := NewPrometheusSource("http://localhost:9090", PrometheusQueries{CPU: "custom"}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", src.queries.CPU)
	assert.Equal(t, DefaultPrometheusQueries().RAM, src.queries.RAM)
	assert.Empty(t, src.queries.Hosts, "count queries are not defaulted")
}

func TestPrometheusSourceRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	src, err := NewPrometheusSource(srv.URL, testQueries(), 50*time.Millisecond, nil)
	require.NoError(t, err)

	start := time.Now()
	err = src.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second, "client timeout should bound the request")
}
