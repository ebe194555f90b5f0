package prometheus

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLogin(t *testing.T) {
	m := New("test")
	m.ObserveLogin(LoginSuccess)
	m.ObserveLogin(LoginFailure)
	m.ObserveLogin(LoginFailure)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginThrottled)))
}

func TestObserveCollection(t *testing.T) {
	m := New("test")
	m.ObserveCollection(20*time.Millisecond, nil)
	m.ObserveCollection(5*time.Second, errors.New("probe failed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.collections.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collections.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.collectionDuration))
}

func TestStreamConnected(t *testing.T) {
	m := New("test")
	done1 := m.StreamConnected()
	done2 := m.StreamConnected()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.streamClients))

	done1()
	done2()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.streamClients))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLogin(LoginSuccess)
		m.ObserveCollection(time.Second, nil)
		m.StreamConnected()()
	})
}

func TestHandler(t *testing.T) {
	m := New("1.2.3")
	m.ObserveLogin(LoginThrottled)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `homedash_login_attempts_total{result="throttled"} 1`)
	assert.Contains(t, body, `homedash_build_info{version="1.2.3"} 1`)
	assert.Contains(t, body, "homedash_stats_collection_duration_seconds_bucket")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestRegistry_isolatedPerInstance(t *testing.T) {
	a := New("a")
	b := New("b")
	a.ObserveLogin(LoginSuccess)

	// 三种结果预先导出，再加一条 build_info
	n, err := testutil.GatherAndCount(a.Registry(), "homedash_login_attempts_total", "homedash_build_info")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	expected := `
# HELP homedash_build_info Build information.
# TYPE homedash_build_info gauge
homedash_build_info{version="b"} 1
# HELP homedash_login_attempts_total Login attempts by result.
# TYPE homedash_login_attempts_total counter
homedash_login_attempts_total{result="failure"} 0
homedash_login_attempts_total{result="success"} 0
homedash_login_attempts_total{result="throttled"} 0
`
	require.NoError(t, testutil.GatherAndCompare(b.Registry(), strings.NewReader(expected),
		"homedash_login_attempts_total", "homedash_build_info"))
}
