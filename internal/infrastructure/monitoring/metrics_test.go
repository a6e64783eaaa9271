package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()

	a.SessionOpened("sess_a")
	assert.Equal(t, float64(1), testutil.ToFloat64(a.SessionsActive))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.SessionsActive))
}

func TestSessionLifecycle(t *testing.T) {
	m := NewMetrics()

	m.SessionOpened("sess_1")
	m.SessionOpened("sess_2")
	m.SessionAuthenticated("sess_1", "user-1", true)
	m.SessionAuthenticated("sess_1", "user-2", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsAuthenticated))

	m.SessionClosed("sess_1", "user-2", reasonHeartbeat)
	m.SessionClosed("sess_2", "", "client_closed")

	assert.Equal(t, float64(0), testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SessionsAuthenticated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HeartbeatEvictions))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsTotal))

	snap := m.GetSnapshot()
	assert.Zero(t, snap.ActiveSessions)
	assert.Zero(t, snap.AuthenticatedSessions)
}

func TestMessageAndDeliveryCounters(t *testing.T) {
	m := NewMetrics()

	m.MessageReceived("command", "authenticate")
	m.MessageReceived("command", "authenticate")
	m.MessageReceived("event", "captcha_solved")
	m.DeliveryFailed("captcha_required", "user-1")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.WSMessages.WithLabelValues("command", "authenticate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DeliveryFailures.WithLabelValues("captcha_required")))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(3), snap.MessagesReceived)
	assert.Equal(t, int64(1), snap.DeliveryFailures)
}

func TestCaptchaAttempt(t *testing.T) {
	m := NewMetrics()

	m.CaptchaAttempt("2captcha", OutcomeSolved, 12*time.Second)
	m.CaptchaAttempt("manual", OutcomeTimeout, 5*time.Minute)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CaptchaAttempts.WithLabelValues("2captcha", OutcomeSolved)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CaptchaAttempts.WithLabelValues("manual", OutcomeTimeout)))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(1), snap.CaptchasSolved)
	assert.Equal(t, int64(1), snap.CaptchasFailed)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/users/:userId/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/users/a/sessions", "/users/b/sessions", "/nowhere"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/users/:userId/sessions", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tribunal_bridge_http_requests_total"))
	assert.True(t, strings.Contains(body, "tribunal_bridge_uptime_seconds"))
}
