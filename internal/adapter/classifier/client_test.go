package classifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-intel-service/internal/adapter/classifier"
	"github.com/couchcryptid/crisis-intel-service/internal/domain"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() domain.ClassificationRequest {
	return domain.ClassificationRequest{
		Description: "flash flooding reported",
		EventType:   "Flood",
		Location:    "New Brunswick, NJ",
	}
}

func TestClassify_ParsesAssessment(t *testing.T) {
	var received domain.ClassificationRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"severity":"High","risk_score":78,"reasoning":"river overflow expected"}`)) //nolint:errcheck
	})

	client := classifier.NewClient(srv.URL, 5*time.Second, slog.Default())
	risk, err := client.Classify(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "High", risk.Severity)
	assert.Equal(t, 78, risk.RiskScore)
	assert.Equal(t, "river overflow expected", risk.Reasoning)
	assert.Equal(t, "Flood", received.EventType)
}

func TestClassify_MalformedJSON(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("I think this event is quite dangerous")) //nolint:errcheck
	})

	client := classifier.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := client.Classify(context.Background(), testRequest())
	require.Error(t, err)

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Raw, "quite dangerous")
}

func TestClassify_MissingSeverity(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"analysis":"looks bad"}`)) //nolint:errcheck
	})

	client := classifier.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := client.Classify(context.Background(), testRequest())

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestClassify_RawExcerptCapped(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("garbage ", 100))) //nolint:errcheck
	})

	client := classifier.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := client.Classify(context.Background(), testRequest())

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.LessOrEqual(t, len(malformed.Raw), 203)
}

func TestClassify_ServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	client := classifier.NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := client.Classify(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	var malformed *domain.MalformedResponseError
	assert.False(t, errors.As(err, &malformed))
}

func TestClassify_TransportError(t *testing.T) {
	client := classifier.NewClient("http://127.0.0.1:1", time.Second, slog.Default())
	_, err := client.Classify(context.Background(), testRequest())
	assert.Error(t, err)
}
