package ovo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgrahame/ovoau/internal/domain"
)

var testTokens = domain.TokenSet{AccessToken: "access-1", IDToken: "id-1"}

func hourlyBody(points string) string {
	return fmt.Sprintf(`{"data":{"getHourlyData":{"solar":%s,"export":[],"savings":[]}}}`, points)
}

func TestFetchHourlyRequestShape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer access-1", r.Header.Get("authorization"))
		assert.Equal(t, "id-1", r.Header.Get("myovo-id-token"))

		var req struct {
			Query     string `json:"query"`
			Variables struct {
				Input struct {
					AccountID string `json:"accountId"`
					DateRange struct {
						StartDate string `json:"startDate"`
						EndDate   string `json:"endDate"`
					} `json:"dateRange"`
				} `json:"input"`
			} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "GetHourlyData")
		assert.Equal(t, "12345", req.Variables.Input.AccountID)
		assert.Equal(t, "2026-01-30", req.Variables.Input.DateRange.StartDate)
		assert.Equal(t, "2026-01-31", req.Variables.Input.DateRange.EndDate)

		_, _ = w.Write([]byte(hourlyBody(`[
			{"periodFrom":"2026-01-31T10:00:00+11:00","periodTo":"2026-01-31T11:00:00+11:00","consumption":1.25,"readType":"ACTUAL","charge":{"amount":0.31,"currency":"AUD"}},
			{"periodFrom":"2026-01-31T11:00:00+11:00","periodTo":"2026-01-31T12:00:00+11:00","consumption":2.5,"readType":"ESTIMATED","charge":null}
		]`)))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), nil)
	start := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	streams, err := client.FetchHourly(context.Background(), testTokens, "12345", start, end)
	require.NoError(t, err)

	solar := streams[domain.StreamSolar]
	require.Len(t, solar, 2)

	assert.Equal(t, 1.25, solar[0].ConsumptionKWh)
	assert.Equal(t, domain.ReadActual, solar[0].ReadType)
	require.NotNil(t, solar[0].Charge)
	assert.Equal(t, 0.31, solar[0].Charge.Amount)
	assert.Equal(t, "AUD", solar[0].Charge.Currency)

	// The point keeps its own UTC offset for local-date bucketing.
	_, offset := solar[0].PeriodStart.Zone()
	assert.Equal(t, 11*3600, offset)

	assert.Nil(t, solar[1].Charge, "null charge means no cost data, not an error")
	assert.Equal(t, domain.ReadEstimated, solar[1].ReadType)

	assert.Empty(t, streams[domain.StreamExport])
	assert.Empty(t, streams[domain.StreamSavings])
}

func TestFetchHourlyErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "http 401",
			status: http.StatusUnauthorized,
			wantErr: func(t *testing.T, err error) {
				var expired *domain.TokenExpiredError
				assert.ErrorAs(t, err, &expired)
			},
		},
		{
			name:   "http 429",
			status: http.StatusTooManyRequests,
			wantErr: func(t *testing.T, err error) {
				var unavailable *domain.ServiceUnavailableError
				require.ErrorAs(t, err, &unavailable)
				assert.Equal(t, http.StatusTooManyRequests, unavailable.StatusCode)
			},
		},
		{
			name:   "http 502",
			status: http.StatusBadGateway,
			wantErr: func(t *testing.T, err error) {
				var unavailable *domain.ServiceUnavailableError
				assert.ErrorAs(t, err, &unavailable)
			},
		},
		{
			name:   "graphql unauthenticated",
			status: http.StatusOK,
			body:   `{"errors":[{"message":"token expired","extensions":{"code":"UNAUTHENTICATED"}}]}`,
			wantErr: func(t *testing.T, err error) {
				var expired *domain.TokenExpiredError
				assert.ErrorAs(t, err, &expired)
			},
		},
		{
			name:   "graphql validation error",
			status: http.StatusOK,
			body:   `{"errors":[{"message":"unknown field","extensions":{"code":"GRAPHQL_VALIDATION_FAILED"}},{"message":"second"}]}`,
			wantErr: func(t *testing.T, err error) {
				var apiErr *domain.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", apiErr.Code)
				assert.Contains(t, apiErr.Message, "unknown field")
				assert.Contains(t, apiErr.Message, "second")
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				if tc.body != "" {
					_, _ = w.Write([]byte(tc.body))
				}
			}))
			defer server.Close()

			client := NewClient(server.URL, server.Client(), nil)
			_, err := client.FetchHourly(context.Background(), testTokens, "12345", time.Now(), time.Now())
			require.Error(t, err)
			tc.wantErr(t, err)
		})
	}
}

func TestFetchHourlyNetworkFailureIsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL, http.DefaultClient, nil)
	_, err := client.FetchHourly(context.Background(), testTokens, "12345", time.Now(), time.Now())

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.True(t, domain.IsRetryable(err))
}

func TestFetchPlan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "GetProductAgreements")

		_, _ = w.Write([]byte(`{"data":{"getProductAgreements":{
			"planName":"The Free Plan Solar",
			"nmi":"41021234567",
			"validFrom":"2025-07-01",
			"validTo":"2026-06-30",
			"rates":[
				{"type":"PEAK","unitPrice":0.44},
				{"type":"OFFPEAK","unitPrice":0.18},
				{"type":"FEEDIN","unitPrice":0.05}
			]}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), nil)
	plan, err := client.FetchPlan(context.Background(), testTokens, "12345")
	require.NoError(t, err)

	assert.Equal(t, "The Free Plan Solar", plan.Name)
	assert.Equal(t, "41021234567", plan.NMI)
	assert.Equal(t, map[string]float64{
		domain.TariffPeak:    0.44,
		domain.TariffOffPeak: 0.18,
		domain.TariffFeedIn:  0.05,
	}, plan.Rates)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), plan.AgreementFrom)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), plan.AgreementTo)
}
