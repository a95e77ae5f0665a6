// Package ovo implements the GraphQL query client for the myovo energy-data
// endpoint.
package ovo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/kgrahame/ovoau/internal/ports"
)

const (
	// DefaultEndpoint is the single GraphQL endpoint the myovo web app talks to.
	DefaultEndpoint = "https://my.ovoenergy.com.au/graphql"

	// idTokenHeader carries the second half of the dual-token session.
	idTokenHeader = "myovo-id-token"

	dateFormat = "2006-01-02"

	defaultRequestTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
)

const hourlyDataQuery = `
query GetHourlyData($input: GetHourlyDataInput!) {
  getHourlyData(input: $input) {
    solar {
      periodFrom
      periodTo
      consumption
      readType
      charge {
        amount
        currency
      }
    }
    export {
      periodFrom
      periodTo
      consumption
      readType
      charge {
        amount
        currency
      }
    }
    savings {
      periodFrom
      periodTo
      consumption
      readType
      charge {
        amount
        currency
      }
    }
  }
}`

const productAgreementsQuery = `
query GetProductAgreements($input: GetProductAgreementsInput!) {
  getProductAgreements(input: $input) {
    planName
    nmi
    validFrom
    validTo
    rates {
      type
      unitPrice
    }
  }
}`

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

var _ ports.UsageAPI = (*Client)(nil)

func NewClient(endpoint string, httpClient *http.Client, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
		timeout:    defaultRequestTimeout,
	}
}

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type dateRangeInput struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type hourlyDataInput struct {
	AccountID string         `json:"accountId"`
	DateRange dateRangeInput `json:"dateRange"`
}

type accountInput struct {
	AccountID string `json:"accountId"`
}

type apiCharge struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type apiPoint struct {
	PeriodFrom  string     `json:"periodFrom"`
	PeriodTo    string     `json:"periodTo"`
	Consumption float64    `json:"consumption"`
	ReadType    string     `json:"readType"`
	Charge      *apiCharge `json:"charge"`
}

type hourlyDataResponse struct {
	GetHourlyData struct {
		Solar   []apiPoint `json:"solar"`
		Export  []apiPoint `json:"export"`
		Savings []apiPoint `json:"savings"`
	} `json:"getHourlyData"`
}

type productAgreementsResponse struct {
	GetProductAgreements struct {
		PlanName  string `json:"planName"`
		NMI       string `json:"nmi"`
		ValidFrom string `json:"validFrom"`
		ValidTo   string `json:"validTo"`
		Rates     []struct {
			Type      string  `json:"type"`
			UnitPrice float64 `json:"unitPrice"`
		} `json:"rates"`
	} `json:"getProductAgreements"`
}

// FetchHourly retrieves the solar, export and savings series for the
// inclusive date range. One GraphQL request per call; the API has no batching
// facility.
func (c *Client) FetchHourly(ctx context.Context, tokens domain.TokenSet, accountID string, start, end time.Time) (map[domain.Stream][]domain.HourlyReading, error) {
	variables := map[string]hourlyDataInput{
		"input": {
			AccountID: accountID,
			DateRange: dateRangeInput{
				StartDate: start.Format(dateFormat),
				EndDate:   end.Format(dateFormat),
			},
		},
	}

	var payload hourlyDataResponse
	if err := c.do(ctx, tokens, hourlyDataQuery, variables, &payload); err != nil {
		return nil, err
	}

	out := map[domain.Stream][]domain.HourlyReading{
		domain.StreamSolar:   c.convertPoints(domain.StreamSolar, payload.GetHourlyData.Solar),
		domain.StreamExport:  c.convertPoints(domain.StreamExport, payload.GetHourlyData.Export),
		domain.StreamSavings: c.convertPoints(domain.StreamSavings, payload.GetHourlyData.Savings),
	}
	return out, nil
}

// FetchPlan retrieves the current product agreement for the account.
func (c *Client) FetchPlan(ctx context.Context, tokens domain.TokenSet, accountID string) (domain.Plan, error) {
	variables := map[string]accountInput{"input": {AccountID: accountID}}

	var payload productAgreementsResponse
	if err := c.do(ctx, tokens, productAgreementsQuery, variables, &payload); err != nil {
		return domain.Plan{}, err
	}

	agreement := payload.GetProductAgreements
	plan := domain.Plan{
		Name:  agreement.PlanName,
		NMI:   agreement.NMI,
		Rates: make(map[string]float64, len(agreement.Rates)),
	}
	for _, rate := range agreement.Rates {
		plan.Rates[strings.ToLower(rate.Type)] = rate.UnitPrice
	}
	if from, err := time.Parse(dateFormat, agreement.ValidFrom); err == nil {
		plan.AgreementFrom = from
	}
	if to, err := time.Parse(dateFormat, agreement.ValidTo); err == nil {
		plan.AgreementTo = to
	}
	return plan, nil
}

func (c *Client) do(ctx context.Context, tokens domain.TokenSet, query string, variables, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	requestCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set(idTokenHeader, tokens.IDToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "graphql request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.TokenExpiredError{}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return &domain.ServiceUnavailableError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return &domain.APIError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var envelope graphQLEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		if first.Extensions.Code == "UNAUTHENTICATED" {
			return &domain.TokenExpiredError{Err: &domain.APIError{Code: first.Extensions.Code, Message: first.Message}}
		}
		messages := make([]string, 0, len(envelope.Errors))
		for _, gqlErr := range envelope.Errors {
			messages = append(messages, gqlErr.Message)
		}
		return &domain.APIError{Code: first.Extensions.Code, Message: strings.Join(messages, "; ")}
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func (c *Client) convertPoints(stream domain.Stream, points []apiPoint) []domain.HourlyReading {
	out := make([]domain.HourlyReading, 0, len(points))
	for _, p := range points {
		from, err := time.Parse(time.RFC3339, p.PeriodFrom)
		if err != nil {
			c.logger.Warn("skipping point with unparseable period start", "stream", string(stream), "periodFrom", p.PeriodFrom)
			continue
		}
		to, err := time.Parse(time.RFC3339, p.PeriodTo)
		if err != nil {
			to = from.Add(time.Hour)
		}
		if to.Sub(from) != time.Hour {
			c.logger.Warn("point is not a one-hour period", "stream", string(stream), "periodFrom", p.PeriodFrom, "periodTo", p.PeriodTo)
		}

		reading := domain.HourlyReading{
			PeriodStart:    from,
			PeriodEnd:      to,
			ConsumptionKWh: p.Consumption,
			ReadType:       domain.ReadType(p.ReadType),
			Stream:         stream,
		}
		// A null charge means no cost data yet, which is expected for
		// points the retailer has not billed.
		if p.Charge != nil {
			reading.Charge = &domain.Charge{Amount: p.Charge.Amount, Currency: p.Charge.Currency}
		}
		out = append(out, reading)
	}
	return out
}
