package nsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
)

// fetchColumns is the explicit projection requested from the NSP entity
// search endpoint. The API flattens the .Id halves into dotted keys on the
// response side.
var fetchColumns = []string{
	"ReferenceNo",
	"BaseEntityStatus",
	"AgentGroup",
	"CreatedDate",
	"CloseDateTime",
	"Priority",
	"BaseAgent",
	"BaseEndUser",
	"BaseHeader",
	"u_Opstart",
	"u_Afslutning",
	"u_Opgavetype",
	"u_Omrder",
	"u_Afvisningsrsag",
	"UpdatedDate",
}

// FetchError is a transport failure or non-2xx response from the ticket API.
// The loop logs it and retries on the next interval.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("nsp fetch failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("nsp fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError is a 2xx response whose payload is not the expected JSON shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("nsp response not decodable: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

type Client struct {
	baseURL    string
	apiKey     string
	groupName  string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL, apiKey, groupName string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		groupName: groupName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type searchRequest struct {
	EntityType string      `json:"entityType"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Columns    []string    `json:"columns"`
	Filters    filterGroup `json:"filters"`
}

type filterGroup struct {
	Logic   string   `json:"logic"`
	Filters []filter `json:"filters"`
}

type filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type searchResponse struct {
	Data []model.RawRecord `json:"Data"`
}

// FetchUpdatedSince returns every ticket of the configured agent group whose
// UpdatedDate is at or after the watermark (ISO-8601 UTC with trailing Z).
func (c *Client) FetchUpdatedSince(ctx context.Context, watermark string) ([]model.RawRecord, error) {
	c.logger.Info().Str("watermark", watermark).Msg("fetching tickets from NSP")
	payload, err := json.Marshal(searchRequest{
		EntityType: "Ticket",
		Page:       1,
		PageSize:   1000,
		Columns:    fetchColumns,
		Filters: filterGroup{
			Logic: "and",
			Filters: []filter{
				{Field: "AgentGroup.GroupName", Operator: "eq", Value: c.groupName},
				{Field: "UpdatedDate", Operator: "gte", Value: watermark},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().Int("status", resp.StatusCode).Bytes("body", body).Msg("NSP fetch failed")
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &DecodeError{Err: err}
	}
	c.logger.Info().Int("records", len(parsed.Data)).Msg("tickets fetched from NSP")
	return parsed.Data, nil
}
