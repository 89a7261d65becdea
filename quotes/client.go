package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type QuoteAPI struct {
	endpoint  string
	quotePath string
	token     string

	Client *http.Client
}

func NewQuoteAPI(endpoint, token string) *QuoteAPI {
	return &QuoteAPI{
		endpoint:  endpoint,
		quotePath: "/v1/quotes?latest=true",
		token:     token,
		Client: &http.Client{
			Transport: &http.Transport{},
		},
	}
}

func (a *QuoteAPI) GetQuotes(ctx context.Context, payload QuoteRequestPayload) (*QuoteResponsePayload, error) {
	payloadBy, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.endpoint+a.quotePath, bytes.NewBuffer(payloadBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Add("accept", "application/json")
	req.Header.Add("content-type", "application/json")
	req.Header.Add("authorization", "Bearer "+a.token)

	res, err := a.Client.Do(req)
	defer func() {
		if res != nil {
			res.Body.Close()
		}
	}()

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status code %d", res.StatusCode)
	}

	resPayloadBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	data := &QuoteResponsePayload{}
	if err := json.Unmarshal(resPayloadBytes, data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return data, nil
}
