// Package remote implements the sync boundary over the hosted HTTP API.
// Every response uses the success/data envelope; a 401 is mapped to
// ledger.ErrUnauthorized so the store can abort the sync contract.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"centavo/internal/domain/progression"
	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/ledger"
	"centavo/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to the hosted ledger API with Bearer authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ ledger.RemoteStore = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// envelope is the API response wrapper shared by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// do executes one request and decodes the envelope's data payload into
// out (skipped when out is nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ledger.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(raw))
		}
		return fmt.Errorf("API error (status %d): %s - %s", resp.StatusCode, env.Error, env.Message)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("API error: %s - %s", env.Error, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

func userPath(userID, suffix string) string {
	return fmt.Sprintf("/users/%s%s", url.PathEscape(userID), suffix)
}

func (c *Client) InsertTransaction(ctx context.Context, userID string, t transaction.Transaction) (transaction.Transaction, error) {
	var out transaction.Transaction
	// Temporary ids never leave the device.
	t.ID = ""
	t.SyncStatus = ""
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/transactions"), t, &out); err != nil {
		return transaction.Transaction{}, err
	}
	return out, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, userID, id string, patch transaction.UpdateParams) error {
	return c.do(ctx, http.MethodPatch, userPath(userID, "/transactions/"+url.PathEscape(id)), patch, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "/transactions/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/transactions"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertCard(ctx context.Context, userID string, card models.Card) (models.Card, error) {
	var out models.Card
	card.ID = ""
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/cards"), card, &out); err != nil {
		return models.Card{}, err
	}
	return out, nil
}

func (c *Client) UpdateCard(ctx context.Context, userID string, card models.Card) error {
	return c.do(ctx, http.MethodPut, userPath(userID, "/cards/"+url.PathEscape(card.ID)), card, nil)
}

func (c *Client) DeleteCard(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "/cards/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	var out []models.Card
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/cards"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertGoal(ctx context.Context, userID string, goal models.Goal) (models.Goal, error) {
	var out models.Goal
	goal.ID = ""
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/goals"), goal, &out); err != nil {
		return models.Goal{}, err
	}
	return out, nil
}

func (c *Client) UpdateGoal(ctx context.Context, userID string, goal models.Goal) error {
	return c.do(ctx, http.MethodPut, userPath(userID, "/goals/"+url.PathEscape(goal.ID)), goal, nil)
}

func (c *Client) DeleteGoal(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "/goals/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	var out []models.Goal
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/goals"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertDebt(ctx context.Context, userID string, debt models.Debt) (models.Debt, error) {
	var out models.Debt
	debt.ID = ""
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/debts"), debt, &out); err != nil {
		return models.Debt{}, err
	}
	return out, nil
}

func (c *Client) UpdateDebt(ctx context.Context, userID string, debt models.Debt) error {
	return c.do(ctx, http.MethodPut, userPath(userID, "/debts/"+url.PathEscape(debt.ID)), debt, nil)
}

func (c *Client) DeleteDebt(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "/debts/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListDebts(ctx context.Context, userID string) ([]models.Debt, error) {
	var out []models.Debt
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/debts"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertRule(ctx context.Context, userID string, r rule.Rule) (rule.Rule, error) {
	var out rule.Rule
	r.ID = ""
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/rules"), r, &out); err != nil {
		return rule.Rule{}, err
	}
	return out, nil
}

func (c *Client) DeleteRule(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(userID, "/rules/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListRules(ctx context.Context, userID string) ([]rule.Rule, error) {
	var out []rule.Rule
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/rules"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProgression(ctx context.Context, userID string) (*progression.Progression, error) {
	var out *progression.Progression
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/progression"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SaveProgression(ctx context.Context, userID string, p progression.Progression) error {
	return c.do(ctx, http.MethodPut, userPath(userID, "/progression"), p, nil)
}
