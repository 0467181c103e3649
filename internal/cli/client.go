package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/game"
)

// Client is the thin HTTP wrapper stellarctl uses against stellar-api.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Account(ctx context.Context, token string) (game.AccountOverview, error) {
	var out game.AccountOverview
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/account", token, nil, &out)
	return out, err
}

type MissionInput struct {
	DefenderID      int64  `json:"defender_id"`
	MissionType     string `json:"mission_type"`
	Turns           int    `json:"turns"`
	TargetUnit      string `json:"target_unit,omitempty"`
	Mode            string `json:"mode,omitempty"`
	TargetStructure string `json:"target_structure,omitempty"`
	TargetCategory  string `json:"target_category,omitempty"`
}

func (c *Client) ResolveMission(ctx context.Context, token string, in MissionInput) (game.MissionResult, error) {
	var out game.MissionResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/missions", token, in, &out)
	return out, err
}

func (c *Client) Missions(ctx context.Context, token string, limit int) ([]game.MissionLog, error) {
	path := "/v1/missions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Missions []game.MissionLog `json:"missions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out.Missions, err
}

func (c *Client) Mission(ctx context.Context, token, missionID string) (game.MissionLog, error) {
	var out game.MissionLog
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/missions/"+url.PathEscape(missionID), token, nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
