// Package apiclient reads levfarm state from a running levfarm-api.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// FlagAPI is the query flag naming the levfarm-api base url
const FlagAPI = "api"

// DefaultURL is where levfarm-api listens by default
const DefaultURL = "http://localhost:8080"

// Client is a small JSON client for the levfarm REST api
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// AddFlags registers the --api flag on a query command
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagAPI, DefaultURL, "levfarm-api base url")
}

// FromCmd builds a client from the command's --api flag
func FromCmd(cmd *cobra.Command) (*Client, error) {
	url, err := cmd.Flags().GetString(FlagAPI)
	if err != nil {
		return nil, err
	}
	return New(url), nil
}

// Get fetches path and decodes the JSON body into out
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("levfarm-api unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}
	return json.Unmarshal(body, out)
}

// Print fetches path and writes the indented JSON to the command output
func (c *Client) Print(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return err
	}
	output, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(output))
	return nil
}
