package client

import (
	"context"
	"net/http"

	v1 "github.com/automeet/automeet/internal/api/v1"
)

// Status returns the current daemon status.
func (c *Client) Status(ctx context.Context) (v1.Status, error) {
	var status v1.Status
	err := c.CallAPI(ctx, http.MethodGet, "/v1/status", nil, &status)
	return status, err
}
