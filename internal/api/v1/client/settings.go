package client

import (
	"context"
	"net/http"

	v1 "github.com/automeet/automeet/internal/api/v1"
	"github.com/automeet/automeet/internal/settings"
)

// Settings returns the resolved daemon settings.
func (c *Client) Settings(ctx context.Context) (v1.Settings, error) {
	var doc v1.Settings
	err := c.CallAPI(ctx, http.MethodGet, "/v1/settings", nil, &doc)
	return doc, err
}

// PatchSettings applies the explicitly set fields of patch and returns the
// resolved settings after the update.
func (c *Client) PatchSettings(ctx context.Context, patch settings.Preferences) (v1.Settings, error) {
	var doc v1.Settings
	err := c.CallAPI(ctx, http.MethodPatch, "/v1/settings", patch, &doc)
	return doc, err
}
