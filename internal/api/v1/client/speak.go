package client

import (
	"context"
	"net/http"

	"github.com/automeet/automeet/internal/speech"
)

// Speak queues an utterance on the daemon.
func (c *Client) Speak(ctx context.Context, req speech.Request) error {
	return c.CallAPI(ctx, http.MethodPost, "/v1/speak", req, nil)
}
