package client

import (
	"context"
	"net/http"

	v1 "github.com/automeet/automeet/internal/api/v1"
)

// OpenMeeting asks the daemon to open the given meeting target in the
// installed app. It returns the normalized meeting the daemon accepted.
func (c *Client) OpenMeeting(ctx context.Context, target string) (v1.Meeting, error) {
	var doc v1.Meeting
	err := c.CallAPI(ctx, http.MethodPost, "/v1/meetings", v1.Meeting{Target: target}, &doc)
	return doc, err
}
