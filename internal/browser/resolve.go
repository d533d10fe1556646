package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const versionPath = "/json/version"

// ResolveDebuggerURL turns a DevTools address into the websocket URL CDP
// clients dial. Websocket addresses pass through unchanged; HTTP addresses
// are asked for their advertised debugger URL via /json/version.
func ResolveDebuggerURL(ctx context.Context, address string) (string, error) {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address, nil
	}

	probe := strings.TrimSuffix(address, "/") + versionPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
	if err != nil {
		return "", fmt.Errorf("invalid browser address %q: %w", address, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not reach the browser at %q: %w", address, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("browser version probe of %q returned %s", address, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("could not read the browser version info: %w", err)
	}

	wsURL := gjson.GetBytes(body, "webSocketDebuggerUrl").String()
	if wsURL == "" {
		return "", fmt.Errorf("browser at %q did not advertise a websocket debugger URL", address)
	}
	return wsURL, nil
}
