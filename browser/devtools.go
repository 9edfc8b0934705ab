package browser

import (
	"fmt"
	"net/url"
)

// inspectorURL is the address of the DevTools frontend served by the
// browser behind controlURL, inspecting targetID.
func inspectorURL(controlURL, targetID string) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", fmt.Errorf("browser: control url: %w", err)
	}
	if u.Host == "" || targetID == "" {
		return "", fmt.Errorf("browser: cannot inspect target %q behind %q", targetID, controlURL)
	}
	scheme, param := "http", "ws"
	if u.Scheme == "wss" || u.Scheme == "https" {
		scheme, param = "https", "wss"
	}
	q := url.Values{param: {u.Host + "/devtools/page/" + targetID}}
	return (&url.URL{
		Scheme:   scheme,
		Host:     u.Host,
		Path:     "/devtools/inspector.html",
		RawQuery: q.Encode(),
	}).String(), nil
}
