package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// baseURL parses a --host value into the server root, without a trailing
// slash. Paths, queries and fragments are rejected since the client appends
// its own /v1 routes.
func baseURL(host string) (string, error) {
	raw := strings.TrimSpace(host)
	if raw == "" {
		return "", fmt.Errorf("invalid host %q: host URL cannot be empty", host)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("invalid host %q: scheme must be http or https", host)
	case u.Host == "":
		return "", fmt.Errorf("invalid host %q: missing host", host)
	case u.Path != "" && u.Path != "/":
		return "", fmt.Errorf("invalid host %q: host must not include a path", host)
	case u.RawQuery != "" || u.Fragment != "":
		return "", fmt.Errorf("invalid host %q: host must not include query or fragment", host)
	}
	return u.Scheme + "://" + u.Host, nil
}
