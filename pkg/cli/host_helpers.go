package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// apiPrefix is appended to a bare host given on the command line.
const apiPrefix = "/api/v1"

const defaultHostHint = "http://localhost:8000"

// normalizeAPIURL validates host and returns the API base URL. A bare
// scheme://host[:port] gets the /api/v1 prefix; an explicit path is kept.
func normalizeAPIURL(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("invalid host %q: host URL cannot be empty", host)
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid host %q: scheme must be http or https", host)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid host %q: missing host", host)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("invalid host %q: host must not include query or fragment", host)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = apiPrefix
	}
	return strings.TrimRight(u.String(), "/"), nil
}
