package feed

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid article URL")

// trackingParams contains query parameters removed during normalization
var trackingParams = map[string]bool{
	"fbclid":  true, // Facebook click ID
	"gclid":   true, // Google click ID
	"yclid":   true, // Yandex click ID
	"msclkid": true, // Microsoft click ID
	"igshid":  true, // Instagram share ID
	"mc_eid":  true, // MailChimp email ID
	"mc_cid":  true, // MailChimp campaign ID
	"ref_src": true,
	"_hsenc":  true,
	"_hsmi":   true,
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// CanonicalURL reduces an article URL to the key used for deduplication:
// lowercase scheme and host, no default port, no userinfo, no fragment,
// no trailing slash, no tracking parameters, remaining parameters sorted.
func CanonicalURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if _, ok := defaultPorts[parsed.Scheme]; !ok || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidURL, rawURL)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}
	if port := parsed.Port(); port != "" && port != defaultPorts[parsed.Scheme] {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	parsed.Host = host

	parsed.User = nil
	parsed.Fragment = ""
	parsed.RawFragment = ""

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = strings.TrimRight(parsed.RawPath, "/")

	query := parsed.Query()
	for param := range query {
		if isTrackingParam(param) {
			query.Del(param)
		}
	}
	parsed.RawQuery = query.Encode()
	parsed.ForceQuery = false

	return parsed.String(), nil
}

func isTrackingParam(name string) bool {
	name = strings.ToLower(name)
	return strings.HasPrefix(name, "utm_") || trackingParams[name]
}
