package url

import (
	"fmt"
	"net/url"
	"strings"
)

type URL = url.URL

// ParseHTTP parses an absolute http(s) URL.
func ParseHTTP(value string) (*url.URL, error) {
	url, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("got an invalid URL: %q", value)
	}
	if url.Scheme != "http" && url.Scheme != "https" || url.Host == "" {
		return nil, fmt.Errorf("got an invalid URL: %q: an absolute http(s) URL is expected", value)
	}
	return url, nil
}

// Resolve resolves a link found on the page located at base.
func Resolve(base *url.URL, link string) (*url.URL, error) {
	url, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, fmt.Errorf("got an invalid link: %q", link)
	}
	return base.ResolveReference(url), nil
}
