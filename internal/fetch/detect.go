package fetch

import (
	"bytes"
	"net/http"
	"strings"
)

// Challenge pages from bot-protection CDNs come back with a 200-ish shape
// but no article in them. Detecting them lets the retry loop treat the
// attempt as failed instead of handing garbage to the extractor.

type detector func(statusCode int, headers http.Header, body []byte) (bool, string)

var detectors = []detector{detectCloudflare, detectAkamai}

// blockedBy returns the name of the protection vendor that challenged the
// response, or "" when the response looks like a normal page.
func blockedBy(statusCode int, headers http.Header, body []byte) string {
	for _, d := range detectors {
		if hit, src := d(statusCode, headers, body); hit {
			return src
		}
	}
	return ""
}

func detectCloudflare(statusCode int, headers http.Header, body []byte) (bool, string) {
	if statusCode == http.StatusForbidden || statusCode == http.StatusServiceUnavailable {
		if strings.Contains(strings.ToLower(headers.Get("Server")), "cloudflare") {
			return true, "Cloudflare"
		}
	}

	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("cf-turnstile")) ||
		bytes.Contains(body, []byte("Checking your browser before accessing")) {
		return true, "Cloudflare"
	}

	return false, ""
}

func detectAkamai(statusCode int, headers http.Header, body []byte) (bool, string) {
	if statusCode == http.StatusForbidden && headers.Get("X-Akamai-Request-ID") != "" {
		return true, "Akamai"
	}

	if bytes.Contains(body, []byte("ak-challenge")) ||
		bytes.Contains(body, []byte("Access Denied\" akamai")) {
		return true, "Akamai"
	}

	return false, ""
}
