package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/handlers"
)

const redacted = "[REDACTED]"

// redactPayload returns the JSON body with every password- or otp-like
// field replaced, for the login audit log. Bodies that are not JSON objects
// are dropped entirely.
func redactPayload(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	redactValue(body)
	out, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return string(out)
}

func redactValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if sensitiveKey(k) {
				t[k] = redacted
				continue
			}
			redactValue(inner)
		}
	case []any:
		for _, inner := range t {
			redactValue(inner)
		}
	}
}

func sensitiveKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "password") || k == "otp" || strings.Contains(k, "secret") || strings.Contains(k, "token")
}

// AccessLogFormatter writes an Apache common log line with sensitive query
// values masked. Notification streams carry the bearer token as ?token=.
func AccessLogFormatter(w io.Writer, p handlers.LogFormatterParams) {
	u := p.URL
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if sensitiveKey(k) {
				q[k] = []string{redacted}
			}
		}
		u.RawQuery = q.Encode()
	}
	host, _, err := net.SplitHostPort(p.Request.RemoteAddr)
	if err != nil {
		host = p.Request.RemoteAddr
	}
	fmt.Fprintf(w, "%s - - [%s] %q %d %d\n",
		host,
		p.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
		p.Request.Method+" "+u.RequestURI()+" "+p.Request.Proto,
		p.StatusCode,
		p.Size,
	)
}
