// Package httpparse implements the HTTP/1.1 request parser: the
// request-line / header / body split and URI decomposition into path,
// query string, and parsed query parameters.
package httpparse

import (
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/janstaffa/cree-go/internal/errs"
)

// Method is one of the three methods this server parses, or Unknown.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodUnknown Method = "UNKNOWN"
)

// ParseMethod maps a wire token to a Method; anything not GET/HEAD/POST
// becomes Unknown rather than a parse failure.
func ParseMethod(token string) Method {
	switch strings.ToUpper(token) {
	case "GET":
		return MethodGet
	case "HEAD":
		return MethodHead
	case "POST":
		return MethodPost
	default:
		return MethodUnknown
	}
}

// Request is an immutable (apart from Params, filled in later by the
// router) parsed HTTP/1.1 request.
type Request struct {
	Method      Method
	RawURI      string
	Path        string
	Query       string
	QueryParams map[string]string
	Version     string
	Headers     map[string]string
	Body        []byte
	Params      map[string]string
	RemoteAddr  string
	ReceivedAt  time.Time
}

// Header returns the (lowercased-key) header value, and whether it was
// present.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[strings.ToLower(name)]
	return v, ok
}

// Parse decodes one message's raw bytes into a Request. The request line
// must tokenize into exactly three whitespace-separated fields or the
// message is rejected; an unrecognized method is not rejection, it maps
// to MethodUnknown.
func Parse(raw []byte, remoteAddr string, receivedAt time.Time) (*Request, error) {
	normalized := strings.ReplaceAll(string(raw), "\r", "")

	head, body := splitHeadBody(normalized)

	lines := strings.Split(head, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, errs.NewMalformedHTTP("empty request line")
	}
	tokens := strings.Fields(lines[0])
	if len(tokens) != 3 {
		return nil, errs.NewMalformedHTTP("request line must have method, uri, and version")
	}

	headers := make(map[string]string)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue // malformed header line, skipped
		}
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if !httpguts.ValidHeaderFieldName(name) {
			continue
		}
		headers[name] = value
	}

	rawURI := tokens[1]
	path, query := splitURI(rawURI)

	req := &Request{
		Method:      ParseMethod(tokens[0]),
		RawURI:      rawURI,
		Path:        path,
		Query:       query,
		QueryParams: parseQuery(query),
		Version:     tokens[2],
		Headers:     headers,
		Body:        []byte(body),
		Params:      map[string]string{},
		RemoteAddr:  remoteAddr,
		ReceivedAt:  receivedAt,
	}
	return req, nil
}

func splitHeadBody(s string) (head, body string) {
	idx := strings.Index(s, "\n\n")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+2:]
}

func splitURI(uri string) (path, query string) {
	idx := strings.IndexByte(uri, '?')
	if idx < 0 {
		return uri, ""
	}
	return uri[:idx], uri[idx+1:]
}

// parseQuery splits a query string on '&' into key=value pairs; a missing
// '=' yields an empty value, and duplicate keys have the last one win.
func parseQuery(q string) map[string]string {
	out := map[string]string{}
	if q == "" {
		return out
	}
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			out[pair[:idx]] = pair[idx+1:]
		} else {
			out[pair] = ""
		}
	}
	return out
}
