// Package httpresp implements the HTTP/1.1 response encoder: status line,
// header block, Date, Connection, content negotiation (gzip/deflate), and
// byte-range responses.
package httpresp

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/janstaffa/cree-go/internal/errs"
	"github.com/janstaffa/cree-go/internal/httpparse"
)

// gzipThreshold is the body size, in bytes, that a body must exceed
// before gzip is preferred over deflate.
const gzipThreshold = 1000

// Writer is the minimal sink a Response sends itself to — satisfied by
// *conn.Writer without importing the conn package here.
type Writer interface {
	Write(p []byte) error
}

// RangeInfo carries the byte-range parameters set by the static file
// service for a 206/416 response.
type RangeInfo struct {
	Satisfiable bool
	Start       int64
	End         int64 // exclusive
	Total       int64
}

// Response is the mutable response builder tied to the request that
// produced it.
type Response struct {
	Request *httpparse.Request

	status  Status
	Headers map[string]string
	body    []byte

	UseCompression bool
	IsLast         bool

	sent  bool
	Range *RangeInfo
}

// New creates a Response defaulting to 202 Accepted until the handler or
// service sets a different status.
func New(req *httpparse.Request) *Response {
	return &Response{
		Request:        req,
		status:         StatusAccepted,
		Headers:        map[string]string{},
		UseCompression: true,
	}
}

// SetStatus sets the response status code.
func (r *Response) SetStatus(s Status) { r.status = s }

// Status returns the current status.
func (r *Response) Status() Status { return r.status }

// SetHeader sets a response header, preserving the case the caller used.
func (r *Response) SetHeader(key, value string) { r.Headers[key] = value }

// Write appends p to the response body.
func (r *Response) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return len(p), nil
}

// Body returns the body accumulated so far.
func (r *Response) Body() []byte { return r.body }

// Send serializes and writes the response exactly once. A second call
// returns errs.NewDoubleSend without writing anything.
func (r *Response) Send(w Writer) error {
	if r.sent {
		return errs.NewDoubleSend()
	}
	if !r.status.Valid() {
		return errs.NewInvalidStatus(int(r.status))
	}
	r.sent = true

	body := r.body
	encoding := ""
	if r.UseCompression {
		if ae, ok := r.Request.Header("accept-encoding"); ok {
			body, encoding = negotiateCompression(ae, body)
		}
	}
	if encoding != "" {
		r.Headers["Content-Encoding"] = encoding
	}

	if r.Range != nil {
		if r.Range.Satisfiable {
			r.Headers["Content-Range"] = fmt.Sprintf("bytes %d-%d/%d", r.Range.Start, r.Range.End-1, r.Range.Total)
		} else {
			r.Headers["Content-Range"] = fmt.Sprintf("*/%d", r.Range.Total)
		}
	}

	r.Headers["Date"] = time.Now().UTC().Format(time.RFC1123)
	if r.IsLast {
		r.Headers["Connection"] = "close"
	} else {
		r.Headers["Connection"] = "keep-alive"
	}
	r.Headers["Content-Length"] = strconv.Itoa(len(body))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\n", int(r.status), r.status.Reason())

	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\n", k, r.Headers[k])
	}
	buf.WriteString("\n")

	if r.Request.Method != httpparse.MethodHead {
		buf.Write(body)
	}

	return w.Write(buf.Bytes())
}

// negotiateCompression picks an encoding per the fixed policy: gzip when
// advertised and the body exceeds gzipThreshold bytes, else deflate when
// advertised, else no compression.
func negotiateCompression(acceptEncoding string, body []byte) ([]byte, string) {
	lowered := strings.ToLower(acceptEncoding)
	wantsGzip := strings.Contains(lowered, "gzip")
	wantsDeflate := strings.Contains(lowered, "deflate")

	if wantsGzip && len(body) > gzipThreshold {
		if compressed, err := gzipCompress(body); err == nil {
			return compressed, "gzip"
		}
	}
	if wantsDeflate {
		if compressed, err := deflateCompress(body); err == nil {
			return compressed, "deflate"
		}
	}
	return body, ""
}

func gzipCompress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deflateCompress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(body); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
