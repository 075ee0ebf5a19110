// Package router implements the route-pattern compiler and matcher:
// literal segments plus {name} captures, dispatched by (method,
// normalized-pattern).
package router

import "strings"

type segment struct {
	literal   string
	isCapture bool
	name      string
}

// Pattern is a compiled route pattern. Equality depends only on its
// normalized string form.
type Pattern struct {
	normalized string
	segments   []segment
}

// Compile normalizes raw (leading '/' added if missing, trailing '/'
// stripped except for the root) and splits it into literal and {name}
// capture segments.
func Compile(raw string) Pattern {
	normalized := normalize(raw)
	var segs []segment
	if normalized != "/" {
		for _, part := range strings.Split(strings.TrimPrefix(normalized, "/"), "/") {
			if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
				segs = append(segs, segment{isCapture: true, name: part[1 : len(part)-1]})
			} else {
				segs = append(segs, segment{literal: part})
			}
		}
	}
	return Pattern{normalized: normalized, segments: segs}
}

func normalize(raw string) string {
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if len(raw) > 1 && strings.HasSuffix(raw, "/") {
		raw = strings.TrimRight(raw, "/")
		if raw == "" {
			raw = "/"
		}
	}
	return raw
}

// String returns the normalized pattern.
func (p Pattern) String() string { return p.normalized }

// Match checks path against the compiled pattern: segment counts must be
// equal, each literal segment must match exactly, and each capture
// segment is bound in the returned map. A differing segment count always
// yields no match.
func (p Pattern) Match(path string) (map[string]string, bool) {
	normPath := normalize(path)
	var pathSegs []string
	if normPath != "/" {
		pathSegs = strings.Split(strings.TrimPrefix(normPath, "/"), "/")
	}
	if len(pathSegs) != len(p.segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range p.segments {
		if seg.isCapture {
			params[seg.name] = pathSegs[i]
			continue
		}
		if seg.literal != pathSegs[i] {
			return nil, false
		}
	}
	return params, true
}
