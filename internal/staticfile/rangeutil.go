package staticfile

import (
	"strconv"
	"strings"
)

// parsedRange holds the (possibly absent) endpoints of a `Range: bytes=
// <from>-<to>` header.
type parsedRange struct {
	from, to int64
	hasFrom  bool
	hasTo    bool
}

// parseRangeHeader parses the value of a Range header. It returns ok=false
// if the header does not look like a bytes-range at all.
func parseRangeHeader(value string) (parsedRange, bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(value, prefix) {
		return parsedRange{}, false
	}
	spec := strings.TrimPrefix(value, prefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return parsedRange{}, false
	}
	fromStr, toStr := spec[:dash], spec[dash+1:]

	var pr parsedRange
	if fromStr != "" {
		v, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			return parsedRange{}, false
		}
		pr.from, pr.hasFrom = v, true
	}
	if toStr != "" {
		v, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil {
			return parsedRange{}, false
		}
		pr.to, pr.hasTo = v, true
	}
	return pr, true
}

// window computes the effective [start, end) byte window for a parsed
// range against a resource of the given size, per the specification's
// fixed policy. satisfiable is false when neither endpoint was present,
// or when a suffix-only range is longer than the resource.
func (pr parsedRange) window(size, chunkSize int64) (start, end int64, satisfiable bool) {
	switch {
	case pr.hasFrom && pr.hasTo:
		return pr.from, pr.to + 1, true
	case pr.hasFrom:
		end := pr.from + chunkSize
		if end > size {
			end = size
		}
		return pr.from, end, true
	case pr.hasTo:
		if pr.to > size {
			return 0, 0, false
		}
		return size - pr.to, size, true
	default:
		return 0, 0, false
	}
}
