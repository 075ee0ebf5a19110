package router

import (
	"github.com/janstaffa/cree-go/internal/httpparse"
	"github.com/janstaffa/cree-go/internal/httpresp"
)

// Handler produces a response for a matched (or fallen-through) request.
type Handler func(req *httpparse.Request, resp *httpresp.Response)

type routeKey struct {
	method  httpparse.Method
	pattern string
}

type entry struct {
	pattern Pattern
	handler Handler
}

// Router owns an immutable-after-setup map from (method, pattern) to
// handler, plus an optional fall-through handler.
type Router struct {
	routes   map[routeKey]entry
	byMethod map[httpparse.Method][]entry
	fallback Handler
}

// New creates an empty router.
func New() *Router {
	return &Router{
		routes:   map[routeKey]entry{},
		byMethod: map[httpparse.Method][]entry{},
	}
}

// Handle registers pattern for method. Re-registering the same
// (method, normalized pattern) pair replaces the existing handler.
func (rt *Router) Handle(method httpparse.Method, pattern string, h Handler) {
	p := Compile(pattern)
	key := routeKey{method: method, pattern: p.String()}
	e := entry{pattern: p, handler: h}

	if _, exists := rt.routes[key]; !exists {
		rt.byMethod[method] = append(rt.byMethod[method], e)
	} else {
		for i, existing := range rt.byMethod[method] {
			if existing.pattern.String() == p.String() {
				rt.byMethod[method][i] = e
				break
			}
		}
	}
	rt.routes[key] = e
}

// Fallback sets the handler invoked when no route matches.
func (rt *Router) Fallback(h Handler) { rt.fallback = h }

// Dispatch finds the first entry whose method and pattern match the
// request, populates its captured parameters, and invokes its handler.
// With no match, the fall-through handler runs; absent that, a 404 with
// body "Not found" is produced.
func (rt *Router) Dispatch(req *httpparse.Request) *httpresp.Response {
	resp := httpresp.New(req)

	for _, e := range rt.byMethod[req.Method] {
		if params, ok := e.pattern.Match(req.Path); ok {
			req.Params = params
			e.handler(req, resp)
			return resp
		}
	}

	if rt.fallback != nil {
		rt.fallback(req, resp)
		return resp
	}

	resp.SetStatus(httpresp.StatusNotFound)
	resp.Write([]byte("Not found"))
	return resp
}
