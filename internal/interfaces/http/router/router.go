// Package router mounts the versioned connector API from declarative route
// tables.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Endpoint is one route of a Group. An empty Scope skips the scope guard.
type Endpoint struct {
	Method  string
	Path    string
	Scope   string
	Handler gin.HandlerFunc
}

func Get(path, scope string, h gin.HandlerFunc) Endpoint {
	return Endpoint{Method: http.MethodGet, Path: path, Scope: scope, Handler: h}
}

func Post(path, scope string, h gin.HandlerFunc) Endpoint {
	return Endpoint{Method: http.MethodPost, Path: path, Scope: scope, Handler: h}
}

func Put(path, scope string, h gin.HandlerFunc) Endpoint {
	return Endpoint{Method: http.MethodPut, Path: path, Scope: scope, Handler: h}
}

func Delete(path, scope string, h gin.HandlerFunc) Endpoint {
	return Endpoint{Method: http.MethodDelete, Path: path, Scope: scope, Handler: h}
}

// Group is a resource table mounted under Prefix. An empty prefix mounts the
// endpoints directly below the API root.
type Group struct {
	Name      string
	Prefix    string
	Endpoints []Endpoint
}

// ScopeGuard returns the middleware that admits tokens carrying scope
type ScopeGuard func(scope string) gin.HandlerFunc

// Route is a mounted endpoint with its full path
type Route struct {
	Group  string
	Method string
	Path   string
	Scope  string
}

type Router struct {
	engine     *gin.Engine
	version    string
	guard      ScopeGuard
	middleware []gin.HandlerFunc
	groups     []Group
}

type Option func(*Router)

// WithAPIVersion sets the version segment of /api/<version>; the default is v1
func WithAPIVersion(version string) Option {
	return func(r *Router) { r.version = version }
}

// WithScopeGuard enforces Endpoint.Scope. Without a guard scopes are ignored.
func WithScopeGuard(g ScopeGuard) Option {
	return func(r *Router) { r.guard = g }
}

func New(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Prefix() string { return "/api/" + r.version }

// Use adds middleware to the API routes only. Routes registered on the
// engine itself, such as /health, are not affected.
func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, mw...)
	return r
}

func (r *Router) Mount(groups ...Group) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup registers every mounted group on the engine and returns the routes
// in registration order.
func (r *Router) Setup() []Route {
	api := r.engine.Group(r.Prefix(), r.middleware...)
	var routes []Route
	for _, g := range r.groups {
		rg := api.Group(g.Prefix)
		for _, e := range g.Endpoints {
			rg.Handle(e.Method, e.Path, r.chain(e)...)
			routes = append(routes, Route{
				Group:  g.Name,
				Method: e.Method,
				Path:   join(r.Prefix(), g.Prefix, e.Path),
				Scope:  e.Scope,
			})
		}
	}
	return routes
}

func (r *Router) chain(e Endpoint) []gin.HandlerFunc {
	if r.guard == nil || e.Scope == "" {
		return []gin.HandlerFunc{e.Handler}
	}
	return []gin.HandlerFunc{r.guard(e.Scope), e.Handler}
}

func join(parts ...string) string {
	p := path.Join(parts...)
	if p == "" {
		return "/"
	}
	return p
}
