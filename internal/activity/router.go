package activity

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyMatch is returned by Add when no matching criterion was given
var ErrEmptyMatch = errors.New("at least one matching condition is required")

// ErrNilHandler is returned by Add when the handler is nil
var ErrNilHandler = errors.New("handler is required")

// Handler processes an activity selected by the router
type Handler func(ctx context.Context, a *Activity) error

// MatchFunc is an arbitrary predicate over an activity
type MatchFunc func(a *Activity) bool

// Match selects the activities a route handles. Every criterion that is set must be
// satisfied.
type Match struct {
	// Type is compared against the lower-cased activity type
	Type string
	// Text must equal the activity text exactly
	Text string
	// TextPattern must match the activity text
	TextPattern *regexp.Regexp
	// Action must equal value.payload.action
	Action string
	// Func must return true
	Func MatchFunc
}

func (m Match) empty() bool {
	return m.Type == "" && m.Text == "" && m.TextPattern == nil && m.Action == "" && m.Func == nil
}

func (m Match) matches(a *Activity) bool {
	if m.Type != "" && strings.ToLower(a.Type) != m.Type {
		return false
	}
	if m.Text != "" && a.Text != m.Text {
		return false
	}
	if m.TextPattern != nil && !m.TextPattern.MatchString(a.Text) {
		return false
	}
	if m.Action != "" && a.Action() != m.Action {
		return false
	}
	if m.Func != nil && !m.Func(a) {
		return false
	}
	return true
}

type route struct {
	match   Match
	handler Handler
}

// Router dispatches activities to the first route that matches them.
// Routes are registered at startup; Find is safe for concurrent use afterwards.
type Router struct {
	routes []route
}

func NewRouter() *Router {
	return &Router{}
}

// Add registers a route. Routes are tried in registration order.
func (r *Router) Add(match Match, handler Handler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if match.empty() {
		return ErrEmptyMatch
	}
	match.Type = strings.ToLower(match.Type)
	r.routes = append(r.routes, route{match: match, handler: handler})
	return nil
}

// Find returns the handler of the first matching route, or nil
func (r *Router) Find(a *Activity) Handler {
	if a == nil {
		return nil
	}
	for _, rt := range r.routes {
		if rt.match.matches(a) {
			return rt.handler
		}
	}
	return nil
}

// Len returns the number of registered routes
func (r *Router) Len() int {
	return len(r.routes)
}
