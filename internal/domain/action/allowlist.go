package action

import (
	"sort"
	"strings"
)

// Policy is the serializable form of an allow-list
type Policy struct {
	Actions       []string `json:"actions" yaml:"actions" toml:"actions"`
	Routes        []string `json:"routes" yaml:"routes" toml:"routes"`
	RoutePrefixes []string `json:"routePrefixes,omitempty" yaml:"routePrefixes" toml:"route_prefixes"`
}

// AllowList decides which action ids and routes may reach the host.
// Anything not listed is denied. Route prefixes are opt-in: a route is also
// allowed when it starts with one of the configured prefixes. The list is
// copied at construction and never changes afterwards.
type AllowList struct {
	actions  map[string]struct{}
	routes   map[string]struct{}
	prefixes []string
}

// NewAllowList builds an allow-list from a policy. Empty strings are
// ignored, so an empty prefix can never allow every route.
func NewAllowList(p Policy) *AllowList {
	a := &AllowList{
		actions: toSet(p.Actions),
		routes:  toSet(p.Routes),
	}
	for _, prefix := range p.RoutePrefixes {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			a.prefixes = append(a.prefixes, prefix)
		}
	}
	sort.Strings(a.prefixes)
	return a
}

// DenyAll returns an allow-list that permits nothing
func DenyAll() *AllowList {
	return NewAllowList(Policy{})
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

// AllowsAction reports whether id is permitted
func (a *AllowList) AllowsAction(id string) bool {
	_, ok := a.actions[id]
	return ok
}

// AllowsRoute reports whether route is permitted exactly or by prefix
func (a *AllowList) AllowsRoute(route string) bool {
	if _, ok := a.routes[route]; ok {
		return true
	}
	for _, prefix := range a.prefixes {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}

// Policy returns the allow-list contents, sorted
func (a *AllowList) Policy() Policy {
	return Policy{
		Actions:       sortedKeys(a.actions),
		Routes:        sortedKeys(a.routes),
		RoutePrefixes: append([]string(nil), a.prefixes...),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
