// Package gate decides, per request, whether the caller may reach a
// route or must be redirected. It mutates nothing and caches nothing;
// redirect mechanics belong to the HTTP middleware layer.
package gate

import (
	"path"
	"strings"
)

// Class is a route's trust category.
type Class int

const (
	// ClassAsset is static content served without any checks.
	ClassAsset Class = iota
	// ClassPublic is reachable without a session.
	ClassPublic
	// ClassMFAGate is the MFA challenge surface, reachable at aal1.
	ClassMFAGate
	// ClassAdmin requires a session with the admin attribute.
	ClassAdmin
	// ClassBroker requires a session.
	ClassBroker
)

func (c Class) String() string {
	switch c {
	case ClassAsset:
		return "asset"
	case ClassPublic:
		return "public"
	case ClassMFAGate:
		return "mfa-gate"
	case ClassAdmin:
		return "admin-protected"
	case ClassBroker:
		return "broker-protected"
	}
	return "unknown"
}

var assetPrefixes = []string{
	"/static/",
	"/assets/",
	"/_next/",
}

var assetExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".map": {}, ".json": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {},
	".ico": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".txt": {}, ".xml": {},
}

var publicPaths = map[string]struct{}{
	"/":              {},
	"/login":         {},
	"/admin/login":   {},
	"/signup":        {},
	"/logout":        {},
	"/auth/callback": {},
	"/privacy":       {},
	"/security":      {},
	"/health":        {},
}

// rule pairs a class with its matcher. The table is evaluated in
// order and the first match wins, so the ordering is load-bearing:
// /admin/login must hit the public rule before the admin rule, and
// /mfa must classify ahead of the broker catch-all.
type rule struct {
	class Class
	match func(p string) bool
}

var rules = []rule{
	{ClassAsset, isAsset},
	{ClassPublic, isPublic},
	{ClassMFAGate, matchPrefix("/mfa")},
	{ClassAdmin, matchPrefix("/admin")},
	{ClassBroker, func(string) bool { return true }},
}

// Classify maps a request path to its trust class.
func Classify(requestPath string) Class {
	cleaned := cleanPath(requestPath)
	for _, r := range rules {
		if r.match(cleaned) {
			return r.class
		}
	}
	return ClassBroker
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func isAsset(p string) bool {
	for _, prefix := range assetPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if p == "/favicon.ico" || p == "/robots.txt" {
		return true
	}
	if ext := path.Ext(p); ext != "" {
		if _, ok := assetExtensions[strings.ToLower(ext)]; ok {
			return true
		}
	}
	return false
}

func isPublic(p string) bool {
	_, ok := publicPaths[p]
	return ok
}

func matchPrefix(prefix string) func(string) bool {
	return func(p string) bool {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
}
