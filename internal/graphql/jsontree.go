// File: internal/graphql/jsontree.go
package graphql

import (
	"strings"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// The payload layout shifts between server rollouts, so field access never
// assumes an exact shape. dig walks a known path and returns nil on any
// mismatch; the find* helpers do bounded-depth discovery when the path is
// not known at all.

// dig walks nested maps along path, returning nil when any hop is missing
// or not an object.
func dig(v any, path ...string) any {
	cur := v
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func digString(v any, path ...string) string {
	s, _ := dig(v, path...).(string)
	return s
}

func digBool(v any, path ...string) bool {
	b, _ := dig(v, path...).(bool)
	return b
}

// digEdges returns the edges array of a connection object, or nil.
func digEdges(v any, path ...string) []any {
	conn := dig(v, path...)
	edges, _ := dig(conn, "edges").([]any)
	return edges
}

// pageInfoAt reads the page_info of a connection, falling back to the last
// edge's cursor when the server deferred the page_info document and the
// merge found nothing to graft it onto.
func pageInfoAt(v any, path ...string) schemas.PageInfo {
	conn := dig(v, path...)
	info := schemas.PageInfo{
		EndCursor:   digString(conn, "page_info", "end_cursor"),
		HasNextPage: digBool(conn, "page_info", "has_next_page"),
	}
	if info.EndCursor == "" {
		if edges, ok := dig(conn, "edges").([]any); ok && len(edges) > 0 {
			info.EndCursor = digString(edges[len(edges)-1], "cursor")
		}
	}
	return info
}

// internalMarkers appear in server-side renderer strings that must never be
// mistaken for user content.
var internalMarkers = []string{"Strategy", "Comet", "__typename"}

func looksInternal(s string) bool {
	for _, marker := range internalMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// skipKey reports whether a branch should not be descended into during
// discovery. Renderer strategy subtrees hold layout metadata, not content.
func skipKey(key string) bool {
	return strings.Contains(key, "Strategy") || strings.Contains(key, "__typename")
}

// textKeys are tried in order at every level during text discovery.
var textKeys = []string{"text", "message", "description", "title", "content", "body"}

// findText recursively locates the first plausible user-authored string in
// a decoded subtree. The walk is depth-bounded and skips renderer subtrees,
// so a malformed or adversarial payload cannot make it spin.
func findText(v any, maxDepth int) string {
	if maxDepth < 0 {
		return ""
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}

	for _, key := range textKeys {
		switch val := obj[key].(type) {
		case string:
			if len(val) > 10 && !looksInternal(val) {
				return val
			}
		case map[string]any:
			// A common layout is {"text": {"text": "..."}}.
			if s, ok := val["text"].(string); ok && len(s) > 3 && !looksInternal(s) {
				return s
			}
		}
	}

	// Rich-text payloads split the message across entity ranges.
	if ranges, ok := obj["ranges"].([]any); ok {
		var sb strings.Builder
		for _, r := range ranges {
			if s := digString(r, "entity", "text"); s != "" {
				sb.WriteString(s)
			} else if s := digString(r, "text"); s != "" {
				sb.WriteString(s)
			}
		}
		if sb.Len() > 3 {
			return sb.String()
		}
	}

	for key, val := range obj {
		if skipKey(key) {
			continue
		}
		switch child := val.(type) {
		case map[string]any:
			if s := findText(child, maxDepth-1); s != "" {
				return s
			}
		case []any:
			for _, item := range child {
				if s := findText(item, maxDepth-1); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// authorKeys are the field names a post's author hides behind.
var authorKeys = []string{"actors", "actor", "author", "owner", "user"}

// findAuthor locates the first identity-bearing object under any known
// author key. Array-valued keys contribute their first element.
func findAuthor(v any) (id, name string) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", ""
	}
	for _, key := range authorKeys {
		candidate := obj[key]
		if arr, ok := candidate.([]any); ok {
			if len(arr) == 0 {
				continue
			}
			candidate = arr[0]
		}
		m, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		cid, _ := m["id"].(string)
		cname, _ := m["name"].(string)
		if cid != "" || cname != "" {
			return cid, cname
		}
	}
	return "", ""
}

// findMediaURL returns the first media asset URL found in a subtree. Photos
// win over plain images, which win over video stream URLs.
func findMediaURL(v any, maxDepth int) string {
	if maxDepth < 0 {
		return ""
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}

	if tn, _ := obj["__typename"].(string); tn == "Photo" {
		if u, ok := obj["url"].(string); ok && u != "" {
			return u
		}
	}
	if u := digString(obj, "image", "uri"); u != "" {
		return u
	}
	if u := digString(obj, "video", "playable_url"); u != "" {
		return u
	}

	for key, val := range obj {
		if skipKey(key) {
			continue
		}
		switch child := val.(type) {
		case map[string]any:
			if u := findMediaURL(child, maxDepth-1); u != "" {
				return u
			}
		case []any:
			for _, item := range child {
				if u := findMediaURL(item, maxDepth-1); u != "" {
					return u
				}
			}
		}
	}
	return ""
}
