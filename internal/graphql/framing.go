// File: internal/graphql/framing.go
package graphql

import (
	"errors"
	"strings"
)

// Sentinel errors shared by the package.
var (
	// ErrIncompleteCredentials means the session lacked the user id or the
	// anti-forgery token.
	ErrIncompleteCredentials = errors.New("graphql: incomplete session credentials")
	// ErrNoMainDocument means no JSON object carrying a data payload was
	// found in a response body.
	ErrNoMainDocument = errors.New("graphql: no main document in response")
	// ErrUnfriendUnconfirmed means the server answered 2xx but did not
	// confirm the edge removal.
	ErrUnfriendUnconfirmed = errors.New("graphql: unfriend not confirmed by server")
)

// ExtractJSONObjects splits a response body that may contain several
// concatenated JSON documents into individual object strings. The server
// streams deferred payloads as extra top-level objects after the main one,
// so a plain unmarshal of the whole body fails.
//
// Framing is done by brace counting with string and escape awareness;
// anything between objects (newlines, stream prefixes) is skipped, and a
// truncated trailing object is dropped.
func ExtractJSONObjects(body string) []string {
	var objects []string

	for pos := 0; pos < len(body); {
		start := strings.IndexByte(body[pos:], '{')
		if start == -1 {
			break
		}
		start += pos

		depth := 0
		inString := false
		escaped := false
		end := -1

	scan:
		for i := start; i < len(body); i++ {
			ch := body[i]
			switch {
			case escaped:
				escaped = false
			case ch == '\\' && inString:
				escaped = true
			case ch == '"':
				inString = !inString
			case inString:
				// Braces inside string literals do not count.
			case ch == '{':
				depth++
			case ch == '}':
				depth--
				if depth == 0 {
					end = i + 1
					break scan
				}
			}
		}

		if end == -1 {
			break
		}
		objects = append(objects, body[start:end])
		pos = end
	}

	return objects
}

// DecodeFramedResponse parses a possibly multi-document body and returns the
// main document: the first object carrying data.node (or, failing that,
// data.feedback). When a later document is a deferred page_info payload, its
// cursor state is grafted onto the main document under the given connection
// path so downstream parsing sees one coherent object.
func DecodeFramedResponse(body []byte, connectionPath ...string) (map[string]any, error) {
	var docs []map[string]any

	// Fast path: the body is one well-formed document.
	var single map[string]any
	if err := json.Unmarshal(body, &single); err == nil {
		docs = []map[string]any{single}
	} else {
		for _, raw := range ExtractJSONObjects(string(body)) {
			var doc map[string]any
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				continue // skip malformed fragments
			}
			docs = append(docs, doc)
		}
	}

	var main map[string]any
	for _, doc := range docs {
		data, ok := doc["data"].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := data["node"]; ok {
			main = doc
			break
		}
		if _, ok := data["feedback"]; ok && main == nil {
			main = doc
		}
	}
	if main == nil {
		return nil, ErrNoMainDocument
	}

	// Deferred cursor state arrives as a separate labeled document.
	var deferredPageInfo map[string]any
	for _, doc := range docs {
		label, _ := doc["label"].(string)
		if !strings.Contains(label, "page_info") {
			continue
		}
		if data, ok := doc["data"].(map[string]any); ok {
			if pi, ok := data["page_info"].(map[string]any); ok {
				deferredPageInfo = pi
				break
			}
		}
	}

	if deferredPageInfo != nil && len(connectionPath) > 0 {
		if conn, ok := dig(main, connectionPath...).(map[string]any); ok {
			conn["page_info"] = deferredPageInfo
		}
	}

	return main, nil
}
