// Package vars turns a status payload into named values.
package vars

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextKey holds the document text when an HTML payload has no id'd elements.
const TextKey = "text"

// Vars maps a variable name to its textual value.
type Vars map[string]string

// Keys returns the variable names in sorted order.
func (v Vars) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parse reads a JSON object or an HTML fragment. Payloads are not validated:
// anything that is not a JSON object is read as HTML.
func Parse(body string) (Vars, error) {
	if out, ok := parseJSON(body); ok {
		return out, nil
	}
	return parseHTML(body)
}

func parseJSON(body string) (Vars, bool) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}

	out := make(Vars, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out, true
}

func parseHTML(body string) (Vars, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := Vars{}
	doc.Find("[id]").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		out[id] = strings.TrimSpace(sel.Text())
	})

	if len(out) == 0 {
		out[TextKey] = strings.TrimSpace(doc.Text())
	}
	return out, nil
}
