package parsing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/jonathan/newsdesk/internal/types"
)

// decodeDocument decodes the first object in text. Valid JSON is decoded
// as is; anything else is normalized and, failing that, structurally
// repaired. A top-level array yields its first object element.
func decodeDocument(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}

	decoded, err := strictDecode(text)
	if err != nil {
		normalized := normalizeJSON(text)
		if decoded, err = strictDecode(normalized); err != nil {
			repaired, repairErr := jsonrepair.JSONRepair(normalized)
			if repairErr != nil {
				return nil, fmt.Errorf("json repair failed: %w", repairErr)
			}
			if decoded, err = strictDecode(repaired); err != nil {
				return nil, fmt.Errorf("failed to decode repaired JSON: %w", err)
			}
		}
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		for _, elem := range v {
			if obj, ok := elem.(map[string]any); ok {
				return obj, nil
			}
		}
		return nil, fmt.Errorf("top-level array holds no object")
	default:
		return nil, fmt.Errorf("decoded %T, want object", decoded)
	}
}

func strictDecode(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// coerce maps a loosely typed document onto a RewriteResult. Fields of the
// wrong shape are converted where the intent is clear and dropped otherwise.
func coerce(doc map[string]any) (*types.RewriteResult, error) {
	result := &types.RewriteResult{
		Title:       stringField(doc, "title", "headline"),
		Rewritten:   stringField(doc, "rewritten", "body", "content", "article"),
		Summary:     stringField(doc, "summary", "excerpt"),
		Topic:       stringField(doc, "topic"),
		Category:    types.Category(strings.ToLower(stringField(doc, "category"))),
		PhotoCredit: stringField(doc, "photoCredit", "photo_credit"),
		Tags:        tagsField(doc["tags"]),
		Citations:   citationsField(doc["citations"]),
		Quotes:      quotesField(doc["quotes"]),
	}

	if strings.TrimSpace(result.Rewritten) == "" {
		return nil, fmt.Errorf("document has no rewritten body")
	}
	return result, nil
}

func stringField(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(doc[key]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return []any{t}
	}
}

func tagsField(v any) []string {
	if s, ok := v.(string); ok {
		v = commaList(s)
	}
	var tags []string
	for _, elem := range asList(v) {
		var tag string
		switch t := elem.(type) {
		case map[string]any:
			tag = stringField(t, "name", "tag", "text")
		default:
			tag = asString(t)
		}
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func commaList(s string) []any {
	var out []any
	for _, part := range strings.Split(s, ",") {
		out = append(out, part)
	}
	return out
}

func citationsField(v any) []types.Citation {
	var citations []types.Citation
	for _, elem := range asList(v) {
		var c types.Citation
		switch t := elem.(type) {
		case map[string]any:
			c = types.Citation{
				Title: stringField(t, "title", "name", "source"),
				URL:   stringField(t, "url", "link", "href"),
			}
		default:
			s := asString(t)
			if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
				c.URL = s
			} else {
				c.Title = s
			}
		}
		if c.Title != "" || c.URL != "" {
			citations = append(citations, c)
		}
	}
	return citations
}

func quotesField(v any) []types.Quote {
	var quotes []types.Quote
	for _, elem := range asList(v) {
		var q types.Quote
		switch t := elem.(type) {
		case map[string]any:
			q = types.Quote{
				Text:        stringField(t, "text", "quote"),
				Attribution: stringField(t, "attribution", "author", "source"),
				Position:    types.QuotePosition(strings.ToLower(stringField(t, "position"))),
			}
		default:
			q.Text = asString(t)
		}
		if q.Text != "" {
			quotes = append(quotes, q)
		}
	}
	return quotes
}
