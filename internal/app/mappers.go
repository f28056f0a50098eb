package app

import (
	"fmt"
	"strconv"
	"strings"

	"campus_coffee/internal/domain"
)

// importAliases lists the accepted field paths per review attribute, in
// order of preference. Exports from older tools use snake_case and nested
// objects; the API uses camelCase.
var importAliases = map[string][]string{
	"id":     {"id", "reviewId", "review_id"},
	"pos":    {"posId", "pos_id", "pos.id", "pointOfSaleId"},
	"author": {"authorId", "author_id", "author.id", "userId", "user_id"},
	"text":   {"review", "text", "reviewText", "review_text", "content", "comment"},
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstString returns the first string value found under key's aliases.
// Present-but-blank strings are returned as is so validation can reject them.
func firstString(m map[string]any, key string) (string, bool) {
	for _, p := range importAliases[key] {
		if s, ok := lookupAny(m, p).(string); ok {
			return s, true
		}
	}
	return "", false
}

// firstInt64 reads an int64 from key's aliases (float64/int/string).
func firstInt64(m map[string]any, key string) (int64, bool) {
	for _, p := range importAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// mapImportRecord turns a loosely-shaped JSON object into a review.
// Approval fields are never read; the workflow owns them.
func mapImportRecord(rec map[string]any) (domain.Review, error) {
	var r domain.Review
	pos, ok := firstInt64(rec, "pos")
	if !ok {
		return domain.Review{}, fmt.Errorf("record has no POS id")
	}
	author, ok := firstInt64(rec, "author")
	if !ok {
		return domain.Review{}, fmt.Errorf("record has no author id")
	}
	r.PosID = pos
	r.AuthorID = author
	r.Text, _ = firstString(rec, "text")
	if id, ok := firstInt64(rec, "id"); ok {
		r.ID = id
	}
	return r, nil
}
