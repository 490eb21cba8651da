package service

import (
	"imageAttach/internal/apperr"
)

type ordering struct {
	values   map[string]string
	allowed  []string
	fallback string
}

// resolve maps a client ordering value to an ORDER BY clause. Only values
// from the allow-list reach SQL.
func (o ordering) resolve(value string) (string, error) {
	if value == "" {
		value = o.fallback
	}
	clause, ok := o.values[value]
	if !ok {
		return "", &apperr.InvalidOrderingError{Value: value, Allowed: o.allowed}
	}
	return clause, nil
}

var imageOrdering = ordering{
	values: map[string]string{
		"created_at":  "created_at ASC, id ASC",
		"-created_at": "created_at DESC, id DESC",
		"title":       "title ASC NULLS LAST, id ASC",
		"-title":      "title DESC NULLS LAST, id DESC",
	},
	allowed:  []string{"created_at", "-created_at", "title", "-title"},
	fallback: "-created_at",
}

var relationOrdering = ordering{
	values: map[string]string{
		"order":       "r.sort_order NULLS LAST, r.id",
		"-order":      "r.sort_order DESC NULLS LAST, r.id DESC",
		"created_at":  "i.created_at ASC, r.id ASC",
		"-created_at": "i.created_at DESC, r.id DESC",
		"title":       "i.title ASC NULLS LAST, r.id ASC",
		"-title":      "i.title DESC NULLS LAST, r.id DESC",
	},
	allowed:  []string{"order", "-order", "created_at", "-created_at", "title", "-title"},
	fallback: "order",
}
