package sqlstore

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/gymcoding/invoice-web/remote"
)

const cursorPrefix = "o:"

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("unknown cursor %q", cursor)
	}
	offset, err := strconv.Atoi(s)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("unknown cursor %q", cursor)
	}
	return offset, nil
}

const fieldExists = "EXISTS (SELECT 1 FROM record_fields AS f WHERE f.record_id = r.id AND f.name = ? AND "

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// compile turns a filter tree into a WHERE fragment with bun placeholders.
// An empty And or Or compiles to an empty fragment.
func compile(filter remote.Filter) (string, []any, error) {
	switch f := filter.(type) {
	case nil:
		return "", nil, nil
	case remote.And:
		return join(f, " AND ")
	case remote.Or:
		return join(f, " OR ")
	case remote.TextContains:
		if f.Kind != remote.PropertyTitle && f.Kind != remote.PropertyRichText {
			return "", nil, fmt.Errorf("text filter on %q needs a title or rich_text kind", f.Property)
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Value)) + "%"
		return fieldExists + `f.kind = ? AND LOWER(f.text_value) LIKE ? ESCAPE '\'` + ")",
			[]any{f.Property, string(f.Kind), pattern}, nil
	case remote.SelectEquals:
		return fieldExists + "f.kind = ? AND f.text_value = ?)",
			[]any{f.Property, string(remote.PropertySelect), f.Value}, nil
	case remote.DateRange:
		if f.OnOrAfter == "" && f.OnOrBefore == "" {
			return "", nil, nil
		}
		var (
			conds []string
			args  = []any{f.Property}
		)
		if f.OnOrAfter != "" {
			conds = append(conds, "f.date_value >= ?")
			args = append(args, dayOf(f.OnOrAfter))
		}
		if f.OnOrBefore != "" {
			conds = append(conds, "f.date_value <= ?")
			args = append(args, dayOf(f.OnOrBefore))
		}
		return fieldExists + strings.Join(conds, " AND ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter %T", filter)
	}
}

func join(clauses []remote.Filter, op string) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, c := range clauses {
		expr, a, err := compile(c)
		if err != nil {
			return "", nil, err
		}
		if expr == "" {
			continue
		}
		parts = append(parts, expr)
		args = append(args, a...)
	}
	switch len(parts) {
	case 0:
		return "", nil, nil
	case 1:
		return parts[0], args, nil
	}
	return "(" + strings.Join(parts, op) + ")", args, nil
}
