package types

import (
	"errors"
	"fmt"
	"strings"
)

var errCompositeArity = errors.New("composite: field count mismatch")

// encodeComposite renders a row literal. Nil fields become NULL; every other
// field is double quoted with backslash escapes.
func encodeComposite(fields ...*string) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if field == nil {
			b.WriteString("NULL")
			continue
		}
		b.WriteByte('"')
		for _, r := range *field {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte(')')
	return b.String()
}

// decodeComposite splits a row literal into its fields. Postgres emits
// absent values as empty unquoted fields and doubles embedded quotes, so both
// forms are accepted alongside the backslash escapes encodeComposite writes.
func decodeComposite(raw string, arity int) ([]*string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return nil, fmt.Errorf("composite: malformed literal %q", raw)
	}
	body := raw[1 : len(raw)-1]

	var (
		out    []*string
		cur    strings.Builder
		quoted bool
		inside bool
	)
	flush := func() {
		value := cur.String()
		cur.Reset()
		if !quoted && (value == "" || strings.EqualFold(value, "NULL")) {
			out = append(out, nil)
		} else {
			out = append(out, &value)
		}
		quoted = false
	}

	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\\' && i+1 < len(body):
			i++
			cur.WriteByte(body[i])
		case ch == '"' && inside && i+1 < len(body) && body[i+1] == '"':
			i++
			cur.WriteByte('"')
		case ch == '"':
			inside = !inside
			quoted = true
		case ch == ',' && !inside:
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inside {
		return nil, fmt.Errorf("composite: unterminated quote in %q", raw)
	}
	flush()

	if arity > 0 && len(out) != arity {
		return nil, fmt.Errorf("%w: got %d want %d", errCompositeArity, len(out), arity)
	}
	return out, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
