package format

import (
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kr/pretty"
)

// breakLength is the widest a nested value may print on one line.
const breakLength = 72

// Undefined renders as the bare word undefined inside containers.
type Undefined struct{}

// Circular marks a reference back to an enclosing container.
type Circular struct{}

// Function stands in for a callable value.
type Function struct {
	Name string
}

// Inspect renders v as a colourised structural view without depth limits:
// strings in single quotes, numbers and booleans highlighted, objects with
// sorted keys. Containers fold onto one line when they fit.
func Inspect(v any) string {
	p := printer{seen: map[uintptr]bool{}}
	return p.inspect(v, 0)
}

type printer struct {
	seen map[uintptr]bool
}

func (p *printer) inspect(v any, indent int) string {
	switch x := v.(type) {
	case nil:
		return Bold("null")
	case Undefined:
		return Dim("undefined")
	case Circular:
		return Cyan("[Circular]")
	case Function:
		if x.Name == "" {
			return Cyan("[Function (anonymous)]")
		}
		return Cyan("[Function: " + x.Name + "]")
	case string:
		return Green(quote(x))
	case bool:
		return Yellow(strconv.FormatBool(x))
	case float64:
		return Yellow(formatFloat(x))
	case float32:
		return Yellow(formatFloat(float64(x)))
	case *big.Int:
		if x == nil {
			return Bold("null")
		}
		return Yellow(x.String() + "n")
	case time.Time:
		return Magenta(x.UTC().Format("2006-01-02T15:04:05.000Z"))
	case error:
		return Attention(x.Error())
	case []any:
		return p.array(x, indent)
	case map[string]any:
		if p.enter(x) {
			return Cyan("[Circular]")
		}
		defer p.leave(x)
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return p.object(keys, func(k string) any { return x[k] }, indent)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Yellow(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Yellow(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Func:
		return Cyan("[Function]")
	case reflect.Ptr:
		if rv.IsNil() {
			return Bold("null")
		}
	}
	return pretty.Sprint(v)
}

func (p *printer) enter(m any) bool {
	ptr := reflect.ValueOf(m).Pointer()
	if p.seen[ptr] {
		return true
	}
	p.seen[ptr] = true
	return false
}

func (p *printer) leave(m any) {
	delete(p.seen, reflect.ValueOf(m).Pointer())
}

func (p *printer) array(items []any, indent int) string {
	if len(items) == 0 {
		return "[]"
	}
	if p.enter(items) {
		return Cyan("[Circular]")
	}
	defer p.leave(items)

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = p.inspect(item, indent+2)
	}
	return wrap("[", "]", parts, indent)
}

func (p *printer) object(keys []string, get func(string) any, indent int) string {
	if len(keys) == 0 {
		return "{}"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = key(k) + ": " + p.inspect(get(k), indent+2)
	}
	return wrap("{", "}", parts, indent)
}

// wrap joins parts on one line when they fit, otherwise one per line.
func wrap(open, closing string, parts []string, indent int) string {
	width := indent + len(open) + len(closing)
	multiline := false
	for _, part := range parts {
		width += VisibleLen(part) + 2
		if strings.Contains(part, "\n") {
			multiline = true
		}
	}
	if !multiline && width <= breakLength {
		return open + " " + strings.Join(parts, ", ") + " " + closing
	}

	pad := strings.Repeat(" ", indent+2)
	var b strings.Builder
	b.WriteString(open + "\n")
	for i, part := range parts {
		b.WriteString(pad + part)
		if i < len(parts)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat(" ", indent) + closing)
	return b.String()
}

func key(k string) string {
	if isIdentifier(k) {
		return k
	}
	return quote(k)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// quote wraps s in single quotes, escaping like a JavaScript literal.
func quote(s string) string {
	q := strconv.Quote(s)
	q = q[1 : len(q)-1]
	q = strings.ReplaceAll(q, `\"`, `"`)
	q = strings.ReplaceAll(q, `'`, `\'`)
	return "'" + q + "'"
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0 && math.Signbit(f):
		return "-0"
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Sprint is Inspect for a sequence of values, space separated.
func Sprint(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			parts[i] = s
			continue
		}
		parts[i] = Inspect(v)
	}
	return strings.Join(parts, " ")
}
