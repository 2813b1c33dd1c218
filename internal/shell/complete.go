package shell

import (
	"sort"
	"strings"

	"github.com/dop251/goja"
)

// complete is the prompter's word completer. It completes the dotted path
// ending at pos against the global scope.
func (h *Host) complete(line string, pos int) (string, []string, string) {
	if len(line) == 0 || pos == 0 {
		return "", nil, ""
	}
	start := pos - 1
	for ; start > 0; start-- {
		if isPathChar(line[start]) {
			continue
		}
		start++
		break
	}
	if start == 0 && !isPathChar(line[0]) {
		start = 1
	}
	return line[:start], h.completions(line[start:pos]), line[pos:]
}

func isPathChar(c byte) bool {
	return c == '.' || c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// completions returns the names reachable from the global object that
// extend the dotted path word.
func (h *Host) completions(word string) []string {
	parts := strings.Split(word, ".")
	obj := h.vm.GlobalObject()
	for _, part := range parts[:len(parts)-1] {
		v := obj.Get(part)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return nil
		}
		next, ok := v.(*goja.Object)
		if !ok {
			return nil
		}
		obj = next
	}

	prefix := strings.Join(parts[:len(parts)-1], ".")
	if prefix != "" {
		prefix += "."
	}
	last := parts[len(parts)-1]

	var out []string
	for _, key := range obj.Keys() {
		if strings.HasPrefix(key, last) {
			out = append(out, prefix+key)
		}
	}
	if len(parts) == 1 {
		for _, cmd := range []string{"exit"} {
			if strings.HasPrefix(cmd, last) {
				out = append(out, cmd)
			}
		}
	}
	sort.Strings(out)
	return out
}
