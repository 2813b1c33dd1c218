// Package shell hosts the interactive JavaScript console.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/ethereum/go-ethereum/console/prompt"
	"go.uber.org/zap"

	"github.com/dmagro/eth-console/internal/format"
)

// Prompter reads lines from the user. go-ethereum's prompt.Stdin satisfies it.
type Prompter interface {
	PromptInput(prompt string) (string, error)
	SetHistory(history []string)
	AppendHistory(command string)
	SetWordCompleter(completer prompt.WordCompleter)
}

// Config configures a Host.
type Config struct {
	Prompter Prompter
	Output   io.Writer
	// Prompt is shown before every expression. Defaults to "→ ".
	Prompt string
	// HistoryFile keeps entered lines across sessions when set.
	HistoryFile string
	Logger      *zap.Logger
}

// Host owns the evaluator and its global scope. Expressions are evaluated
// one at a time.
type Host struct {
	vm       *goja.Runtime
	prompter Prompter
	out      io.Writer
	prompt   string
	histPath string
	history  []string
	log      *zap.Logger

	exposed  []string
	commands map[string]command

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Host with an empty global scope plus console.log.
func New(cfg Config) *Host {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "→ "
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	h := &Host{
		vm:       vm,
		prompter: cfg.Prompter,
		out:      cfg.Output,
		prompt:   cfg.Prompt,
		histPath: cfg.HistoryFile,
		log:      cfg.Logger,
		commands: map[string]command{},
	}
	h.installConsole()
	h.Handle(".help", "List the exposed names and console commands", h.help)
	return h
}

func (h *Host) installConsole() {
	logFn := func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = h.export(arg, "", nil)
		}
		fmt.Fprintln(h.out, format.Sprint(args...))
		return goja.Undefined()
	}
	console := h.vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error"} {
		_ = console.Set(name, logFn)
	}
	_ = h.vm.Set("console", console)
}

// Runtime exposes the evaluator for building bindings.
func (h *Host) Runtime() *goja.Runtime { return h.vm }

// Merge sets every entry of context on the global object. Later entries
// replace earlier globals of the same name.
func (h *Host) Merge(context map[string]any) error {
	names := make([]string, 0, len(context))
	for name := range context {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.vm.Set(name, context[name]); err != nil {
			return fmt.Errorf("expose %s: %w", name, err)
		}
		h.exposed = appendUnique(h.exposed, name)
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Context is the context of the expression being evaluated. Bindings pass it
// to blocking calls so an interrupt cancels them. Outside an evaluation it
// is context.Background.
func (h *Host) Context() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx == nil {
		return context.Background()
	}
	return h.ctx
}

// Interrupt stops the running evaluation, if any, and cancels its context.
func (h *Host) Interrupt() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel == nil {
		return false
	}
	h.cancel()
	h.vm.Interrupt("interrupted")
	return true
}

// RunScript evaluates src under its own cancellable context.
func (h *Host) RunScript(name, src string) (goja.Value, error) {
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.ctx, h.cancel = ctx, cancel
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.ctx, h.cancel = nil, nil
		h.mu.Unlock()
		cancel()
		h.vm.ClearInterrupt()
	}()
	return h.vm.RunScript(name, src)
}

// Evaluate runs one expression and renders its outcome. The second result
// is false when there is nothing to print.
func (h *Host) Evaluate(src string) (string, bool) {
	v, err := h.RunScript("<console>", src)
	if err != nil {
		return h.RenderError(err), true
	}
	return h.Render(v)
}

// Render formats an evaluation result. Undefined prints nothing;
// error-shaped values print their stack.
func (h *Host) Render(v goja.Value) (string, bool) {
	if v == nil || goja.IsUndefined(v) {
		return "", false
	}
	if text, ok := errorText(v); ok {
		return format.Attention(text), true
	}
	return format.Inspect(h.export(v, "", nil)), true
}

// RenderError formats an error raised by evaluation.
func (h *Host) RenderError(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return format.Attention("Error: interrupted")
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		if text, ok := errorText(exception.Value()); ok {
			return format.Attention(text)
		}
		return format.Attention("Uncaught " + exception.Value().String())
	}
	return format.Attention(err.Error())
}

// errorText returns the stack (or message) of an error-shaped value: one
// carrying both stack and message strings, or a native Error.
func errorText(v goja.Value) (string, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return "", false
	}
	stack, sok := stringProp(obj, "stack")
	message, mok := stringProp(obj, "message")
	switch {
	case sok && mok && stack != "":
		return stack, true
	case sok && mok:
		return message, true
	case obj.ClassName() == "Error":
		return obj.String(), true
	}
	return "", false
}

func stringProp(obj *goja.Object, name string) (string, bool) {
	v := obj.Get(name)
	if v == nil {
		return "", false
	}
	s, ok := v.Export().(string)
	return s, ok
}

var (
	mapType   = reflect.TypeOf(map[string]interface{}{})
	sliceType = reflect.TypeOf([]interface{}{})
)

// export converts a JavaScript value into plain Go values for inspection,
// keeping function names and breaking reference cycles.
func (h *Host) export(v goja.Value, name string, seen map[*goja.Object]bool) any {
	if v == nil || goja.IsUndefined(v) {
		return format.Undefined{}
	}
	if goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.Export()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return format.Function{Name: functionName(obj, name)}
	}
	if text, isErr := errorText(obj); isErr {
		return errors.New(text)
	}

	if seen == nil {
		seen = map[*goja.Object]bool{}
	}
	if seen[obj] {
		return format.Circular{}
	}
	seen[obj] = true
	defer delete(seen, obj)

	switch {
	case obj.ClassName() == "Array" || obj.ExportType() == sliceType:
		length := int(obj.Get("length").ToInteger())
		items := make([]any, length)
		for i := range items {
			items[i] = h.export(obj.Get(strconv.Itoa(i)), "", seen)
		}
		return items
	case obj.ExportType() == mapType:
		fields := make(map[string]any)
		for _, key := range obj.Keys() {
			fields[key] = h.export(obj.Get(key), key, seen)
		}
		return fields
	}
	return obj.Export()
}

// functionName is the name shown for a function found under key. Wrapped Go
// functions carry their Go symbol as name, so they are shown by key.
func functionName(fn *goja.Object, key string) string {
	var name string
	if n := fn.Get("name"); n != nil {
		name = n.String()
	}
	if name == "" || strings.ContainsAny(name, "./") {
		return key
	}
	return name
}

// exposedMembers lists the property names of a global, for .help.
func (h *Host) exposedMembers(name string) (kind string, members []string) {
	v := h.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "undefined", nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return reflect.TypeOf(v.Export()).String(), nil
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return "function", nil
	}
	members = obj.Keys()
	sort.Strings(members)
	return "object", members
}

// joinLimited joins names, cutting the list at width characters.
func joinLimited(names []string, width int) string {
	var b strings.Builder
	for i, name := range names {
		if b.Len()+len(name)+1 > width && i > 0 {
			b.WriteString(" …")
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
	}
	return b.String()
}
