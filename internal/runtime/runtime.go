// Package runtime wires the reactive core together: it loads a program
// through the sandbox guard, owns the state store and the materialized
// view, and drives the single-writer event loop that turns input events
// into state mutations and view patches.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/deps"
	"github.com/prismlang/prism/internal/parser"
	"github.com/prismlang/prism/internal/sandbox"
	"github.com/prismlang/prism/internal/state"
	"github.com/prismlang/prism/internal/view"
)

// PatchSink receives the patch sequence of each reconciliation pass,
// including the initial full layout. Called from the goroutine that
// triggered the pass; with Run that is the run-loop goroutine.
type PatchSink func(patches []view.Patch)

// Runtime owns one loaded program and its live state.
//
// All mutations happen in one goroutine: either the caller's, via the
// direct Execute/Click/TextInput/Backspace methods, or the Run loop's,
// via the Dispatch methods. Mixing the two concurrently is not supported.
type Runtime struct {
	doc    *ast.Document
	index  *deps.Index
	store  *state.Store
	guard  *sandbox.Guard
	tree   *view.Tree
	queue  *eventQueue
	clock  *Clock
	tokens EventTokenGenerator
	logger *slog.Logger
	sink   PatchSink
}

// Option configures a Runtime at load.
type Option func(*Runtime)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithTokenGenerator overrides the event token generator.
// Tests use FixedGenerator for deterministic traces.
func WithTokenGenerator(g EventTokenGenerator) Option {
	return func(r *Runtime) { r.tokens = g }
}

// WithPatchSink installs a patch receiver.
func WithPatchSink(sink PatchSink) Option {
	return func(r *Runtime) { r.sink = sink }
}

// WithGuard overrides the sandbox guard.
func WithGuard(g *sandbox.Guard) Option {
	return func(r *Runtime) { r.guard = g }
}

// Load reads, parses, and validates a program file, then builds the
// initial view. The file goes through the sandbox guard: path, size, and
// memory checks all apply. Unless WithGuard overrides it, the guard is
// confined to the file's directory.
func Load(path string, opts ...Option) (*Runtime, error) {
	r := newRuntime(opts...)

	if r.guard == nil {
		g, err := sandbox.NewGuard(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		r.guard = g
	}

	src, err := r.guard.ReadProgram(path)
	if err != nil {
		return nil, err
	}
	if err := r.boot(string(src)); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadSource loads a program from an in-memory string. The source still
// counts against the memory budget; only the path and file checks are
// skipped. Used by tests and the scenario harness.
func LoadSource(src string, opts ...Option) (*Runtime, error) {
	r := newRuntime(opts...)

	if r.guard == nil {
		g, err := sandbox.NewGuard("")
		if err != nil {
			return nil, err
		}
		r.guard = g
	}

	if err := r.guard.CheckFileSize("<source>", int64(len(src))); err != nil {
		return nil, err
	}
	if err := r.guard.Charge(int64(len(src))); err != nil {
		return nil, err
	}
	if err := r.boot(src); err != nil {
		return nil, err
	}
	return r, nil
}

func newRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		queue:  newEventQueue(),
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// boot parses and validates the source and materializes the first view.
// Any failure here is fatal: the program never starts.
func (r *Runtime) boot(src string) error {
	doc, err := parser.Parse(src)
	if err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	r.doc = doc
	r.index = deps.Build(doc.View)
	r.store = state.New(doc.State)
	r.logger = r.logger.With("app", doc.AppName)

	tree, patches, err := view.Reconcile(doc.View, r.index, r.store, nil, nil)
	if err != nil {
		return err
	}
	if err := r.charge(tree); err != nil {
		return err
	}
	r.tree = tree

	r.logger.Info("program loaded",
		"version", doc.Version,
		"state_vars", r.store.Len(),
		"actions", len(doc.Actions),
	)

	r.emit(patches)
	return nil
}

// charge reports the current footprint to the guard: source was charged
// at read, so this covers the store plus the candidate tree.
func (r *Runtime) charge(tree *view.Tree) error {
	total := r.guard.Charged()
	if n := int64(r.store.SizeEstimate() + tree.SizeEstimate()); total < n {
		total = n
	}
	return r.guard.Charge(total)
}

func (r *Runtime) emit(patches []view.Patch) {
	if r.sink != nil && len(patches) > 0 {
		r.sink(patches)
	}
}

// Document returns the loaded program.
func (r *Runtime) Document() *ast.Document { return r.doc }

// Tree returns the current materialized view tree.
func (r *Runtime) Tree() *view.Tree { return r.tree }

// Lookup reads one state variable from the committed snapshot.
func (r *Runtime) Lookup(name string) (ast.Value, bool) {
	return r.store.Lookup(name)
}

// Execute dispatches an action by name, applies its mutations
// transactionally, and reconciles the view against the changed variables.
// Returns the emitted patches.
//
// Action errors (unknown name, failed expression) leave committed state
// and the view untouched. A reconciliation failure after a committed
// action keeps the previous tree and reports the error; state stays
// committed because the transaction already succeeded.
func (r *Runtime) Execute(name string) ([]view.Patch, error) {
	action, ok := r.doc.ActionByName(name)
	if !ok {
		return nil, &state.ActionError{Code: state.ErrCodeUnknownAction, Action: name}
	}

	changed, err := r.store.Apply(action)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("action applied", "action", name, "changed", len(changed))
	return r.reconcile(changed)
}

// Click activates a node. Clicks on unknown, invisible, or handler-less
// nodes are ignored: stale input from a renderer racing a view update is
// normal, not an error.
func (r *Runtime) Click(ref ast.NodeRef) ([]view.Patch, error) {
	node := r.tree.Find(ref)
	if node == nil || !node.Visible {
		r.logger.Debug("click ignored", "node", ref)
		return nil, nil
	}
	static := ast.FindNode(r.doc.View, ref)
	if static == nil {
		r.logger.Debug("click ignored", "node", ref)
		return nil, nil
	}
	action, ok := static.OnClick()
	if !ok {
		r.logger.Debug("click ignored: no handler", "node", ref)
		return nil, nil
	}
	return r.Execute(action)
}

// TextInput appends typed text to the node's bound variable. The bound
// value is coerced to its display form first, so typing into a field
// bound to a non-string variable turns it into a string. Events for
// unbound or invisible nodes are ignored.
func (r *Runtime) TextInput(ref ast.NodeRef, text string) ([]view.Patch, error) {
	name, current, ok := r.boundVar(ref)
	if !ok {
		r.logger.Debug("text input ignored", "node", ref)
		return nil, nil
	}
	changed := r.store.Set(name, ast.Str(displayOrEmpty(current)+text))
	return r.reconcile(changed)
}

// Backspace removes the last rune from the node's bound variable.
// A backspace on an empty value is a no-op.
func (r *Runtime) Backspace(ref ast.NodeRef) ([]view.Patch, error) {
	name, current, ok := r.boundVar(ref)
	if !ok {
		r.logger.Debug("backspace ignored", "node", ref)
		return nil, nil
	}
	s := displayOrEmpty(current)
	if s == "" {
		return nil, nil
	}
	runes := []rune(s)
	changed := r.store.Set(name, ast.Str(string(runes[:len(runes)-1])))
	return r.reconcile(changed)
}

// boundVar resolves the bind target of a visible node.
func (r *Runtime) boundVar(ref ast.NodeRef) (string, ast.Value, bool) {
	node := r.tree.Find(ref)
	if node == nil || !node.Visible {
		return "", nil, false
	}
	static := ast.FindNode(r.doc.View, ref)
	if static == nil {
		return "", nil, false
	}
	name, ok := static.Bind()
	if !ok {
		return "", nil, false
	}
	v, ok := r.store.Lookup(name)
	if !ok {
		return "", nil, false
	}
	return name, v, true
}

func displayOrEmpty(v ast.Value) string {
	if _, ok := v.(ast.Null); ok {
		return ""
	}
	return v.Display()
}

// reconcile recomputes the view for a committed change set, charges the
// new footprint, and installs the new tree. On a reconciliation error
// the previous tree stays installed. On a sandbox error the runtime is
// over budget and the error is fatal to the caller.
func (r *Runtime) reconcile(changed map[string]struct{}) ([]view.Patch, error) {
	if len(changed) == 0 {
		return nil, nil
	}

	tree, patches, err := view.Reconcile(r.doc.View, r.index, r.store, r.tree, changed)
	if err != nil {
		r.logger.Error("view reconciliation failed", "error", err)
		return nil, err
	}
	if err := r.charge(tree); err != nil {
		return nil, err
	}
	r.tree = tree
	r.emit(patches)
	return patches, nil
}

// DispatchClick enqueues a click event for the run loop.
// Thread-safe. Returns false if the runtime has been stopped.
func (r *Runtime) DispatchClick(ref ast.NodeRef) bool {
	return r.queue.Enqueue(Event{
		Kind: EventClick, Token: r.tokens.Generate(), Seq: r.clock.Next(), Node: ref,
	})
}

// DispatchTextInput enqueues a text input event for the run loop.
func (r *Runtime) DispatchTextInput(ref ast.NodeRef, text string) bool {
	return r.queue.Enqueue(Event{
		Kind: EventTextInput, Token: r.tokens.Generate(), Seq: r.clock.Next(), Node: ref, Text: text,
	})
}

// DispatchBackspace enqueues a backspace event for the run loop.
func (r *Runtime) DispatchBackspace(ref ast.NodeRef) bool {
	return r.queue.Enqueue(Event{
		Kind: EventBackspace, Token: r.tokens.Generate(), Seq: r.clock.Next(), Node: ref,
	})
}

// DispatchAction enqueues a direct action dispatch for the run loop.
func (r *Runtime) DispatchAction(name string) bool {
	return r.queue.Enqueue(Event{
		Kind: EventAction, Token: r.tokens.Generate(), Seq: r.clock.Next(), Action: name,
	})
}

// QueueLen returns the current number of pending events.
// Useful for monitoring and testing.
func (r *Runtime) QueueLen() int {
	return r.queue.Len()
}

// Stop closes the event queue, which causes Run to return once the
// queue drains.
func (r *Runtime) Stop() {
	r.queue.Close()
}

// Run starts the single-writer event loop. Blocks until the context is
// cancelled or Stop is called and the queue drains.
//
// ERROR HANDLING: action and evaluation failures are logged with full
// event context and processing continues; the committed state is already
// protected by the store's transaction. Sandbox violations are fatal and
// stop the loop.
func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("runtime starting")

	for {
		event, ok := r.queue.TryDequeue()
		if ok {
			if err := r.processEvent(event); err != nil {
				if sandbox.IsSandboxError(err) {
					r.logger.Error("resource limit exceeded, stopping",
						"error", err,
						"token", event.Token,
						"seq", event.Seq,
					)
					r.queue.Close()
					return err
				}
				r.logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runtime stopping: context cancelled")
			r.queue.Close()
			return ctx.Err()

		case <-r.queue.Wait():
			if r.queue.Len() == 0 {
				r.logger.Info("runtime stopping: queue closed")
				return nil
			}
		}
	}
}

// processEvent routes an event to its handler.
// Called only from the Run goroutine.
func (r *Runtime) processEvent(event Event) error {
	r.logger.Debug("processing event",
		"kind", event.Kind.String(),
		"token", event.Token,
		"seq", event.Seq,
	)

	var err error
	switch event.Kind {
	case EventClick:
		_, err = r.Click(event.Node)
	case EventTextInput:
		_, err = r.TextInput(event.Node, event.Text)
	case EventBackspace:
		_, err = r.Backspace(event.Node)
	case EventAction:
		_, err = r.Execute(event.Action)
	default:
		err = fmt.Errorf("unknown event kind: %d", event.Kind)
	}
	return err
}

// logEventError logs an event processing failure with full context so
// failed events can be investigated from the trace.
func (r *Runtime) logEventError(event Event, err error) {
	attrs := []any{
		"error", err,
		"kind", event.Kind.String(),
		"token", event.Token,
		"seq", event.Seq,
	}
	switch event.Kind {
	case EventClick, EventTextInput, EventBackspace:
		attrs = append(attrs, "node", event.Node)
	case EventAction:
		attrs = append(attrs, "action", event.Action)
	}
	r.logger.Error("event processing failed", attrs...)
}
