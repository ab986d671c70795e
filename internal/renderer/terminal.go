package renderer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/runtime"
	"github.com/prismlang/prism/internal/view"
)

// Terminal drives an interactive session: it draws the view after every
// patch batch and maps key presses to runtime events.
//
// Focus moves with Tab through the interactive nodes (buttons and bound
// inputs) in tree order. Enter clicks the focused button; printable runes
// and backspace edit the focused input. Ctrl-C quits.
type Terminal struct {
	rt  *runtime.Runtime
	in  *os.File
	out io.Writer

	focusables []ast.NodeRef
	focusIdx   int
}

// NewTerminal creates a terminal session for a loaded runtime.
func NewTerminal(rt *runtime.Runtime, in *os.File, out io.Writer) *Terminal {
	t := &Terminal{rt: rt, in: in, out: out}
	t.rebuildFocus()
	return t
}

// IsInteractive reports whether the input is a real terminal.
func (t *Terminal) IsInteractive() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// Run enters raw mode and processes key presses until quit or context
// cancellation. The runtime's event loop must be running; this goroutine
// only dispatches.
func (t *Terminal) Run(ctx context.Context) error {
	fd := int(t.in.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	t.Draw()

	buf := make([]byte, 8)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := t.in.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		key := DecodeKey(buf[:n])
		switch key.Kind {
		case KeyQuit:
			return nil
		case KeyTab:
			t.advanceFocus()
			t.Draw()
		case KeyEnter:
			if ref, ok := t.focused(); ok {
				t.rt.DispatchClick(ref)
			}
		case KeyBackspace:
			if ref, ok := t.focused(); ok {
				t.rt.DispatchBackspace(ref)
			}
		case KeyRune:
			if ref, ok := t.focused(); ok {
				t.rt.DispatchTextInput(ref, string(key.Rune))
			}
		}
	}
}

// Draw repaints the whole view. Called after every patch batch; the
// patch stream itself drives renderers with finer-grained surfaces, a
// terminal just redraws.
func (t *Terminal) Draw() {
	t.rebuildFocus()

	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H") // clear, home

	focused, _ := t.focused()
	for _, line := range Render(t.rt.Tree(), focused) {
		b.WriteString(line.Text)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n[tab] focus  [enter] click  [ctrl-c] quit\r\n")
	fmt.Fprint(t.out, b.String())
}

// OnPatches is a runtime.PatchSink that repaints on every update.
func (t *Terminal) OnPatches([]view.Patch) {
	t.Draw()
}

// rebuildFocus recollects the interactive nodes in tree order, keeping
// the current focus when it survives the update.
func (t *Terminal) rebuildFocus() {
	current, hadFocus := t.focused()

	t.focusables = t.focusables[:0]
	collectFocusable(t.rt.Document().View, t.rt.Tree(), ast.RootRef, &t.focusables)

	t.focusIdx = 0
	if hadFocus {
		for i, ref := range t.focusables {
			if ref == current {
				t.focusIdx = i
				break
			}
		}
	}
}

func collectFocusable(n *ast.ViewNode, tree *view.Tree, ref ast.NodeRef, out *[]ast.NodeRef) {
	if n == nil {
		return
	}
	node := tree.Find(ref)
	if node == nil || !node.Visible {
		return // invisible subtrees take no focus
	}
	_, clickable := n.OnClick()
	_, bindable := n.Bind()
	if clickable || bindable {
		*out = append(*out, ref)
	}
	for i, c := range n.Children {
		collectFocusable(c, tree, ref.Child(i), out)
	}
}

func (t *Terminal) focused() (ast.NodeRef, bool) {
	if len(t.focusables) == 0 {
		return "", false
	}
	return t.focusables[t.focusIdx], true
}

func (t *Terminal) advanceFocus() {
	if len(t.focusables) == 0 {
		return
	}
	t.focusIdx = (t.focusIdx + 1) % len(t.focusables)
}
