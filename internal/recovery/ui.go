package recovery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ubports/ubupdater/internal/domain/install"
	"github.com/ubports/ubupdater/internal/logger"
)

// UI is the part of the recovery screen the update driver talks to.
// The driver never owns the UI and never outlives it.
type UI interface {
	// Print appends formatted text to the recovery text log.
	Print(format string, args ...any)
	// ShowText toggles plain-text mode; hiding text reveals the animation.
	ShowText(visible bool)
	// SetBackground selects the screen shown behind the progress indicator.
	SetBackground(background install.Background)
	// SetProgressType selects the progress indicator style.
	SetProgressType(progress install.ProgressType)
	// SetEnableReboot allows or forbids the reboot action.
	SetEnableReboot(enabled bool)
}

// Console renders the recovery UI onto a writer.
// Text printed while text mode is off is held back and written out the next
// time text is shown, the way the recovery text log keeps growing behind
// the install animation.
type Console struct {
	ctx context.Context //nolint:containedctx // Carries the named logger only.
	out io.Writer

	mu           sync.Mutex
	textVisible  bool
	pending      bytes.Buffer
	background   install.Background
	progress     install.ProgressType
	rebootEnable bool
}

// NewConsole returns a Console writing to out with text mode on.
func NewConsole(ctx context.Context, out io.Writer) *Console {
	return &Console{
		ctx:         logger.WithName(ctx, "ui"),
		out:         out,
		textVisible: true,
	}
}

// Print implements UI.
func (c *Console) Print(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.textVisible {
		_, _ = fmt.Fprintf(&c.pending, format, args...)
		return
	}

	_, _ = fmt.Fprintf(c.out, format, args...)
}

// ShowText implements UI.
func (c *Console) ShowText(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger.DebugKV(c.ctx, "Text mode changed", "visible", visible)

	c.textVisible = visible
	if visible && c.pending.Len() > 0 {
		_, _ = c.pending.WriteTo(c.out)
	}
}

// SetBackground implements UI.
func (c *Console) SetBackground(background install.Background) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger.DebugKV(c.ctx, "Background changed", "background", background.String())

	c.background = background
}

// SetProgressType implements UI.
func (c *Console) SetProgressType(progress install.ProgressType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger.DebugKV(c.ctx, "Progress type changed", "progress", progress.String())

	c.progress = progress
}

// SetEnableReboot implements UI.
func (c *Console) SetEnableReboot(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger.DebugKV(c.ctx, "Reboot availability changed", "enabled", enabled)

	c.rebootEnable = enabled
}

// Snapshot is the observable state of a Console.
type Snapshot struct {
	TextVisible   bool
	Background    install.Background
	Progress      install.ProgressType
	RebootEnabled bool
}

// Snapshot returns the current UI state.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TextVisible:   c.textVisible,
		Background:    c.background,
		Progress:      c.progress,
		RebootEnabled: c.rebootEnable,
	}
}

// Flush writes out any text held back while text mode was off.
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = c.pending.WriteTo(c.out)
}
