package calcnotify

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/fatih/color"

	"calcnotify/pkg/logx"
	"calcnotify/pkg/tgui"
)

// stack blocks are truncated before wrapping in <pre> so a clamped message
// never cuts through a tag.
const maxStackRunes = 3000

// ReportError reports a calculation error: red echo on the terminal plus a
// Telegram message with context, uptime and the stack trace at the call site.
func (n *Notifier) ReportError(ctx context.Context, cause error, label string) error {
	if cause == nil {
		return nil
	}
	if label == "" {
		label = "unknown"
	}
	stack := string(debug.Stack())

	red := color.New(color.FgRed)
	_, _ = red.Fprintf(os.Stderr, "ERROR in calculation %q:\n%v\n%s\n", n.name, cause, stack)
	n.log.Error("calculation error", logx.String("context", label), logx.Err(cause))

	if n.send == nil {
		return nil
	}

	parts := []tgui.H{
		tgui.B(n.name + ": Error"),
		"\n" + tgui.B("Context:") + " " + tgui.Esc(label),
		"\n" + tgui.Esc(n.uptimeLine()),
		"\n" + tgui.Pre(tgui.TruncRunes(cause.Error(), 500)),
		"\n" + tgui.Esc("Stack trace:"),
		tgui.Pre(tgui.TruncRunes(stack, maxStackRunes)),
	}
	_, err := n.send.SendMessage(ctx, tgui.JoinH("\n", parts...).String())
	if err != nil {
		n.log.Warn("error report send failed", logx.Err(err))
	}
	return err
}

// Guard runs fn and reports a returned error (the decorator analog for
// wrapping a whole calculation). The original error is returned either way.
func (n *Notifier) Guard(ctx context.Context, label string, fn func() error) error {
	err := fn()
	if err != nil {
		_ = n.ReportError(ctx, err, label)
	}
	return err
}

// Recover reports and swallows a panic. Use it in a defer around user
// calculation code when a crash should end up in the chat instead of
// killing the process.
func (n *Notifier) Recover(ctx context.Context, label string) {
	if r := recover(); r != nil {
		_ = n.ReportError(ctx, fmt.Errorf("panic: %v", r), label)
	}
}

// critical handles internal notifier faults (not user errors): always
// logged and echoed, best-effort posted to the chat, fatal in debug mode.
func (n *Notifier) critical(ctx context.Context, msg string, cause error) {
	red := color.New(color.FgRed)
	_, _ = red.Fprintf(os.Stderr, "[CRITICAL NOTIFIER] %s: %v\n", msg, cause)
	n.log.Error(msg, logx.Err(cause))

	if n.send != nil {
		text := tgui.Pre(fmt.Sprintf("System Error (Notifier)\n\n%s: %v", msg, cause)).String()
		if id, err := n.send.SendMessage(ctx, text); err == nil {
			_ = n.store.RecordSystemError(ctx, id)
		}
	}

	if n.cfg.Debug {
		panic(fmt.Sprintf("calcnotify: internal error: %s: %v", msg, cause))
	}
}
