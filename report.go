package calcnotify

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"calcnotify/internal/pdfgen"
	"calcnotify/internal/report"
	"calcnotify/pkg/logx"
	"calcnotify/pkg/tgui"
)

// Report is one title+text+attachments bundle.
type Report struct {
	Title string
	Text  string

	// Figures are rendered into the staged folder as figure_<i>.png.
	// A figure that fails to render becomes an error section in the
	// caption instead of failing the report.
	Figures []Figure

	// ImagePaths are existing images copied into the staged folder and
	// sent as photos. Missing paths are skipped.
	ImagePaths []string

	// Files are arbitrary attachments sent as documents. Missing paths
	// are skipped.
	Files []string

	// SkipSend stages the report on disk without delivering it.
	SkipSend bool
}

// Publish stages the report under the notifier's history directory,
// assembles the PDF summary and queues delivery to the chat. It returns the
// staged folder path. Delivery happens in the background; Close drains it.
func (n *Notifier) Publish(ctx context.Context, r Report) (string, error) {
	// Join the drain group together with the accepting check, so a Close
	// racing a Publish either rejects it or waits for its delivery. Staging
	// counts too: the store must stay open until the report is recorded.
	n.mu.Lock()
	if !n.accepting {
		n.mu.Unlock()
		return "", ErrStopped
	}
	n.wg.Add(1)
	n.mu.Unlock()

	handedOff := false
	defer func() {
		if !handedOff {
			n.wg.Done()
		}
	}()

	folder, err := report.NewFolder(n.dir)
	if err != nil {
		return "", fmt.Errorf("stage report: %w", err)
	}

	title := r.Title
	if title == "" {
		title = "Report"
	}
	if err := report.WriteMeta(folder, report.Meta{Title: title, Text: r.Text, TS: time.Now().UTC()}); err != nil {
		n.critical(ctx, "write report meta", err)
	}

	var (
		images   []string
		files    []string
		userErrs []string
	)
	for i, fig := range r.Figures {
		if fig == nil {
			continue
		}
		p, err := report.SaveFigure(folder, i, fig.Render)
		if err != nil {
			userErrs = append(userErrs, fmt.Sprintf("figure %d: %v", i, err))
			continue
		}
		images = append(images, p)
	}
	for _, src := range r.ImagePaths {
		dst, err := report.CopyIn(folder, src)
		if err != nil {
			n.critical(ctx, "copy image "+src, err)
			continue
		}
		if dst == "" {
			n.log.Debug("image path missing; skipped", logx.String("path", src))
			continue
		}
		images = append(images, dst)
	}
	for _, src := range r.Files {
		dst, err := report.CopyIn(folder, src)
		if err != nil {
			n.critical(ctx, "copy file "+src, err)
			continue
		}
		if dst == "" {
			n.log.Debug("file path missing; skipped", logx.String("path", src))
			continue
		}
		files = append(files, dst)
	}

	pdfPath := ""
	if !n.cfg.SkipPDF {
		pdfPath = filepath.Join(folder, filepath.Base(folder)+".pdf")
		if err := pdfgen.Assemble(pdfPath, title, r.Text, images); err != nil {
			n.critical(ctx, "pdf generation failed", err)
			pdfPath = ""
		}
	}

	caption := n.buildCaption(title, r.Text, userErrs)

	if !r.SkipSend && n.send != nil {
		handedOff = true
		// Delivery outlives the caller's ctx on purpose: a cancelled
		// calculation should still get its last report out.
		dctx := context.WithoutCancel(ctx)
		go func() {
			defer n.wg.Done()
			n.deliver(dctx, folder, caption, report.Partition(images, files), pdfPath)
		}()
	}
	return folder, nil
}

func (n *Notifier) buildCaption(title, text string, userErrs []string) string {
	parts := []tgui.H{
		tgui.B(n.name),
		"\n" + tgui.B(title),
	}
	if text != "" {
		parts = append(parts, "\n"+tgui.Esc(text))
	}
	if len(userErrs) > 0 {
		parts = append(parts, "\n"+tgui.B("Errors during report creation:"))
		for _, e := range userErrs {
			parts = append(parts, "\n"+tgui.Pre(e))
		}
	}
	if up := n.uptimeLine(); up != "" {
		parts = append(parts, "\n"+tgui.Esc(up))
	}
	return tgui.JoinH("\n", parts...).String()
}
