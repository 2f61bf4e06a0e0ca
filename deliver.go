package calcnotify

import (
	"context"
	"path/filepath"
	"strings"

	"calcnotify/internal/history"
	"calcnotify/internal/report"
	"calcnotify/pkg/logx"
	"calcnotify/pkg/tgui"
)

// deliver pushes one staged report to the chat: albums first (caption on the
// first one), then the PDF summary, then the remaining documents. Whatever
// got through is recorded so pruning can delete it later; a partial failure
// never blocks the rest of the report.
func (n *Notifier) deliver(ctx context.Context, folder, caption string, b report.Batches, pdfPath string) {
	var ids []int

	// The album caption is limited to 1024 runes while a plain message gets
	// 4096. When the caption overflows the album limit, the album goes out
	// with the clamped caption and the full text follows as its own message.
	captionOverflow := caption != "" && !tgui.CaptionFits(caption)

	switch {
	case len(b.Albums) > 0:
		captionSent := false
		for i, album := range b.Albums {
			albumCaption := ""
			if i == 0 {
				albumCaption = tgui.ClampCaption(caption)
			}
			got, err := n.send.SendAlbum(ctx, album, albumCaption)
			if err != nil {
				n.critical(ctx, "send media group", err)
				continue
			}
			if i == 0 {
				captionSent = albumCaption != ""
			}
			ids = append(ids, got...)
		}
		// The full text goes out as its own message when the album caption
		// had to be clamped, or when the album carrying it never made it.
		if caption != "" && (captionOverflow || !captionSent) {
			id, err := n.send.SendMessage(ctx, caption)
			if err != nil {
				n.critical(ctx, "send report message", err)
			} else {
				ids = append(ids, id)
			}
		}
	case strings.TrimSpace(caption) != "":
		id, err := n.send.SendMessage(ctx, caption)
		if err != nil {
			n.critical(ctx, "send report message", err)
		} else {
			ids = append(ids, id)
		}
	}

	if pdfPath != "" {
		id, err := n.send.SendDocument(ctx, pdfPath, tgui.B(n.name).String()+": PDF report")
		if err != nil {
			n.critical(ctx, "send pdf summary", err)
		} else {
			ids = append(ids, id)
		}
	}

	for _, f := range b.Documents {
		if pdfPath != "" && sameFile(f, pdfPath) {
			continue
		}
		docCaption := tgui.JoinH(": ", tgui.B(n.name), tgui.Code(filepath.Base(f))).String()
		id, err := n.send.SendDocument(ctx, f, docCaption)
		if err != nil {
			n.critical(ctx, "send document "+filepath.Base(f), err)
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) > 0 {
		if err := n.store.Push(ctx, history.Record{Name: n.name, Folder: folder, MessageIDs: ids}); err != nil {
			n.critical(ctx, "record report history", err)
		}
		n.log.Info("report delivered",
			logx.String("folder", filepath.Base(folder)),
			logx.Int("messages", len(ids)),
		)
	}

	if err := n.Prune(ctx); err != nil {
		n.critical(ctx, "prune old reports", err)
	}
}

// Prune removes reports beyond KeepLast: their records leave the history
// store and their chat messages are deleted. Delete failures are logged and
// skipped; the message may already be gone.
func (n *Notifier) Prune(ctx context.Context) error {
	popped, err := n.store.PruneKeepLast(ctx, n.name, n.keepLast())
	if err != nil {
		return err
	}
	if n.send == nil {
		return nil
	}
	for _, rec := range popped {
		for _, id := range rec.MessageIDs {
			if err := n.send.DeleteMessage(ctx, id); err != nil {
				n.log.Warn("delete old message failed", logx.Int("message_id", id), logx.Err(err))
			}
		}
		n.log.Debug("old report pruned",
			logx.String("folder", filepath.Base(rec.Folder)),
			logx.Int("messages", len(rec.MessageIDs)),
		)
	}
	return nil
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}
