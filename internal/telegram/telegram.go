// Package telegram is the outbound Bot API client used to deliver reports.
//
// It wraps telebot for the heavy lifting (multipart uploads, media groups)
// and adds the pieces a send-only client needs: context awareness, flood-rate
// limiting and Telegram's size limits.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"calcnotify/pkg/logx"
	"calcnotify/pkg/tgui"
)

type Config struct {
	Token      string
	ChatID     int64
	RatePerSec int
}

// Client sends to exactly one chat. Safe for concurrent use.
type Client struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	b, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
		// Send-only client: no poller, and skip the getMe probe so
		// construction does not require network access.
		Offline: true,
		Client:  httpClient(),
	})
	if err != nil {
		return nil, err
	}
	log.Debug("telegram client ready",
		logx.Int64("chat_id", cfg.ChatID),
		logx.Int("rate_per_sec", cfg.RatePerSec),
	)
	return &Client{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}, nil
}

func (c *Client) chat() *tele.Chat { return &tele.Chat{ID: c.cfg.ChatID} }

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate wait: %w", err)
	}
	return nil
}

var htmlOpts = &tele.SendOptions{
	ParseMode:             tele.ModeHTML,
	DisableWebPagePreview: true,
}

// SendMessage sends an HTML text message and returns its message ID.
// Text over the sendMessage limit is truncated.
func (c *Client) SendMessage(ctx context.Context, html string) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	msg, err := c.bot.Send(c.chat(), tgui.ClampMessage(html), htmlOpts)
	if err != nil {
		return 0, fmt.Errorf("sendMessage: %w", err)
	}
	return msg.ID, nil
}

// SendPhoto uploads one image with an optional HTML caption.
func (c *Client) SendPhoto(ctx context.Context, path string, captionHTML string) (int, error) {
	photo := &tele.Photo{File: tele.FromDisk(path)}
	if captionHTML != "" {
		photo.Caption = tgui.ClampCaption(captionHTML)
	}
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	msg, err := c.bot.Send(c.chat(), photo, htmlOpts)
	if err != nil {
		return 0, fmt.Errorf("sendPhoto: %w", err)
	}
	return msg.ID, nil
}

// SendAlbum sends up to tgui.MaxAlbumSize photos as one media group, with the
// caption (clamped to the caption limit) on the first photo. Returns all
// message IDs of the album. sendMediaGroup needs at least two items, so a
// single path is delegated to SendPhoto.
func (c *Client) SendAlbum(ctx context.Context, paths []string, captionHTML string) ([]int, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if len(paths) == 1 {
		id, err := c.SendPhoto(ctx, paths[0], captionHTML)
		if err != nil {
			return nil, err
		}
		return []int{id}, nil
	}
	if len(paths) > tgui.MaxAlbumSize {
		paths = paths[:tgui.MaxAlbumSize]
	}
	album := make(tele.Album, 0, len(paths))
	for i, p := range paths {
		photo := &tele.Photo{File: tele.FromDisk(p)}
		if i == 0 && captionHTML != "" {
			photo.Caption = tgui.ClampCaption(captionHTML)
		}
		album = append(album, photo)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	msgs, err := c.bot.SendAlbum(c.chat(), album, htmlOpts)
	if err != nil {
		return nil, fmt.Errorf("sendMediaGroup: %w", err)
	}
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	c.log.Debug("media group sent", logx.Int("photos", len(ids)))
	return ids, nil
}

// SendDocument uploads a file as a document and returns its message ID.
func (c *Client) SendDocument(ctx context.Context, path string, captionHTML string) (int, error) {
	doc := &tele.Document{
		File:     tele.FromDisk(path),
		FileName: filepath.Base(path),
	}
	if captionHTML != "" {
		doc.Caption = tgui.ClampCaption(captionHTML)
	}
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	msg, err := c.bot.Send(c.chat(), doc, htmlOpts)
	if err != nil {
		return 0, fmt.Errorf("sendDocument: %w", err)
	}
	return msg.ID, nil
}

// DeleteMessage removes a previously sent message. A failed delete is
// reported to the caller but is expected to be treated as non-fatal:
// the message may already be gone or past Telegram's delete window.
func (c *Client) DeleteMessage(ctx context.Context, messageID int) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	ref := &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    c.cfg.ChatID,
	}
	if err := c.bot.Delete(ref); err != nil {
		return fmt.Errorf("deleteMessage %d: %w", messageID, err)
	}
	return nil
}
