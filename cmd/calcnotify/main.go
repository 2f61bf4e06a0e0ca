package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"calcnotify"
	"calcnotify/internal/config"
	"calcnotify/internal/watch"
	"calcnotify/pkg/logx"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: calcnotify <command> [flags]

commands:
  send    stage a report and deliver it to the chat
  prune   delete chat messages beyond keep_last now
  watch   run the inbox daemon

Run 'calcnotify <command> -h' for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "send":
		err = runSend(ctx, os.Args[2:])
	case "prune":
		err = runPrune(ctx, os.Args[2:])
	case "watch":
		err = runWatch(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

// loadConfig reads the config file. A missing file is fine when the
// Telegram token comes from the environment; the defaults cover the rest.
func loadConfig(path string) (*config.Config, *config.Manager, error) {
	m := config.NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		if os.IsNotExist(err) && os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
			cfg = &config.Config{}
			cfg.Normalize()
			applyEnv(cfg)
			return cfg, m, cfg.Validate()
		}
		return nil, nil, err
	}
	applyEnv(cfg)
	return cfg, m, cfg.Validate()
}

// applyEnv fills token/chat from the environment when the file left them
// out (the vga-events-style --flag-or-env convention, minus the flags).
func applyEnv(cfg *config.Config) {
	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" && cfg.Telegram.Token == "" {
		cfg.Telegram.Token = tok
		cfg.Telegram.Enabled = true
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" && cfg.Telegram.ChatID == 0 {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
}

func buildLogger(cfg *config.Config) (logx.Logger, error) {
	return logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
}

func buildNotifier(cfg *config.Config, log logx.Logger) (*calcnotify.Notifier, error) {
	ncfg := calcnotify.Config{
		Name:          cfg.Name,
		HistoryDir:    cfg.HistoryDir,
		KeepLast:      cfg.KeepLast,
		SkipPDF:       !cfg.Telegram.PDFEnabled(),
		DisableUptime: cfg.DisableUptime,
		Debug:         cfg.Debug,
		Log:           log,
	}
	if cfg.Telegram.Enabled {
		ncfg.Telegram = &calcnotify.TelegramConfig{
			Token:      cfg.Telegram.Token,
			ChatID:     cfg.Telegram.ChatID,
			RatePerSec: cfg.Telegram.RatePerSec,
		}
	}
	return calcnotify.New(ncfg)
}

func runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	cfgPath := fs.String("config", "./calcnotify.yaml", "path to config yaml/json")
	title := fs.String("title", "", "report title")
	text := fs.String("text", "", "report body text")
	noSend := fs.Bool("no-send", false, "stage the report without delivering it")
	var images, files multiFlag
	fs.Var(&images, "image", "image to attach (repeatable)")
	fs.Var(&files, "file", "file to attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	n, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}

	folder, err := n.Publish(ctx, calcnotify.Report{
		Title:      *title,
		Text:       *text,
		ImagePaths: images,
		Files:      files,
		SkipSend:   *noSend,
	})
	if err != nil {
		return err
	}
	fmt.Println(folder)

	// Flush the background delivery before exiting.
	cctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return n.Close(cctx)
}

func runPrune(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	cfgPath := fs.String("config", "./calcnotify.yaml", "path to config yaml/json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	n, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	if err := n.Prune(ctx); err != nil {
		return err
	}
	return n.Close(ctx)
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "./calcnotify.yaml", "path to config yaml/json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, mgr, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	mgr.SetLogger(log)

	n, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}

	settle, err := cfg.Watch.Settle()
	if err != nil {
		return err
	}
	maxAge, err := cfg.Watch.MaxAge()
	if err != nil {
		return err
	}
	inbox := cfg.Watch.InboxDir
	if inbox == "" {
		inbox = "./calcnotify_inbox"
	}

	d, err := watch.New(watch.Config{
		InboxDir:        inbox,
		SettleDelay:     settle,
		RetentionSpec:   cfg.Watch.Spec(),
		RetentionMaxAge: maxAge,
	}, n, log)
	if err != nil {
		return err
	}

	// Hot-reload: keep_last applies live; transport changes need a restart.
	mgr.OnChange(func(next *config.Config) {
		n.SetKeepLast(next.KeepLast)
		if next.Telegram.Token != cfg.Telegram.Token ||
			next.Telegram.ChatID != cfg.Telegram.ChatID ||
			next.Telegram.Enabled != cfg.Telegram.Enabled {
			log.Warn("telegram settings changed; restart to apply")
		}
	})
	go func() { _ = mgr.Watch(ctx) }()

	if err := d.Run(ctx); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return n.Close(cctx)
}
