// Package telegram is the telebot adapter: outgoing text for logs and
// notifications, and the owner-only operator commands.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "coinpulse/internal/runtime/supervisor"
	logx "coinpulse/pkg/logx"
)

type Config struct {
	Token        string
	PollTimeout  time.Duration
	OwnerUserIDs []int64
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	runMu   sync.Mutex
	running bool
	// sup owns the poll loop; created on Start, cancelled on Stop.
	sup *rtsup.Supervisor

	cmdMu    sync.Mutex
	commands []tele.Command
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			a.log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	a.bot = b
	return a, nil
}

// context returns the running supervisor context, or Background before Start.
func (a *Adapter) context() context.Context {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.sup != nil {
		return a.sup.Context()
	}
	return context.Background()
}

// Start begins long polling. It returns immediately.
func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log),
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	a.publishCommands()

	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	// bot.Start blocks until Stop. An early return while the context is
	// still live is treated as a failure and restarted.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		if c.Err() != nil {
			return nil
		}
		return errors.New("poller exited")
	}, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
	return nil
}

// Stop ends polling. It never blocks shutdown for longer than a short grace
// window even if a long poll is still open.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	a.log.Info("stopping")
	sup.Cancel()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		a.log.Warn("telegram stop incomplete", logx.Err(err))
	}
	return nil
}

// SendText sends text to a chat (and forum thread), split into chunks that
// fit Telegram's message limit.
func (a *Adapter) SendText(ctx context.Context, chatID int64, threadID int, text string) error {
	chat := &tele.Chat{ID: chatID}
	for _, chunk := range splitTelegramText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		opt := &tele.SendOptions{DisableWebPagePreview: true, ThreadID: threadID}
		if _, err := a.bot.Send(chat, chunk, opt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) publishCommands() {
	a.cmdMu.Lock()
	cmds := append([]tele.Command(nil), a.commands...)
	a.cmdMu.Unlock()
	if len(cmds) == 0 {
		return
	}
	if err := a.bot.SetCommands(cmds); err != nil {
		a.log.Warn("menu commands not updated", logx.Err(err))
		return
	}
	a.log.Info("menu commands updated", logx.Int("count", len(cmds)))
}

// Handle registers a command ("/name") with the middleware chain applied.
// Register before Start so the command menu includes it.
func (a *Adapter) Handle(name, description string, h HandlerFunc, mw ...Middleware) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	a.cmdMu.Lock()
	a.commands = append(a.commands, tele.Command{Text: name, Description: description})
	a.cmdMu.Unlock()

	h = Chain(h, mw...)
	a.bot.Handle("/"+name, func(c tele.Context) error {
		m := c.Message()
		if m == nil || c.Sender() == nil {
			return nil
		}
		req := &Request{
			ChatID:       m.Chat.ID,
			ThreadID:     m.ThreadID,
			FromID:       c.Sender().ID,
			FromUsername: c.Sender().Username,
			Command:      name,
			Args:         c.Args(),
			Logger:       a.log.With(logx.String("cmd", name)),
		}
		req.reply = func(ctx context.Context, text string) error {
			return a.SendText(ctx, req.ChatID, req.ThreadID, text)
		}
		return h(a.context(), req)
	})
}
