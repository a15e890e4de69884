package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	logx "coinpulse/pkg/logx"
)

// Request is one incoming command.
type Request struct {
	ChatID       int64
	ThreadID     int
	FromID       int64
	FromUsername string
	Command      string
	Args         []string
	Logger       logx.Logger

	reply func(ctx context.Context, text string) error
}

// Reply answers in the chat (and thread) the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	if r.reply == nil {
		return nil
	}
	return r.reply(ctx, text)
}

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// MWOwnerOnly drops commands from users outside owners. An empty list
// denies everyone.
func MWOwnerOnly(owners []int64) Middleware {
	owners = slices.Clone(owners)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if !slices.Contains(owners, req.FromID) {
				req.Logger.Warn("command denied: not an owner",
					logx.Int64("from_id", req.FromID),
					logx.String("from_username", req.FromUsername))
				return req.Reply(ctx, "not allowed")
			}
			return next(ctx, req)
		}
	}
}

func MWPanicRecover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					req.Logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			fields := []logx.Field{
				logx.Int64("chat_id", req.ChatID),
				logx.Int64("from_id", req.FromID),
				logx.Duration("dur", time.Since(start)),
			}
			if err != nil {
				req.Logger.Warn("request failed", append(fields, logx.Err(err))...)
			} else {
				req.Logger.Info("request ok", fields...)
			}
			return err
		}
	}
}
