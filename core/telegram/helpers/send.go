package helpers

import (
	"bytes"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMDV2 sends a message with MarkdownV2 parse mode and optional reply markup.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: rm}
	return SendText(c, text, opts)
}

// EditOrSendMDV2 edits the callback's message (MarkdownV2) or sends a new one.
func EditOrSendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: rm}
	return sendAsync(c, "send.edit", "editMessageText", func() error {
		return c.EditOrSend(text, opts)
	})
}

// SendDocument uploads data as a file named fileName. The reader is rebuilt
// on every attempt so retries resend the full content.
func SendDocument(c tele.Context, fileName string, data []byte, caption string, markup ...*tele.ReplyMarkup) error {
	var opts []interface{}
	if len(markup) > 0 && markup[0] != nil {
		opts = append(opts, markup[0])
	}
	return sendAsync(c, "send.document", "sendDocument", func() error {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(data)),
			FileName: fileName,
			Caption:  caption,
		}
		return c.Send(doc, opts...)
	})
}
