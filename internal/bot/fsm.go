package bot

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/state"
	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	tghelpers "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/helpers"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// flow feeds free text to a pending search or address step. Menu buttons,
// slash commands and category labels typed meanwhile abandon the step.
type flow struct {
	h   *Handler
	reg *tg.Registry
}

func (f *flow) InProgress(ctx context.Context, userID int64) bool {
	return state.Active(f.h.ctl.Awaiting(ctx, userID))
}

func (f *flow) Handle(c tele.Context) error {
	ctx, userID := tghelpers.BuildContext(c), tghelpers.UserID(c)
	text := strings.TrimSpace(c.Text())

	if isShortcut(text) {
		if _, cmd, ok := f.reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
			f.h.ctl.CancelAwaiting(ctx, userID)
			return cmd.Handler(c)
		}
	}
	if category, ok := categoryButton(text); ok {
		f.h.ctl.CancelAwaiting(ctx, userID)
		resp, err := f.h.ctl.SelectCategory(ctx, userID, string(category))
		return f.h.reply(c, resp, err, false)
	}

	resp, err := f.h.ctl.HandleText(ctx, userID, text)
	return f.h.reply(c, resp, err, false)
}

// categoryButton matches the exact label of a category button. Bare ids such
// as "food" are ordinary text here: a search query or an address.
func categoryButton(text string) (domain.Category, bool) {
	for _, c := range domain.Categories() {
		if text == c.Label() {
			return c, true
		}
	}
	return "", false
}

// isShortcut matches slash commands and the reply keyboard labels. Plain
// words are left alone so "cart" stays a valid search query.
func isShortcut(text string) bool {
	switch text {
	case LabelCatalog, LabelCart, LabelSearch:
		return true
	}
	return strings.HasPrefix(text, "/")
}
