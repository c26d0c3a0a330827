package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	buttons := []InlineBtn{
		{Text: "A", Unique: "add", Data: "1"},
		{Text: "B", Unique: "add", Data: "2"},
		{Text: "C", Unique: "add", Data: "3"},
	}
	markup := InlineButtonsNPerRow(buttons, 2)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 1)
	assert.Equal(t, "C", markup.InlineKeyboard[1][0].Text)
	assert.Equal(t, "add", markup.InlineKeyboard[1][0].Unique)
}

func TestRequestKeyboards(t *testing.T) {
	contact := ContactRequest("share phone")
	require.Len(t, contact.ReplyKeyboard, 1)
	assert.True(t, contact.ReplyKeyboard[0][0].Contact)

	loc := LocationRequest("share location")
	require.Len(t, loc.ReplyKeyboard, 1)
	assert.True(t, loc.ReplyKeyboard[0][0].Location)
}

func TestReplyButtonsAndCancel(t *testing.T) {
	menu := ReplyButtons([]string{"Catalog", "Cart"}, []string{"Search"})
	require.Len(t, menu.ReplyKeyboard, 2)
	assert.Equal(t, "Cart", menu.ReplyKeyboard[0][1].Text)

	cancel := SingleCancelMarkup("cancel_search")
	require.Len(t, cancel.InlineKeyboard, 1)
	assert.Equal(t, "cancel_search", cancel.InlineKeyboard[0][0].Unique)
}
