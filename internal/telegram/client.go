// Package telegram adapts the Telegram Bot API to the narrow interfaces the
// admission, delivery, notification and publishing components consume.
package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/coder/quartz"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"zonarated-bot/internal/cdn"
	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/notify"
)

type Client struct {
	bot     *telego.Bot
	groupID int64
	signer  *cdn.Signer
	clock   quartz.Clock
}

func NewClient(bot *telego.Bot, groupID int64, signer *cdn.Signer, clock quartz.Clock) *Client {
	return &Client{bot: bot, groupID: groupID, signer: signer, clock: clock}
}

// Keyboard converts notification buttons into an inline keyboard. Rows
// without usable buttons are dropped; nil is returned for an empty keyboard.
func Keyboard(rows [][]notify.Button) *telego.InlineKeyboardMarkup {
	var out [][]telego.InlineKeyboardButton
	for _, row := range rows {
		var buttons []telego.InlineKeyboardButton
		for _, b := range row {
			btn := tu.InlineKeyboardButton(b.Text)
			switch {
			case b.URL != "":
				btn = btn.WithURL(b.URL)
			case b.CallbackData != "":
				btn = btn.WithCallbackData(b.CallbackData)
			default:
				continue
			}
			buttons = append(buttons, btn)
		}
		if len(buttons) > 0 {
			out = append(out, tu.InlineKeyboardRow(buttons...))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return tu.InlineKeyboard(out...)
}

func (c *Client) Send(ctx context.Context, chatID int64, msg notify.Message) error {
	params := tu.Message(tu.ID(chatID), msg.Text).WithParseMode(telego.ModeHTML)
	if kb := Keyboard(msg.Buttons); kb != nil {
		params = params.WithReplyMarkup(kb)
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// Caption renders the HTML caption shared by group posts and deliveries.
func Caption(c models.Content) string {
	lines := []string{"<b>" + html.EscapeString(c.Title) + "</b>"}
	if c.Code != "" {
		lines = append(lines, "Code: <code>"+html.EscapeString(c.Code)+"</code>")
	}
	if c.Description != "" {
		lines = append(lines, "\n"+html.EscapeString(c.Description))
	}
	if c.Category != "" {
		lines = append(lines, "\nGenre: "+html.EscapeString(c.Category))
	}
	return strings.Join(lines, "\n")
}

func buttonKeyboard(text, url string) *telego.InlineKeyboardMarkup {
	return Keyboard([][]notify.Button{{{Text: text, URL: url}}})
}

func watchButton(lang, url string) *telego.InlineKeyboardMarkup {
	return buttonKeyboard(i18n.T(lang, "btn_watch"), url)
}
