package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
)

// PostContent announces a content item in the group with a Download button
// pointing at the bot's deep link. A non-zero threadID targets a forum topic.
func (c *Client) PostContent(ctx context.Context, content models.Content, downloadLink string, threadID int) (int, error) {
	kb := buttonKeyboard(i18n.T(i18n.DefaultLanguage, "btn_download"), downloadLink)
	group := tu.ID(c.groupID)

	var (
		msg *telego.Message
		err error
	)
	if content.ThumbnailFileID != "" {
		params := tu.Photo(group, tu.FileFromID(content.ThumbnailFileID)).
			WithCaption(Caption(content)).
			WithParseMode(telego.ModeHTML).
			WithReplyMarkup(kb)
		if threadID != 0 {
			params = params.WithMessageThreadID(threadID)
		}
		msg, err = c.bot.SendPhoto(ctx, params)
	} else {
		params := tu.Message(group, Caption(content)).
			WithParseMode(telego.ModeHTML).
			WithReplyMarkup(kb)
		if threadID != 0 {
			params = params.WithMessageThreadID(threadID)
		}
		msg, err = c.bot.SendMessage(ctx, params)
	}
	if err != nil {
		return 0, fmt.Errorf("post to group thread %d: %w", threadID, err)
	}
	return msg.MessageID, nil
}

// CreateTopic opens a forum topic in the group and returns its thread id.
func (c *Client) CreateTopic(ctx context.Context, name string) (int, error) {
	topic, err := c.bot.CreateForumTopic(ctx, &telego.CreateForumTopicParams{
		ChatID: tu.ID(c.groupID),
		Name:   name,
	})
	if err != nil {
		return 0, fmt.Errorf("create forum topic %q: %w", name, err)
	}
	return topic.MessageThreadID, nil
}
