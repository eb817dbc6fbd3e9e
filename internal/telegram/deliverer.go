package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"zonarated-bot/internal/cdn"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
)

const (
	KindVideo = "video"
	KindPhoto = "photo"
	KindLink  = "link"
)

// DeliveryURL is the link handed to the user for URL content: a signed CDN
// URL when the file is on the CDN, else the shortened URL, else the raw one.
func (c *Client) DeliveryURL(content models.Content) (string, error) {
	if c.signer.Handles(content.FileURL) {
		return c.signer.Sign(content.FileURL, c.clock.Now(), cdn.DefaultExpiry)
	}
	if content.ShortenedURL != "" {
		return content.ShortenedURL, nil
	}
	return content.FileURL, nil
}

func (c *Client) Deliver(ctx context.Context, u models.User, content models.Content) (delivery.Receipt, error) {
	chat := tu.ID(u.ID)
	caption := Caption(content)

	if content.IsTelegramFile() {
		msg, err := c.bot.SendVideo(ctx, tu.Video(chat, tu.FileFromID(content.FileURL)).
			WithCaption(caption).
			WithParseMode(telego.ModeHTML))
		if err != nil {
			return delivery.Receipt{Kind: KindVideo}, fmt.Errorf("send video: %w", err)
		}
		receipt := delivery.Receipt{Kind: KindVideo}
		if msg != nil && msg.Video != nil && msg.Video.Thumbnail != nil {
			receipt.ThumbnailFileID = msg.Video.Thumbnail.FileID
		}
		return receipt, nil
	}

	url, err := c.DeliveryURL(content)
	if err != nil {
		return delivery.Receipt{Kind: KindLink}, fmt.Errorf("build delivery url: %w", err)
	}
	kb := watchButton(u.Language, url)

	if content.ThumbnailFileID != "" {
		_, err := c.bot.SendPhoto(ctx, tu.Photo(chat, tu.FileFromID(content.ThumbnailFileID)).
			WithCaption(caption).
			WithParseMode(telego.ModeHTML).
			WithReplyMarkup(kb))
		if err != nil {
			return delivery.Receipt{Kind: KindPhoto}, fmt.Errorf("send photo: %w", err)
		}
		return delivery.Receipt{Kind: KindPhoto}, nil
	}

	text := i18n.T(u.Language, "dl_video_url", i18n.Args{"title": caption})
	_, err = c.bot.SendMessage(ctx, tu.Message(chat, text).
		WithParseMode(telego.ModeHTML).
		WithReplyMarkup(kb))
	if err != nil {
		return delivery.Receipt{Kind: KindLink}, fmt.Errorf("send link: %w", err)
	}
	return delivery.Receipt{Kind: KindLink}, nil
}
