package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// CreateInvite creates a single-member invite link for the group.
func (c *Client) CreateInvite(ctx context.Context, expireAt time.Time) (string, error) {
	link, err := c.bot.CreateChatInviteLink(ctx, &telego.CreateChatInviteLinkParams{
		ChatID:      tu.ID(c.groupID),
		ExpireDate:  expireAt.Unix(),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	return link.InviteLink, nil
}

func (c *Client) RevokeInvite(ctx context.Context, link string) error {
	_, err := c.bot.RevokeChatInviteLink(ctx, &telego.RevokeChatInviteLinkParams{
		ChatID:     tu.ID(c.groupID),
		InviteLink: link,
	})
	if err != nil {
		return fmt.Errorf("revoke invite link: %w", err)
	}
	return nil
}

func (c *Client) Approve(ctx context.Context, userID int64) error {
	err := c.bot.ApproveChatJoinRequest(ctx, &telego.ApproveChatJoinRequestParams{
		ChatID: tu.ID(c.groupID),
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("approve join request: %w", err)
	}
	return nil
}

func (c *Client) Decline(ctx context.Context, userID int64) error {
	err := c.bot.DeclineChatJoinRequest(ctx, &telego.DeclineChatJoinRequestParams{
		ChatID: tu.ID(c.groupID),
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("decline join request: %w", err)
	}
	return nil
}
