package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Session is the subset of *discordgo.Session the bot calls. Tests provide
// a fake.
type Session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

var _ Session = (*discordgo.Session)(nil)

// moderatorPermissions grant the moderator capability.
const moderatorPermissions = discordgo.PermissionModerateMembers |
	discordgo.PermissionBanMembers |
	discordgo.PermissionAdministrator

// IsModerator reports whether userID holds any moderator permission in
// channelID. Lookup failures count as not a moderator.
func IsModerator(s Session, userID, channelID string) bool {
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&moderatorPermissions != 0
}
