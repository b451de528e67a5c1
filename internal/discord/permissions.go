package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"bantrap/internal/platform"
)

// maxDeleteDays is the largest message history Discord removes on ban.
const maxDeleteDays = 7

// GuildPermissions computes a member's guild-level permission bits: the
// owner has every permission, everyone else gets the union of @everyone and
// their roles.
func GuildPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}

	memberRoles := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		memberRoles[id] = struct{}{}
	}

	var perms int64
	for _, role := range guild.Roles {
		if role == nil {
			continue
		}
		if _, ok := memberRoles[role.ID]; ok || role.ID == guild.ID {
			perms |= role.Permissions
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// Capabilities maps Discord permission bits to moderation capabilities.
func Capabilities(perms int64) platform.Capabilities {
	var caps platform.Capabilities
	if perms&discordgo.PermissionAdministrator != 0 {
		caps |= platform.CapAdminister
	}
	if perms&discordgo.PermissionBanMembers != 0 {
		caps |= platform.CapBanMembers
	}
	return caps
}

// DeleteMessageDays converts a retention window to whole days of history,
// rounded down and capped at the Discord maximum.
func DeleteMessageDays(window time.Duration) int {
	if window <= 0 {
		return 0
	}
	days := int(window / (24 * time.Hour))
	if days > maxDeleteDays {
		return maxDeleteDays
	}
	return days
}
