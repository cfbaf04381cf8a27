// Package chat is the Twitch chat surface of the bot.
//
// It provides two entrypoints:
//   - Bot: connects to Twitch IRC for TWITCH_CHANNEL and answers "!live [flux]" and
//     "!agenda [day|week] [DD/MM/YYYY]" with one-line summaries.
//   - Announcer: runs on a cron schedule, resolves the segment on air for every live
//     flux and posts a message when it changes. The last announced segment per flux is
//     kept in a Store (the kv table in production) so restarts do not repeat themselves.
//
// Credentials: the IRC client requires a bot username and an OAuth token with
// chat:read/chat:edit scopes (TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN).
package chat
