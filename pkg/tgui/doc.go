// Package tgui provides small Telegram formatting helpers:
//   - A safe-HTML type for ParseMode="HTML" captions (auto escaping)
//   - Rune-aware truncation to Telegram's message and caption limits
//
// Design goals:
//   - Safe by default: user-provided title/text/error strings are always escaped
//   - Limits live in one place so senders and report builders agree on them
package tgui
