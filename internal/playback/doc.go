// Package playback runs one actor per guild. Each actor owns that guild's
// queue, currently playing request, volume and voice connection, and applies
// every mutation in the order it was submitted. Guilds never share locks.
package playback
