// Package opus handles encoding, decoding, and streaming of Opus audio frames
// for Discord voice playback.
//
// Stored sounds use a minimal binary format: concatenated length-prefixed frames
// ([uint16 LE length][opus bytes]). No headers, no metadata.
//
// Playback never sends stored frames as-is. Every source, stored or not, is
// decoded to 20ms frames of 48kHz stereo PCM so gain can be applied per frame,
// then re-encoded with an Encoder just before it is handed to the transport.
package opus
