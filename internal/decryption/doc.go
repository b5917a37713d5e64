// Package decryption turns QMC2 tracks on disk into plain audio files.
// It locates the tail record, unwraps the content key, streams the payload
// through the selected cipher and writes the result atomically next to the input.
// Files are processed concurrently; each file has its own session.
package decryption
