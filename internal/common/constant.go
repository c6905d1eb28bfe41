package common

// DefaultVersionName is the version every attachment type carries and the
// one URL lookups fall back to.
const DefaultVersionName = "original"

// ChunkSize bounds every streaming copy (downloads, pass-through processing,
// local saves).
const ChunkSize = 1 << 16
