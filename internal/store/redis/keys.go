package redis

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// KeyPrefixMetadata is the prefix for cached page metadata
	KeyPrefixMetadata = "stash:meta:"
)

// MetadataKey returns the Redis key for the metadata of url. URLs are
// hashed to keep keys short and free of separators.
func MetadataKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return KeyPrefixMetadata + hex.EncodeToString(hash[:])
}
