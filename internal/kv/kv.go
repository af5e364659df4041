// Package kv provides the local key-value store used for session caching
// and for local-only persistence when no remote backend is configured.
package kv

// Store is a minimal string key-value port.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
