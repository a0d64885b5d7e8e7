package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyRallyLock(captureID, voterID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyRallyLock, captureID, voterID))
}

func (kb *KeyBuilder) KeySeasonLeaderboard() string {
	return kb.BuildKey(KeySeasonLeaderboard)
}

func (kb *KeyBuilder) KeyAttribution(windowDays int) string {
	return kb.BuildKey(fmt.Sprintf(KeyAttribution, windowDays))
}
