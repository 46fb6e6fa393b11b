package recommend

import "errors"

// Typed lifecycle errors. The state machine consumes these to decide its
// fallback (restore failure -> train, train failure -> stay empty) instead of
// swallowing arbitrary errors.
var (
	// ErrStoreUnavailable wraps course store failures during train/restore.
	ErrStoreUnavailable = errors.New("course store unavailable")
	// ErrRegistryMiss means no persisted model artifact exists yet.
	ErrRegistryMiss = errors.New("model registry miss")
	// ErrDecodeModel means a persisted artifact exists but cannot be decoded.
	ErrDecodeModel = errors.New("model artifact decode failed")
	// ErrEmptyCorpus means the catalog has no courses to train on.
	ErrEmptyCorpus = errors.New("no courses available for training")
)
