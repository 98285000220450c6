package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON produces a stable byte form of v: the value is round-tripped
// through encoding/json so that all objects become maps, whose keys
// encoding/json emits in sorted order. time.Time values settle into their
// RFC 3339 string form on the first pass.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to canonicalize value: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to re-marshal value: %w", err)
	}

	return canonical, nil
}

// Key builds the content-addressed cache key for an agent input:
// {prefix}:{agent}:{md5 of canonical input}.
func Key(prefix, agent string, input any) (string, error) {
	canonical, err := CanonicalJSON(input)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(canonical)
	return fmt.Sprintf("%s:%s:%s", prefix, agent, hex.EncodeToString(sum[:])), nil
}
