package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"doom-index/internal/domain"
)

// ComputeParamsHash computes the visual params hash.
// Formula: SHA256(canonical JSON of params), first 8 hex chars.
// Weights are rounded to 3 decimals before hashing; map keys are sorted by
// encoding/json.
func ComputeParamsHash(params domain.VisualParams) (string, error) {
	canonical, err := CanonicalParams(params)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:])[:8], nil
}

// CanonicalParams returns the canonical JSON encoding of params.
func CanonicalParams(params domain.VisualParams) ([]byte, error) {
	rounded := make(map[string]float64, len(params.Weights))
	for k, v := range params.Weights {
		rounded[k] = math.Round(v*1000) / 1000
	}
	params.Weights = rounded
	if params.Motifs == nil {
		params.Motifs = []string{}
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal visual params: %w", err)
	}
	return data, nil
}

// ComputeSeed computes the generation seed.
// Formula: SHA256(minuteBucket|paramsHash), first 12 hex chars.
func ComputeSeed(minuteBucket, paramsHash string) string {
	data := fmt.Sprintf("%s|%s", minuteBucket, paramsHash)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:12]
}

// ProviderSeed converts a seed to the provider's integer seed: the first
// 8 hex chars as uint32, masked to 31 bits.
func ProviderSeed(seed string) (int32, error) {
	if len(seed) < 8 {
		return 0, fmt.Errorf("seed %q shorter than 8 chars", seed)
	}
	v, err := strconv.ParseUint(seed[:8], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse seed %q: %w", seed, err)
	}
	return int32(uint32(v) & 0x7fffffff), nil
}
