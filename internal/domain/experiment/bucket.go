// Package experiment provides deterministic traffic bucketing for
// rule-version A/B experiments. Assignment is a pure function of
// (tool, entity, config): no state is stored and repeated queries for
// the same entity always land in the same bucket.
package experiment

import (
	"encoding/binary"
)

// BucketCount is the number of traffic buckets (0-99).
const BucketCount = 100

// missingEntitySentinel stands in when a caller has no stable entity
// identity; such requests deterministically resolve to control.
const missingEntitySentinel = "__no_entity__"

// Config describes one tool's experiment: which schema version is the
// control, which is under test, and what share of traffic the test
// version receives.
type Config struct {
	ControlVersion      string
	TestVersion         string
	TrafficSplitPercent int // 0-100, share assigned to TestVersion
}

// Assignment is the resolved bucket for one entity.
type Assignment struct {
	Version string
	Group   string // "control" or "test"
	Bucket  int
}

const (
	GroupControl = "control"
	GroupTest    = "test"
)

// SelectVersion deterministically assigns an entity to a schema version.
// The hash is scoped by tool name so the same entity can land in
// different groups for different tools, and changing the split percent
// moves a predictable slice of entities without stored assignments.
func SelectVersion(toolName, entityID string, cfg Config) Assignment {
	if entityID == "" {
		// No stable identity to hash; control is the safe arm.
		entityID = missingEntitySentinel
		return Assignment{
			Version: cfg.ControlVersion,
			Group:   GroupControl,
			Bucket:  ComputeBucket(toolName, entityID),
		}
	}

	bucket := ComputeBucket(toolName, entityID)
	if bucket < cfg.TrafficSplitPercent {
		return Assignment{Version: cfg.TestVersion, Group: GroupTest, Bucket: bucket}
	}
	return Assignment{Version: cfg.ControlVersion, Group: GroupControl, Bucket: bucket}
}

// ComputeBucket maps (toolName, entityID) to a bucket in [0, 100).
// Uses a pure-Go MurmurHash3 so results are identical across platforms.
func ComputeBucket(toolName, entityID string) int {
	h := murmur3Hash32([]byte(toolName+":"+entityID), 0)
	return int(h % BucketCount)
}

// murmur3Hash32 implements the MurmurHash3 32-bit hash algorithm.
func murmur3Hash32(data []byte, seed uint32) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
		r1 = 15
		r2 = 13
		m  = 5
		n  = 0xe6546b64
	)

	h := seed
	length := len(data)
	nblocks := length / 4

	for i := 0; i < nblocks; i++ {
		k := binary.LittleEndian.Uint32(data[i*4:])

		k *= c1
		k = rotl32(k, r1)
		k *= c2

		h ^= k
		h = rotl32(h, r2)
		h = h*m + n
	}

	tail := data[nblocks*4:]
	var k1 uint32

	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = rotl32(k1, r1)
		k1 *= c2
		h ^= k1
	}

	h ^= uint32(length)
	h = fmix32(h)

	return h
}

// rotl32 performs a 32-bit left rotation
func rotl32(x uint32, r uint8) uint32 {
	return (x << r) | (x >> (32 - r))
}

// fmix32 is the finalization mix function for MurmurHash3
func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
