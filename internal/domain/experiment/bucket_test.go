package experiment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig(split int) Config {
	return Config{
		ControlVersion:      "v1",
		TestVersion:         "v2",
		TrafficSplitPercent: split,
	}
}

func TestSelectVersion_Stable(t *testing.T) {
	cfg := testConfig(30)

	first := SelectVersion("company_fit", "entity-42", cfg)
	for i := 0; i < 100; i++ {
		again := SelectVersion("company_fit", "entity-42", cfg)
		assert.Equal(t, first, again)
	}
}

func TestSelectVersion_ScopedByTool(t *testing.T) {
	// The same entity may bucket differently per tool; at minimum the
	// buckets must be independently computed.
	b1 := ComputeBucket("company_fit", "entity-42")
	b2 := ComputeBucket("engagement", "entity-42")
	assert.GreaterOrEqual(t, b1, 0)
	assert.GreaterOrEqual(t, b2, 0)
	assert.Less(t, b1, BucketCount)
	assert.Less(t, b2, BucketCount)
}

func TestSelectVersion_SplitDistribution(t *testing.T) {
	cfg := testConfig(30)
	test := 0
	total := 10000

	for i := 0; i < total; i++ {
		a := SelectVersion("company_fit", fmt.Sprintf("entity-%d", i), cfg)
		if a.Group == GroupTest {
			test++
			assert.Equal(t, "v2", a.Version)
		} else {
			assert.Equal(t, "v1", a.Version)
		}
	}

	// Empirical split within +/- 2 points of the configured 30%.
	ratio := float64(test) / float64(total) * 100
	assert.InDelta(t, 30, ratio, 2)
}

func TestSelectVersion_BoundarySplits(t *testing.T) {
	allControl := testConfig(0)
	allTest := testConfig(100)

	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("entity-%d", i)
		assert.Equal(t, GroupControl, SelectVersion("t", id, allControl).Group)
		assert.Equal(t, GroupTest, SelectVersion("t", id, allTest).Group)
	}
}

func TestSelectVersion_MissingEntityID(t *testing.T) {
	cfg := testConfig(99)

	// No entity identity always resolves to control, deterministically.
	for i := 0; i < 10; i++ {
		a := SelectVersion("company_fit", "", cfg)
		assert.Equal(t, GroupControl, a.Group)
		assert.Equal(t, "v1", a.Version)
	}
}

func TestComputeBucket_Distribution(t *testing.T) {
	buckets := make(map[int]int)
	for i := 0; i < 10000; i++ {
		buckets[ComputeBucket("tool", fmt.Sprintf("entity-%d", i))]++
	}

	used := 0
	for _, count := range buckets {
		if count > 0 {
			used++
		}
	}
	assert.GreaterOrEqual(t, used, 95, "nearly all buckets should be populated")
}
