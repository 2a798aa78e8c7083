// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigInfoAccessors(t *testing.T) {
	cfg := &fakeVBConfig{label: "v1"}
	info := newConfigInfo(cfg, KindCCCP, 7)

	assert.Same(t, cfg, info.Config())
	assert.Equal(t, KindCCCP, info.Origin())
	assert.Equal(t, int64(7), info.Clock())
	assert.Equal(t, int32(1), info.RefCount())
}

func TestConfigInfoRetainRelease(t *testing.T) {
	info := newConfigInfo(&fakeVBConfig{label: "v1"}, KindFile, 1)

	info.Retain()
	assert.Equal(t, int32(2), info.RefCount())

	info.Release()
	assert.Equal(t, int32(1), info.RefCount())
}

func TestConfigInfoReleasePastZeroPanics(t *testing.T) {
	info := newConfigInfo(&fakeVBConfig{label: "v1"}, KindFile, 1)
	info.Release()

	assert.Panics(t, func() { info.Release() })
}

func TestCompareByRevision(t *testing.T) {
	a := newConfigInfo(&fakeVBConfig{label: "a", rev: 5, hasRev: true}, KindFile, 1)
	b := newConfigInfo(&fakeVBConfig{label: "b", rev: 10, hasRev: true}, KindFile, 2)

	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(b, a))
	assert.Zero(t, Compare(a, a))
}

func TestCompareFallsBackToClock(t *testing.T) {
	a := newConfigInfo(&fakeVBConfig{label: "a"}, KindFile, 1)
	b := newConfigInfo(&fakeVBConfig{label: "b"}, KindFile, 2)

	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(b, a))
}

func TestCompareMixedRevisionFallsBackToClock(t *testing.T) {
	a := newConfigInfo(&fakeVBConfig{label: "a", rev: 5, hasRev: true}, KindFile, 9)
	b := newConfigInfo(&fakeVBConfig{label: "b"}, KindFile, 1)

	// b has no revision, so comparison falls back to clock: a.clock(9) > b.clock(1).
	assert.Positive(t, Compare(a, b))
}
