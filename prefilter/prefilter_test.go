package prefilter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndMaybeContains(t *testing.T) {
	mBits := SizeForKeys(64, DefaultBitsPerKey)
	require.NotZero(t, mBits)
	region := make([]byte, RegionBytes(mBits))
	require.NoError(t, Init(region, mBits, DefaultK))

	keys := make([][]byte, 64)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("GET /orders/%d", i))
		require.NoError(t, Insert(region, keys[i]))
	}

	for _, k := range keys {
		ok, err := MaybeContains(region, k)
		require.NoError(t, err)
		require.True(t, ok, "inserted key reported absent: %s", k)
	}

	h, err := DecodeHeader(region)
	require.NoError(t, err)
	require.Equal(t, uint32(64), h.NInserted)

	// At ~1% fpr, 1000 unrelated keys should see only a handful of maybes.
	falsePositives := 0
	for i := 0; i < 1000; i++ {
		ok, err := MaybeContains(region, []byte(fmt.Sprintf("GET /absent/%d", i)))
		require.NoError(t, err)
		if ok {
			falsePositives++
		}
	}
	require.Less(t, falsePositives, 100)
}

func TestDecodeHeaderRejections(t *testing.T) {
	mBits := SizeForKeys(8, DefaultBitsPerKey)
	region := make([]byte, RegionBytes(mBits))
	require.NoError(t, Init(region, mBits, DefaultK))

	bad := append([]byte(nil), region...)
	bad[0] ^= 0xFF
	_, err := DecodeHeader(bad)
	require.ErrorIs(t, err, ErrBadMagic)

	bad = append([]byte(nil), region...)
	bad[4] = Version + 1
	_, err = DecodeHeader(bad)
	require.ErrorIs(t, err, ErrBadVersion)

	_, err = DecodeHeader(region[:HeaderBytes-1])
	require.ErrorIs(t, err, ErrBadRegionSize)

	// Truncated bitset.
	_, err = DecodeHeader(region[:HeaderBytes+1])
	require.ErrorIs(t, err, ErrBadRegionSize)
}

func TestSizeForKeysOverflow(t *testing.T) {
	require.Zero(t, SizeForKeys(0, DefaultBitsPerKey))
	require.Zero(t, SizeForKeys(1<<40, 1<<30))
	require.NotZero(t, SizeForKeys(100000, DefaultBitsPerKey))
}
