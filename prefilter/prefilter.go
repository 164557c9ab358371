// Package prefilter implements the optional negative-lookup region of a
// route table artifact: a Bloom filter over the canonical (method, path)
// keys of methods whose routes are all literal. For those methods a definite
// miss answers "no route" in O(1) without touching the trie.
package prefilter

import (
	"crypto/sha256"
	"errors"
)

const (
	Magic   = "RPF1"
	Version = uint8(1)

	// HeaderBytes is the fixed region header size.
	HeaderBytes = 24

	// BitOrderLSB0 means bit 0 is the least-significant bit of byte 0. It is
	// the only bit order this version defines.
	BitOrderLSB0 = uint8(0)

	// DefaultBitsPerKey and DefaultK give a false positive rate around 1%.
	DefaultBitsPerKey = 10
	DefaultK          = uint8(4)

	filterDomain = 0xF7
)

var (
	ErrBadRegionSize  = errors.New("prefilter: region buffer size invalid")
	ErrBadMagic       = errors.New("prefilter: header magic invalid")
	ErrBadVersion     = errors.New("prefilter: header version invalid")
	ErrBadK           = errors.New("prefilter: header k invalid")
	ErrBadMBits       = errors.New("prefilter: header mBits invalid")
	ErrMBitsOverflow  = errors.New("prefilter: mBits overflows supported range")
	ErrNotInitialized = errors.New("prefilter: header not initialized")
)

// Header is the decoded form of a prefilter region header.
//
// .     | magic | version | k | bitOrder | rsvd | mBits | nInserted | rsvd  |
// bytes | 0:4   | 4       | 5 | 6        | 7    | 8:12  | 12:16     | 16:24 |
type Header struct {
	K         uint8
	MBits     uint32
	NInserted uint32
}

// RegionBytes returns the total region size for mBits filter bits.
func RegionBytes(mBits uint32) uint64 {
	return uint64(HeaderBytes) + uint64(bitsetBytes(mBits))
}

// SizeForKeys returns the mBits to allocate for keyCount keys at
// bitsPerKey bits each, or 0 if the product does not fit in uint32.
func SizeForKeys(keyCount uint64, bitsPerKey uint64) uint32 {
	if keyCount == 0 || bitsPerKey == 0 {
		return 0
	}
	mBits64 := keyCount * bitsPerKey
	if mBits64/bitsPerKey != keyCount || mBits64 > uint64(^uint32(0)) {
		return 0
	}
	return uint32(mBits64)
}

func bitsetBytes(mBits uint32) uint32 { return (mBits + 7) / 8 }

// Init initializes region with a header for mBits filter bits and k probes.
// The caller allocates region with RegionBytes(mBits).
func Init(region []byte, mBits uint32, k uint8) error {
	if mBits == 0 {
		return ErrBadMBits
	}
	if k == 0 {
		return ErrBadK
	}
	if uint64(len(region)) < RegionBytes(mBits) {
		return ErrBadRegionSize
	}
	clear(region[:RegionBytes(mBits)])
	return encodeHeader(region, Header{K: k, MBits: mBits})
}

func encodeHeader(region []byte, h Header) error {
	if len(region) < HeaderBytes {
		return ErrBadRegionSize
	}
	copy(region[0:4], Magic)
	region[4] = Version
	region[5] = h.K
	region[6] = BitOrderLSB0
	region[7] = 0
	writeU32BE(region[8:12], h.MBits)
	writeU32BE(region[12:16], h.NInserted)
	clear(region[16:HeaderBytes])
	return nil
}

// DecodeHeader decodes and checks a region header.
func DecodeHeader(region []byte) (Header, error) {
	if len(region) < HeaderBytes {
		return Header{}, ErrBadRegionSize
	}
	if string(region[0:4]) != Magic {
		return Header{}, ErrBadMagic
	}
	if region[4] != Version {
		return Header{}, ErrBadVersion
	}
	h := Header{
		K:         region[5],
		MBits:     readU32BE(region[8:12]),
		NInserted: readU32BE(region[12:16]),
	}
	if h.K == 0 {
		return Header{}, ErrBadK
	}
	if h.MBits == 0 {
		return Header{}, ErrBadMBits
	}
	if uint64(len(region)) < RegionBytes(h.MBits) {
		return Header{}, ErrBadRegionSize
	}
	return h, nil
}

// Insert adds key to the filter and increments the inserted counter.
func Insert(region []byte, key []byte) error {
	h, err := DecodeHeader(region)
	if err != nil {
		return err
	}
	bitset := region[HeaderBytes:RegionBytes(h.MBits)]
	h1, h2 := hashPair(key)
	setBitsLSB0(bitset, uint64(h.MBits), h.K, h1, h2)
	h.NInserted++
	return encodeHeader(region, h)
}

// MaybeContains checks membership for key.
//
// Returns (false, nil) when the filter says "definitely not present" and
// (true, nil) when it says "maybe present".
func MaybeContains(region []byte, key []byte) (bool, error) {
	h, err := DecodeHeader(region)
	if err != nil {
		return false, err
	}
	bitset := region[HeaderBytes:RegionBytes(h.MBits)]
	h1, h2 := hashPair(key)
	return testBitsLSB0(bitset, uint64(h.MBits), h.K, h1, h2), nil
}

func hashPair(key []byte) (h1 uint64, h2 uint64) {
	// SHA-256( 0xF7 || key ), split into two 64 bit probe seeds.
	hasher := sha256.New()
	hasher.Write([]byte{filterDomain})
	hasher.Write(key)
	sum := hasher.Sum(nil)
	h1 = readU64BE(sum[0:8])
	h2 = readU64BE(sum[8:16])
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func setBitsLSB0(bitset []byte, mBits uint64, k uint8, h1, h2 uint64) {
	for i := uint64(0); i < uint64(k); i++ {
		j := (h1 + i*h2) % mBits
		bitset[j>>3] |= 1 << uint8(j&7)
	}
}

func testBitsLSB0(bitset []byte, mBits uint64, k uint8, h1, h2 uint64) bool {
	for i := uint64(0); i < uint64(k); i++ {
		j := (h1 + i*h2) % mBits
		if bitset[j>>3]&(1<<uint8(j&7)) == 0 {
			return false
		}
	}
	return true
}
