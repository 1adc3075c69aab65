package token

import (
	"encoding/binary"
	"sort"
	"strconv"
)

// encodeGeoClaims produces the canonical, length-prefixed byte
// encoding that MintGeoToken signs over. The source this spec is
// drawn from stringifies a Python tuple, which isn't portable across
// implementations; this is the conforming implementation's own
// encoding, documented here rather than assumed interoperable.
//
// Layout: field, field, ... where each field is a uint32 big-endian
// length followed by that many bytes. Params are sorted by key so the
// encoding is deterministic regardless of map iteration order.
func encodeGeoClaims(c GeoClaims) []byte {
	var buf []byte
	buf = appendField(buf, []byte(c.App))
	buf = appendField(buf, []byte(c.Point))
	buf = appendField(buf, []byte(strconv.Itoa(int(c.Method))))

	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf = appendField(buf, []byte(k))
		buf = appendField(buf, []byte(c.Params[k]))
	}

	buf = appendField(buf, []byte(strconv.FormatInt(c.ExpireAt.UnixNano(), 10)))
	return buf
}

func appendField(buf, field []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(field)))
	buf = append(buf, length[:]...)
	buf = append(buf, field...)
	return buf
}
