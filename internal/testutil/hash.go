package testutil

import (
	"crypto/md5"
	"encoding/hex"
)

// MD5Hex returns the MD5 checksum of data as a lowercase hex string, the
// content hash format files are reserved under.
func MD5Hex(data []byte) string {
	h := md5.Sum(data)
	return hex.EncodeToString(h[:])
}
