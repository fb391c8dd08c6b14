package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/kasupel/server/internal/core"
)

var imageMagic = [][]byte{
	{0x89, 'P', 'N', 'G'},        // png (offset 1)
	{0xFF, 0xD8, 0xFF},           // jpeg
	{'G', 'I', 'F', '8'},         // gif
	{'R', 'I', 'F', 'F'},         // webp (RIFF....WEBP)
}

// isSupportedImage sniffs the magic bytes spec §6 allows for an avatar
// upload: png, jpeg, gif, webp.
func isSupportedImage(data []byte) bool {
	for _, magic := range imageMagic {
		if bytes.HasPrefix(data, magic) {
			return true
		}
	}
	return false
}

// storeAvatarBlob is the only touch point with the media server spec §1
// names as an out-of-scope external collaborator: it derives a
// content-addressed blob id so callers have something stable to store
// in avatar_blob_id without this repo owning a media store itself.
func storeAvatarBlob(data []byte) (string, error) {
	if len(data) == 0 {
		return "", core.NewError(core.CodeMediaNotFound, "empty avatar payload")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
