package instant

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// HashAnswer computes the named digest of input. Supported algorithms:
// md5, sha1, sha256, sha512.
func HashAnswer(algorithm, input string) (string, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		sum := md5.Sum([]byte(input))
		return hex.EncodeToString(sum[:]), nil
	case "sha1":
		sum := sha1.Sum([]byte(input))
		return hex.EncodeToString(sum[:]), nil
	case "sha256":
		sum := sha256.Sum256([]byte(input))
		return hex.EncodeToString(sum[:]), nil
	case "sha512":
		sum := sha512.Sum512([]byte(input))
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", types.NewError(types.KindValidation, "unsupported hash algorithm "+algorithm)
	}
}
