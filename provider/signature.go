package provider

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Digest computes the keyed hash of data under the given algorithm and
// encoding. For plain hash algorithms the secret is expected to already be
// part of data (per the profile's secret placement); for HMAC variants the
// secret is the key and data is hashed as-is.
func Digest(alg HashAlgorithm, enc DigestEncoding, secret, data string) (string, error) {
	var h hash.Hash
	switch alg {
	case AlgMD5:
		h = md5.New()
	case AlgSHA1:
		h = sha1.New()
	case AlgSHA256:
		h = sha256.New()
	case AlgSHA512:
		h = sha512.New()
	case AlgHMACMD5:
		h = hmac.New(md5.New, []byte(secret))
	case AlgHMACSHA256:
		h = hmac.New(sha256.New, []byte(secret))
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", alg)
	}
	h.Write([]byte(data))
	sum := h.Sum(nil)

	switch enc {
	case EncodingHexLower:
		return hex.EncodeToString(sum), nil
	case EncodingHexUpper:
		return strings.ToUpper(hex.EncodeToString(sum)), nil
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(sum), nil
	default:
		return "", fmt.Errorf("unsupported digest encoding %d", enc)
	}
}

// Sign canonicalizes the field set under the profile and computes its
// signature with the shared secret.
func Sign(fields FieldSet, profile *Profile, secret string) (string, error) {
	canonical, err := Canonicalize(fields, profile, secret)
	if err != nil {
		return "", err
	}
	return Digest(profile.Algorithm, profile.Encoding, secret, canonical)
}

// Verify recomputes the signature over the received field set (minus the
// signature field, which the profile excludes) and compares it to the claimed
// value in constant time. A false result means the input is untrusted and no
// state transition may occur.
func Verify(fields FieldSet, claimed string, profile *Profile, secret string) (bool, error) {
	expected, err := Sign(fields, profile, secret)
	if err != nil {
		return false, err
	}
	return EqualDigests(expected, claimed, profile.Encoding), nil
}

// EqualDigests compares two encoded digests in constant time, normalizing
// case for hex encodings first.
func EqualDigests(a, b string, enc DigestEncoding) bool {
	if enc == EncodingHexLower || enc == EncodingHexUpper {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
