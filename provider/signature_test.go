package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		alg  HashAlgorithm
		enc  DigestEncoding
		data string
		want string
	}{
		{"md5 hex lower", AlgMD5, EncodingHexLower, "abc", "900150983cd24fb0d6963f7d28e17f72"},
		{"md5 hex upper", AlgMD5, EncodingHexUpper, "abc", "900150983CD24FB0D6963F7D28E17F72"},
		{"md5 base64", AlgMD5, EncodingBase64, "abc", "kAFQmDzST7DWlj99KOF/cg=="},
		{"sha1 hex lower", AlgSHA1, EncodingHexLower, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"sha256 hex lower", AlgSHA256, EncodingHexLower, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Digest(tt.alg, tt.enc, "", tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDigestSHA512Length(t *testing.T) {
	got, err := Digest(AlgSHA512, EncodingHexUpper, "", "abc")
	require.NoError(t, err)
	assert.Len(t, got, 128)
	assert.Equal(t, strings.ToUpper(got), got)
}

func TestDigestUnsupported(t *testing.T) {
	_, err := Digest("whirlpool", EncodingHexLower, "", "abc")
	assert.Error(t, err)

	_, err = Digest(AlgMD5, DigestEncoding(99), "", "abc")
	assert.Error(t, err)
}

func TestDigestHMACKeyed(t *testing.T) {
	one, err := Digest(AlgHMACSHA256, EncodingBase64, "key-a", "payload")
	require.NoError(t, err)
	two, err := Digest(AlgHMACSHA256, EncodingBase64, "key-b", "payload")
	require.NoError(t, err)
	assert.NotEqual(t, one, two)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	profiles := []*Profile{
		{Algorithm: AlgSHA1, SecretPlacement: SecretSuffix, Encoding: EncodingHexLower},
		{Algorithm: AlgSHA512, SecretPlacement: SecretPerField, Encoding: EncodingHexUpper, KeyCase: KeyCaseUpper},
		{Algorithm: AlgHMACSHA256, SecretPlacement: SecretHMACKey, Encoding: EncodingBase64},
		{Algorithm: AlgHMACMD5, SecretPlacement: SecretHMACKey, Encoding: EncodingHexLower},
	}

	fields := FieldSet{"orderid": "o-42", "amount": "100.00", "currency": "EUR"}

	for _, profile := range profiles {
		signature, err := Sign(fields, profile, "s3cret")
		require.NoError(t, err)

		ok, err := Verify(fields, signature, profile, "s3cret")
		require.NoError(t, err)
		assert.True(t, ok, "algorithm %s", profile.Algorithm)

		tampered := fields.Clone()
		tampered["amount"] = "999.00"
		ok, err = Verify(tampered, signature, profile, "s3cret")
		require.NoError(t, err)
		assert.False(t, ok, "tampered fields must not verify under %s", profile.Algorithm)

		ok, err = Verify(fields, signature, profile, "wrong")
		require.NoError(t, err)
		assert.False(t, ok, "wrong secret must not verify under %s", profile.Algorithm)
	}
}

func TestVerifyIgnoresSignatureField(t *testing.T) {
	profile := &Profile{
		Algorithm:       AlgSHA1,
		SecretPlacement: SecretSuffix,
		Encoding:        EncodingHexLower,
		SignatureField:  "signature",
	}

	fields := FieldSet{"amount": "10.00"}
	signature, err := Sign(fields, profile, "s")
	require.NoError(t, err)

	// the inbound field set carries the signature itself
	fields["signature"] = signature
	ok, err := Verify(fields, signature, profile, "s")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEqualDigests(t *testing.T) {
	assert.True(t, EqualDigests("ABCDEF", "abcdef", EncodingHexUpper))
	assert.True(t, EqualDigests("abcdef", "ABCDEF", EncodingHexLower))
	assert.False(t, EqualDigests("abcdef", "abcdea", EncodingHexLower))
	assert.False(t, EqualDigests("abc", "abcdef", EncodingHexLower))

	// base64 is case-sensitive
	assert.False(t, EqualDigests("QUJD", "qUJD", EncodingBase64))
	assert.True(t, EqualDigests("QUJD", "QUJD", EncodingBase64))
}
