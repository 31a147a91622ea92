package provider

import "strings"

// HashAlgorithm identifies the keyed hash a gateway uses for signatures.
type HashAlgorithm string

const (
	AlgMD5        HashAlgorithm = "md5"
	AlgSHA1       HashAlgorithm = "sha1"
	AlgSHA256     HashAlgorithm = "sha256"
	AlgSHA512     HashAlgorithm = "sha512"
	AlgHMACMD5    HashAlgorithm = "hmac-md5"
	AlgHMACSHA256 HashAlgorithm = "hmac-sha256"
)

// SecretPlacement declares where the shared secret enters the canonical
// string. Gateways differ here more than anywhere else, so it is an explicit
// profile parameter rather than something inferred.
type SecretPlacement int

const (
	// SecretSuffix appends the secret once, after the whole concatenation.
	SecretSuffix SecretPlacement = iota
	// SecretPerField appends the secret after every KEY=VALUE pair.
	SecretPerField
	// SecretHMACKey keeps the secret out of the canonical string; the signer
	// uses it as the HMAC key instead.
	SecretHMACKey
)

// DigestEncoding declares how the digest bytes are rendered.
type DigestEncoding int

const (
	EncodingHexLower DigestEncoding = iota
	EncodingHexUpper
	EncodingBase64
)

// KeyCase declares the case transform applied to keys during rendering.
type KeyCase int

const (
	KeyCaseAsIs KeyCase = iota
	KeyCaseUpper
)

// Environment selects which endpoint set a gateway call targets.
type Environment string

const (
	EnvTest Environment = "test"
	EnvLive Environment = "live"
)

// StatusTable maps a gateway's native status codes to canonical payment
// states. Codes absent from the table, or mapped to NoTransition, produce no
// state change.
type StatusTable map[string]PaymentState

// Map resolves a native code. The second return is false for unknown codes.
func (t StatusTable) Map(code string) (PaymentState, bool) {
	state, ok := t[code]
	if !ok {
		return NoTransition, false
	}
	return state, true
}

// Profile is the immutable per-gateway descriptor for canonicalization,
// signing, amount handling and endpoints. Created once at start; never
// mutated afterwards, so concurrent reads need no synchronization.
type Profile struct {
	Name            string
	Algorithm       HashAlgorithm
	SecretPlacement SecretPlacement
	Encoding        DigestEncoding
	KeyCase         KeyCase
	Separator       string

	// IncludePrefixes limits canonicalization to keys carrying one of the
	// prefixes (case-insensitive). Empty means all keys are included.
	IncludePrefixes []string
	// ExcludeKeys drops specific keys from canonicalization.
	ExcludeKeys []string
	// SignatureField names the field carrying the signature itself; it is
	// always excluded from canonicalization.
	SignatureField string

	// AmountScale is the decimal scale amounts are normalized to before
	// reconciliation. MinorUnitFactor converts gateway-native integer minor
	// units to major units (0 or 1 means the gateway reports major units).
	AmountScale     int32
	MinorUnitFactor int64

	// RecoverableError allows a later successful status poll to move an
	// order out of the Error state.
	RecoverableError bool

	Statuses  StatusTable
	Endpoints map[Environment]string
}

// Endpoint returns the base URL for the environment, falling back to test.
func (p *Profile) Endpoint(env Environment) string {
	if url, ok := p.Endpoints[env]; ok {
		return url
	}
	return p.Endpoints[EnvTest]
}

// includes reports whether a key participates in canonicalization.
func (p *Profile) includes(key string) bool {
	if p.SignatureField != "" && strings.EqualFold(key, p.SignatureField) {
		return false
	}
	for _, excluded := range p.ExcludeKeys {
		if strings.EqualFold(key, excluded) {
			return false
		}
	}
	if len(p.IncludePrefixes) == 0 {
		return true
	}
	lower := strings.ToLower(key)
	for _, prefix := range p.IncludePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}
