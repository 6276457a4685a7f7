package oidc

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// clockSkewLeeway is the fixed allowance for exp/nbf timing checks.
const clockSkewLeeway = 15 * time.Second

// AlgNone is recorded as the signing algorithm when the provider returned an
// already-decoded (unsigned) claim set instead of a JWT string.
const AlgNone = "none"

// ClaimError tags a failed ID token check with the claim it concerns.
type ClaimError struct {
	Claim  string
	Reason string
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("id token claim %q: %s", e.Claim, e.Reason)
}

func claimErr(claim, format string, args ...any) *ClaimError {
	return &ClaimError{Claim: claim, Reason: fmt.Sprintf(format, args...)}
}

// IDTokenParams holds the token and the attempt-bound expectations to
// validate it against.
type IDTokenParams struct {
	// IDToken is either a signed JWT string or an already-decoded claim
	// object (map[string]any) for providers returning unsigned claims.
	IDToken     any
	Issuer      string
	ClientID    string
	Nonce       string
	SigningAlgs []string
	ACRValues   []string // optional; empty disables the acr check
}

// Identity is the validated claim set an ID token asserts about a user.
// Derived, never persisted directly.
type Identity struct {
	Subject       string
	Issuer        string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
}

// ValidatedIDToken is the outcome of a successful validation.
type ValidatedIDToken struct {
	Encoded  string
	Alg      string
	Claims   map[string]any
	Identity Identity
}

// ValidateIDToken runs the full claim validation sequence. Checks run in a
// fixed order and every failure is terminal; the order exists for diagnostics
// only, no check is skippable.
func ValidateIDToken(p IDTokenParams) (*ValidatedIDToken, error) {
	if p.IDToken == nil {
		return nil, claimErr("id_token", "no ID token supplied")
	}

	var (
		claims  map[string]any
		alg     string
		encoded string
	)
	switch tok := p.IDToken.(type) {
	case string:
		if tok == "" {
			return nil, claimErr("id_token", "no ID token supplied")
		}
		parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
		if err != nil {
			return nil, fmt.Errorf("id token is neither a claim object nor a signed JWT: %w", err)
		}
		claims = parsed.Claims.(jwt.MapClaims)
		alg, _ = parsed.Header["alg"].(string)
		encoded = tok
	case map[string]any:
		claims = tok
		alg = AlgNone
		b, err := json.Marshal(tok)
		if err != nil {
			return nil, fmt.Errorf("id token is neither a claim object nor a signed JWT: %w", err)
		}
		encoded = string(b)
	default:
		return nil, claimErr("id_token", "unsupported token type %T", p.IDToken)
	}

	// 1. Required-claims presence, in order.
	for _, name := range []string{"sub", "iat", "iss", "aud", "exp", "nonce"} {
		if !hasClaim(claims, name) {
			return nil, claimErr(name, "missing from ID token")
		}
	}
	if alg == "" {
		return nil, claimErr("alg", "missing from ID token header")
	}

	// 2. Issuer must match exactly.
	iss, _ := claims["iss"].(string)
	if iss != p.Issuer {
		return nil, claimErr("iss", "%q does not match expected issuer %q", iss, p.Issuer)
	}

	// 3. Audience: single string must equal the client id; an array must
	// contain it, and with multiple entries azp must name the client.
	switch aud := claims["aud"].(type) {
	case string:
		if aud != p.ClientID {
			return nil, claimErr("aud", "%q does not match expected audience %q", aud, p.ClientID)
		}
	case []any:
		if !slices.ContainsFunc(aud, func(v any) bool { s, ok := v.(string); return ok && s == p.ClientID }) {
			return nil, claimErr("aud", "%v does not include expected audience %q", aud, p.ClientID)
		}
		if len(aud) > 1 {
			azp, _ := claims["azp"].(string)
			if azp == "" {
				return nil, claimErr("azp", "missing from ID token; required when there are multiple audiences")
			}
			if azp != p.ClientID {
				return nil, claimErr("azp", "%q does not match expected authorized party %q", azp, p.ClientID)
			}
		}
	default:
		return nil, claimErr("aud", "has unexpected type %T", claims["aud"])
	}

	// 4. Signing algorithm must be issuer-advertised.
	if !slices.Contains(p.SigningAlgs, alg) {
		return nil, claimErr("alg", "%q is not one of the supported algorithms %v", alg, p.SigningAlgs)
	}

	// 5. Nonce must match the value bound to this attempt.
	nonce, _ := claims["nonce"].(string)
	if nonce != p.Nonce {
		return nil, claimErr("nonce", "%q does not match the nonce bound to this attempt", nonce)
	}

	// 6. acr, when asserted and when the issuer advertises supported values.
	if acr, ok := claims["acr"].(string); ok && acr != "" && len(p.ACRValues) > 0 {
		if !slices.Contains(p.ACRValues, acr) {
			return nil, claimErr("acr", "%q is not one of the supported acr values %v", acr, p.ACRValues)
		}
	}

	// 7. Timing, with a fixed clock-skew leeway.
	now := time.Now()
	exp, ok := numericClaim(claims, "exp")
	if !ok {
		return nil, claimErr("exp", "is not a number")
	}
	if now.After(time.Unix(int64(exp), 0).Add(clockSkewLeeway)) {
		return nil, claimErr("exp", "token expired at %s", time.Unix(int64(exp), 0).UTC().Format(time.RFC3339))
	}
	if nbf, ok := numericClaim(claims, "nbf"); ok {
		if now.Before(time.Unix(int64(nbf), 0).Add(-clockSkewLeeway)) {
			return nil, claimErr("nbf", "token is not valid before %s", time.Unix(int64(nbf), 0).UTC().Format(time.RFC3339))
		}
	}

	return &ValidatedIDToken{
		Encoded:  encoded,
		Alg:      alg,
		Claims:   claims,
		Identity: identityFromClaims(claims),
	}, nil
}

func hasClaim(claims map[string]any, name string) bool {
	v, ok := claims[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

func numericClaim(claims map[string]any, name string) (float64, bool) {
	switch v := claims[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func identityFromClaims(claims map[string]any) Identity {
	str := func(name string) string { s, _ := claims[name].(string); return s }
	verified, _ := claims["email_verified"].(bool)
	return Identity{
		Subject:       str("sub"),
		Issuer:        str("iss"),
		Email:         str("email"),
		EmailVerified: verified,
		Name:          str("name"),
		GivenName:     str("given_name"),
		FamilyName:    str("family_name"),
	}
}
