package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned when a token is malformed, expired, or
// signed with the wrong key.
var ErrInvalidCredential = errors.New("invalid credential")

// CredentialPair is the access/refresh token pair attached to a session.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"` // "access" or "refresh"
}

// TokenProvider issues and verifies session credential pairs as HS256 JWTs.
type TokenProvider struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given HMAC secret.
func NewTokenProvider(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue mints an access/refresh pair for accountID. The returned ExpiresAt is
// the access token expiry; the refresh token lives refreshTTL.
func (p *TokenProvider) Issue(accountID string) (*CredentialPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(p.accessTTL)
	access, err := p.sign(accountID, "access", now, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, err := p.sign(accountID, "refresh", now, now.Add(p.refreshTTL))
	if err != nil {
		return nil, err
	}
	return &CredentialPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: accessExp}, nil
}

// Verify parses and validates a refresh token (signature, exp, iss, kind) and
// returns the account id it was issued for. Returns ErrInvalidCredential on
// any failure.
func (p *TokenProvider) Verify(refreshToken string) (string, error) {
	return p.parse(refreshToken, "refresh")
}

// VerifyAccess parses and validates an access token and returns the account id.
func (p *TokenProvider) VerifyAccess(accessToken string) (string, error) {
	return p.parse(accessToken, "access")
}

func (p *TokenProvider) parse(tokenString, kind string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return p.secret, nil
	})
	if err != nil {
		return "", ErrInvalidCredential
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidCredential
	}
	if claims.Issuer != p.issuer || claims.Kind != kind || claims.Subject == "" {
		return "", ErrInvalidCredential
	}
	return claims.Subject, nil
}

func (p *TokenProvider) sign(accountID, kind string, now, exp time.Time) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Kind: kind,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(p.secret)
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
