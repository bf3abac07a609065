package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portal/internal/login"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTService signs and verifies HS256 tokens. Hand-off tokens come from the
// auth redirect service; cookie tokens wrap values kept in browser cookies.
type JWTService struct {
	secret     []byte
	issuer     string
	handoffTTL time.Duration
}

// HandoffClaims carry a login record from the auth redirect service.
type HandoffClaims struct {
	Login *login.Data `json:"login"`
	jwt.RegisteredClaims
}

type cookieClaims struct {
	Value string `json:"v"`
	jwt.RegisteredClaims
}

func NewJWTService(secret, issuer string, handoffTTL time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		issuer:     issuer,
		handoffTTL: handoffTTL,
	}
}

// SignHandoff issues a hand-off token the way the auth redirect service does.
// The portal only verifies these; signing exists for tooling and tests.
func (s *JWTService) SignHandoff(d *login.Data) (string, error) {
	now := time.Now()
	claims := HandoffClaims{
		Login: d,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(d.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.handoffTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing handoff token: %w", err)
	}
	return token, nil
}

func (s *JWTService) ValidateHandoff(tokenString string) (*login.Data, error) {
	claims := &HandoffClaims{}
	if err := s.parse(tokenString, claims, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired()); err != nil {
		return nil, err
	}
	if claims.Login == nil {
		return nil, fmt.Errorf("%w: missing login claim", ErrInvalidToken)
	}
	return claims.Login, nil
}

// SealCookie wraps a stored value in a signed token. A zero ttl issues a
// token without expiry.
func (s *JWTService) SealCookie(value string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := cookieClaims{
		Value: value,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing cookie token: %w", err)
	}
	return token, nil
}

func (s *JWTService) OpenCookie(tokenString string) (string, error) {
	claims := &cookieClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return "", err
	}
	return claims.Value, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}
	return nil
}
