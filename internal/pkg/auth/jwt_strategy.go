package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTStrategy verifies HS256 JWTs whose subject is the user ID and whose
// role claim is vendor or customer.
type JWTStrategy struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewJWTStrategy builds JWTStrategy with provided secret and options.
func NewJWTStrategy(secret string, opts Options) *JWTStrategy {
	return &JWTStrategy{
		secret: []byte(secret),
		ttl:    opts.ttl(),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (s *JWTStrategy) IssueToken(p Principal) (string, error) {
	if !validPrincipal(p) {
		return "", ErrInvalidToken
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(s.secret)
}

func (s *JWTStrategy) ParseToken(token string) (Principal, error) {
	var c claims
	parsed, err := s.parser.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	p := Principal{ID: c.Subject, Role: model.Role(c.Role)}
	if !validPrincipal(p) {
		return Principal{}, ErrInvalidToken
	}
	return p, nil
}

func (s *JWTStrategy) Name() string {
	return "jwt"
}
