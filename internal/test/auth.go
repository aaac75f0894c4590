package test

import (
	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
)

// StrategyStub issues and parses tokens via function overrides.
type StrategyStub struct {
	IssueFn func(pkgAuth.Principal) (string, error)
	ParseFn func(string) (pkgAuth.Principal, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(p pkgAuth.Principal) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(p)
	}
	return "token", nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (pkgAuth.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return pkgAuth.Principal{}, pkgAuth.ErrInvalidToken
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// TokenTable maps fixed tokens to principals.
func TokenTable(tokens map[string]pkgAuth.Principal) StrategyStub {
	return StrategyStub{ParseFn: func(token string) (pkgAuth.Principal, error) {
		if p, ok := tokens[token]; ok {
			return p, nil
		}
		return pkgAuth.Principal{}, pkgAuth.ErrInvalidToken
	}}
}

var _ pkgAuth.Strategy = StrategyStub{}
