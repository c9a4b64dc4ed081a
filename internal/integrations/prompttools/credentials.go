package prompttools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CredentialSource resolves the static header set.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials serves credentials supplied directly, e.g. from the
// environment.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(_ context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// Getter is the subset of paramstore.Client used to load credentials.
type Getter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

// ParamStoreCredentials loads credentials from three parameters under a
// common prefix: <prefix>/api-token, <prefix>/app-id and <prefix>/usage-key.
type ParamStoreCredentials struct {
	getter Getter
	prefix string
}

func NewParamStoreCredentials(g Getter, prefix string) (*ParamStoreCredentials, error) {
	if g == nil {
		return nil, errors.New("prompttools: paramstore getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("prompttools: parameter prefix must not be empty")
	}
	return &ParamStoreCredentials{getter: g, prefix: prefix}, nil
}

func (p *ParamStoreCredentials) names() (token, appID, usageKey string) {
	return p.prefix + "/api-token", p.prefix + "/app-id", p.prefix + "/usage-key"
}

func (p *ParamStoreCredentials) Credentials(ctx context.Context) (Credentials, error) {
	tokenName, appIDName, usageKeyName := p.names()
	vals, err := p.getter.GetParameters(ctx, tokenName, appIDName, usageKeyName)
	if err != nil {
		return Credentials{}, fmt.Errorf("prompttools: fetch credentials from paramstore: %w", err)
	}
	return Credentials{
		Token:    strings.TrimSpace(vals[tokenName]),
		AppID:    strings.TrimSpace(vals[appIDName]),
		UsageKey: strings.TrimSpace(vals[usageKeyName]),
	}, nil
}
