package fetch

import (
	"encoding/base64"
	"net/http"
	"sort"
	"strings"

	"github.com/lysyi3m/feed-unify/app/feed"
)

type AuthType string

const (
	AuthBasic   AuthType = "basic"
	AuthBearer  AuthType = "bearer"
	AuthHeaders AuthType = "headers"
	AuthCookies AuthType = "cookies"
)

type Credentials struct {
	Type     AuthType
	Username string
	Password string
	Token    string
	Headers  map[string]string
	Cookies  map[string]string
}

// CredentialsFromConfig converts a subscription's auth block. Nil in, nil out.
func CredentialsFromConfig(auth *feed.ConfigAuth) *Credentials {
	if auth == nil {
		return nil
	}
	return &Credentials{
		Type:     AuthType(auth.Type),
		Username: auth.Username,
		Password: auth.Password,
		Token:    auth.Token,
		Headers:  auth.Headers,
		Cookies:  auth.Cookies,
	}
}

// Apply writes the credentials into h as request headers.
func (c *Credentials) Apply(h http.Header) {
	if c == nil {
		return
	}

	switch c.Type {
	case AuthBasic:
		token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		h.Set("Authorization", "Basic "+token)
	case AuthBearer:
		h.Set("Authorization", "Bearer "+c.Token)
	case AuthHeaders:
		for name, value := range c.Headers {
			h.Set(name, value)
		}
	case AuthCookies:
		names := make([]string, 0, len(c.Cookies))
		for name := range c.Cookies {
			names = append(names, name)
		}
		sort.Strings(names)

		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, (&http.Cookie{Name: name, Value: c.Cookies[name]}).String())
		}
		if len(pairs) > 0 {
			h.Set("Cookie", strings.Join(pairs, "; "))
		}
	}
}
