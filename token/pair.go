package token

import "golang.org/x/oauth2"

// Pair holds the access/refresh tokens issued by the backend. Both are opaque bearer strings.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both halves are present.
func (p Pair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// OAuth2Token exposes the pair as an *oauth2.Token so callers can use SetAuthHeader.
func (p Pair) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
		TokenType:    "Bearer",
	}
}
