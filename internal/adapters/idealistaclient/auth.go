package idealistaclient

import (
	"context"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/core/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuthTokenProvider меняет ключ и секрет на bearer токен (client credentials)
type OAuthTokenProvider struct {
	cfg clientcredentials.Config
}

func NewOAuthTokenProvider(apiKey, apiSecret, tokenURL string) *OAuthTokenProvider {
	if tokenURL == "" {
		tokenURL = constants.DefaultTokenURL
	}
	return &OAuthTokenProvider{
		cfg: clientcredentials.Config{
			ClientID:     apiKey,
			ClientSecret: apiSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{constants.TokenScope},
			// ключ и секрет уходят в Basic заголовке
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Token выполняет один обмен. Ретраев нет, любая ошибка - AuthenticationError.
func (p *OAuthTokenProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.cfg.Token(ctx)
	if err != nil {
		return "", &domain.AuthenticationError{Err: err}
	}
	if tok.AccessToken == "" {
		return "", &domain.AuthenticationError{Err: errMissingAccessToken}
	}
	return tok.AccessToken, nil
}
