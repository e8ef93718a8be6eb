package idealistaclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/port"

	"github.com/gocolly/colly/v2"
)

// Credentials - способ авторизации: либо готовый токен, либо пара ключ/секрет
type Credentials struct {
	APIKey    string
	APISecret string
	Token     string
}

func (c Credentials) validate() error {
	tokenOnly := c.Token != "" && c.APIKey == "" && c.APISecret == ""
	keyPairOnly := c.Token == "" && c.APIKey != "" && c.APISecret != ""
	if !tokenOnly && !keyPairOnly {
		return domain.ErrNoAuthMethod
	}
	return nil
}

// Client отвечает за все взаимодействия с поисковым API idealista.
// Токен выставляется один раз в конструкторе и дальше только читается.
type Client struct {
	// родительский коллектор, лимиты общие для всех клонов
	collector *colly.Collector
	baseURL   string
	userAgent string
	token     string
}

type options struct {
	baseURL        string
	tokenURL       string
	requestTimeout time.Duration
	userAgent      string
	tokenProvider  port.TokenProviderPort
}

type Option func(*options)

func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

func WithTokenURL(tokenURL string) Option {
	return func(o *options) { o.tokenURL = tokenURL }
}

// WithRequestTimeout - таймаут одного HTTP запроса, ретраев нет
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *options) { o.requestTimeout = timeout }
}

func WithUserAgent(userAgent string) Option {
	return func(o *options) { o.userAgent = userAgent }
}

// WithTokenProvider подменяет обмен ключа/секрета на токен
func WithTokenProvider(provider port.TokenProviderPort) Option {
	return func(o *options) { o.tokenProvider = provider }
}

// NewClient - конструктор. При авторизации по ключу/секрету токен получается здесь же.
func NewClient(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	o := options{
		baseURL:        constants.DefaultBaseURL,
		tokenURL:       constants.DefaultTokenURL,
		requestTimeout: constants.DefaultRequestTimeout,
		userAgent:      constants.UserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.requestTimeout <= 0 {
		o.requestTimeout = constants.DefaultRequestTimeout
	}

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "IdealistaClient"})

	token := creds.Token
	if token == "" {
		provider := o.tokenProvider
		if provider == nil {
			provider = NewOAuthTokenProvider(creds.APIKey, creds.APISecret, o.tokenURL)
		}

		minted, err := provider.Token(ctx)
		if err != nil {
			var authErr *domain.AuthenticationError
			if !errors.As(err, &authErr) {
				err = &domain.AuthenticationError{Err: err}
			}
			logger.Error("Token exchange failed", err, nil)
			return nil, err
		}
		token = minted
		logger.Info("Bearer token acquired", nil)
	} else {
		logger.Debug("Using pre-issued bearer token", nil)
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(o.userAgent),
		// ответы с ошибочным статусом разбираются в OnResponse
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(o.requestTimeout)

	// Эти правила будут наследоваться всеми клонами коллектора
	err := c.Limit(&colly.LimitRule{
		DomainGlob: "*",
		// не больше одного запроса к API одновременно
		Parallelism: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("idealista client: failed to set limit rule: %w", err)
	}

	return &Client{
		collector: c,
		baseURL:   o.baseURL,
		userAgent: o.userAgent,
		token:     token,
	}, nil
}
