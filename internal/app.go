package internal

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idealista-parser-service/internal/adapters/idealistaclient"
	logger_adapter "idealista-parser-service/internal/adapters/logger"
	"idealista-parser-service/internal/adapters/notifier"
	rabbitmq_adapter "idealista-parser-service/internal/adapters/rabbitmq"
	"idealista-parser-service/internal/adapters/rest"
	"idealista-parser-service/internal/configs"
	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/port"
	"idealista-parser-service/internal/core/usecase"
	"idealista-parser-service/pkg/fluentlogger"
	"idealista-parser-service/pkg/rabbitmq"

	"github.com/fluent/fluent-logger-golang/fluent"
)

const shutdownTimeout = 15 * time.Second

// Options - то, что CLI может переопределить поверх конфигурации
type Options struct {
	EnvFile  string
	LogLevel string
	// PageDelay > 0 заменяет FETCH_DELAY_SECONDS
	PageDelay time.Duration
	// Publish - публиковать страницы в RabbitMQ, если задан RABBITMQ_URL
	Publish bool
}

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	fluentClient *fluent.Fluent
	connManager  *rabbitmq.ConnectionManager
	producer     *rabbitmq.Publisher

	baseLogger port.LoggerPort
	logger     port.LoggerPort

	queryPageUC     *usecase.QueryPageUseCase
	fetchAllPagesUC *usecase.FetchAllPagesUseCase
	registry        *usecase.RunRegistry
}

// NewApp связывает все зависимости. Токен API получается здесь же.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	appConfig, err := configs.LoadConfig(opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}
	if opts.LogLevel != "" {
		appConfig.StdoutLogger.Level = opts.LogLevel
	}

	a := &App{
		config: appConfig,
		registry: usecase.NewRunRegistry(
			usecase.WithRunRetention(appConfig.REST.RunRetention),
			usecase.WithMaxFinishedRuns(appConfig.REST.MaxFinishedRuns),
		),
	}

	if err := a.initLoggers(); err != nil {
		return nil, err
	}

	if err := appConfig.Idealista.Validate(); err != nil {
		a.logger.Error("Invalid idealista configuration", err, nil)
		a.Close()
		return nil, err
	}

	clientCtx := contextkeys.ContextWithLogger(ctx, a.baseLogger)
	client, err := idealistaclient.NewClient(clientCtx,
		idealistaclient.Credentials{
			APIKey:    appConfig.Idealista.APIKey,
			APISecret: appConfig.Idealista.APISecret,
			Token:     appConfig.Idealista.Token,
		},
		idealistaclient.WithBaseURL(appConfig.Idealista.BaseURL),
		idealistaclient.WithTokenURL(appConfig.Idealista.TokenURL),
		idealistaclient.WithRequestTimeout(appConfig.Idealista.RequestTimeout),
	)
	if err != nil {
		a.logger.Error("Failed to create idealista client", err, nil)
		a.Close()
		return nil, fmt.Errorf("failed to create idealista client: %w", err)
	}
	a.logger.Info("Idealista client initialized", port.Fields{"base_url": appConfig.Idealista.BaseURL})

	var publisher port.PagePublisherPort
	if opts.Publish && appConfig.RabbitMQ.URL != "" {
		pagePublisher, err := a.initRabbitMQ()
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = pagePublisher
	}

	delay := appConfig.Idealista.PageDelay
	if opts.PageDelay > 0 {
		delay = opts.PageDelay
	}

	a.queryPageUC = usecase.NewQueryPageUseCase(client)
	a.fetchAllPagesUC = usecase.NewFetchAllPagesUseCase(client, publisher, delay)
	a.logger.Info("All use cases initialized", port.Fields{"page_delay": a.fetchAllPagesUC.Delay().String()})

	return a, nil
}

func (a *App) initLoggers() error {
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		// stdout занят результатами CLI
		Writer:   os.Stderr,
		Level:    logger_adapter.ParseLevel(a.config.StdoutLogger.Level),
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	if a.config.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      a.config.FluentBit.Host,
			Port:      a.config.FluentBit.Port,
			TagPrefix: a.config.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, logger_adapter.ParseLevel(a.config.FluentBit.Level))
		if err != nil {
			fluentClient.Close()
			return err
		}
		a.fluentClient = fluentClient
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiLoggerAdapter(activeLoggers...)
	if err != nil {
		return fmt.Errorf("failed to create multi-logger: %w", err)
	}

	a.baseLogger = multiLogger.WithFields(port.Fields{"service_name": a.config.AppName})
	a.logger = a.baseLogger.WithFields(port.Fields{"component": "app"})
	a.logger.Debug("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": a.config.FluentBit.Enabled,
	})
	return nil
}

func (a *App) initRabbitMQ() (port.PagePublisherPort, error) {
	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(a.baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
	connManager, err := rabbitmq.NewConnectionManager(rabbitmq.Config{URL: a.config.RabbitMQ.URL}, connManagerBridge)
	if err != nil {
		a.logger.Error("Failed to create connection manager", err, nil)
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.connManager = connManager

	producer, err := rabbitmq.NewPublisher(rabbitmq.PublisherConfig{
		ExchangeName:    constants.ExchangeIdealista,
		ExchangeType:    constants.ExchangeIdealistaType,
		DurableExchange: true,
		DeclareExchange: true,
		Logger:          rabbitmq_adapter.NewPkgLoggerBridge(a.baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
	}, connManager)
	if err != nil {
		a.logger.Error("Failed to create event producer", err, nil)
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	a.producer = producer

	pagePublisher, err := rabbitmq_adapter.NewRabbitMQPagePublisherAdapter(producer, constants.RoutingKeyPageFetched)
	if err != nil {
		return nil, err
	}
	a.logger.Info("RabbitMQ page publisher initialized", port.Fields{"exchange": constants.ExchangeIdealista})
	return pagePublisher, nil
}

// Context - контекст с логгером приложения для вызова use case'ов
func (a *App) Context(ctx context.Context) context.Context {
	return contextkeys.ContextWithLogger(ctx, a.baseLogger)
}

func (a *App) Config() *configs.AppConfig { return a.config }

func (a *App) Logger() port.LoggerPort { return a.logger }

func (a *App) QueryPage() *usecase.QueryPageUseCase { return a.queryPageUC }

func (a *App) FetchAllPages() *usecase.FetchAllPagesUseCase { return a.fetchAllPagesUC }

// Serve поднимает REST API и блокируется до сигнала или ошибки сервера
func (a *App) Serve() error {
	appCtx, cancelApp := context.WithCancel(a.Context(context.Background()))
	defer cancelApp()

	runNotifier := notifier.NewSSENotifier(a.baseLogger)
	defer runNotifier.Close()

	handlers := rest.NewSearchHandlers(appCtx, a.queryPageUC, a.fetchAllPagesUC, a.registry, runNotifier)
	router := rest.NewRouter(handlers, a.baseLogger, a.config.REST.AllowedOrigins)
	server := rest.NewServer(a.config.REST.Port, router, a.baseLogger.WithFields(port.Fields{"component": "rest"}))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	a.logger.Info("Application running. Waiting for signals...", nil)
	var runErr error
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case err := <-serverErrors:
		if err != nil {
			a.logger.Error("REST server failed, shutting down", err, nil)
			runErr = err
		}
	}

	if n := a.registry.CancelAll(); n > 0 {
		a.logger.Info("Cancelled active pagination runs", port.Fields{"count": n})
	}
	cancelApp()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		a.logger.Error("Error stopping REST server", err, nil)
	}
	return runErr
}

// Close освобождает ресурсы; безопасно вызывать на частично собранном App
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
	}
	if a.connManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.connManager.Close(ctx); err != nil {
			a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
		}
		cancel()
	}
	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("App: Error closing fluent client: %v\n", err)
		}
	}
}
