package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Nossos pacotes de infraestrutura e utilitários
	"gosementes/config"
	"gosementes/internal/pkg/cache"
	"gosementes/internal/pkg/database"
	"gosementes/internal/pkg/events"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/pkg/metrics"
	"gosementes/internal/pkg/token"

	// Camadas para Injeção de Dependências
	"gosementes/internal/api/chamber"
	"gosementes/internal/api/location"
	"gosementes/internal/api/product"
	"gosementes/internal/api/router"
	"gosementes/internal/api/user"
	"gosementes/internal/api/withdrawal"
	"gosementes/internal/repository/pgstore"
	"gosementes/internal/repository/userrepo"
	"gosementes/internal/service/chamberservice"
	"gosementes/internal/service/locationservice"
	"gosementes/internal/service/movementservice"
	"gosementes/internal/service/productservice"
	"gosementes/internal/service/userservice"
	"gosementes/internal/service/withdrawalservice"
)

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// Sem .env seguimos só com o ambiente do sistema (ex: Docker).
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Inicialização
	cfg := config.LoadConfig()
	appLog := logger.NewLoggerForEnv(cfg.LogLevel, cfg.Environment)
	defer appLog.Sync()
	appLog.Info("⚡ Inicializando serviço GoSementes...", map[string]interface{}{"env": cfg.Environment})

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL, appLog)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr, appLog)
	defer cacheClient.Close()

	// C. Eventos (RabbitMQ). Sem AMQP_URL os eventos são descartados.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			appLog.Warn("RabbitMQ indisponível; eventos desligados.", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = amqpPub
			appLog.Info("Publicador RabbitMQ conectado.", map[string]interface{}{"exchange": cfg.AMQPExchange})
		}
	}
	defer publisher.Close()

	// D. Métricas (Prometheus)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	// A. Unidade de trabalho sobre PostgreSQL
	store := pgstore.New(db, cacheClient, pgstore.Options{
		DBTimeout:       cfg.DBTimeout,
		CacheTimeout:    cfg.CacheTimeout,
		ProductCacheTTL: cfg.ProductCacheTTL,
	}, appLog)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, appLog)

	// B. Serviços
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	userSvc := userservice.NewService(userRepo, tokenSvc, appLog)
	locationSvc := locationservice.NewService(store, cfg.LocationLimits(), appLog)
	chamberSvc := chamberservice.NewService(store, locationSvc, appLog)
	productSvc := productservice.NewService(store, publisher, m, appLog, cfg.LocateMaxCandidates)
	withdrawalSvc := withdrawalservice.NewService(store, productSvc, publisher, m, appLog)
	movementSvc := movementservice.NewService(store, appLog)

	if cfg.AdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
		if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			appLog.Error("Falha ao criar administrador inicial.", err)
		}
		cancel()
	}

	// C. Handlers
	handlers := router.Handlers{
		Product:    product.NewHandler(productSvc, appLog),
		Chamber:    chamber.NewHandler(chamberSvc, locationSvc, appLog),
		Location:   location.NewHandler(locationSvc, movementSvc, appLog),
		Withdrawal: withdrawal.NewHandler(withdrawalSvc, appLog),
		User:       user.NewHandler(userSvc, appLog),
	}

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(handlers, router.Options{
		TokenService:    tokenSvc,
		Cache:           cacheClient,
		Metrics:         m,
		Logger:          appLog,
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitWindow: cfg.RateLimitPeriod,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor GoSementes ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
