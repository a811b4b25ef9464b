package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// Driver PostgreSQL registrado como "postgres".
	_ "github.com/lib/pq"

	"gosementes/internal/pkg/logger"
)

// NewPostgresDB inicializa e configura o pool de conexões com o PostgreSQL.
func NewPostgresDB(dataSourceName string, log logger.Logger) (*sqlx.DB, error) {
	// 1. Abrir a conexão (sqlx.Open não toca no servidor ainda)
	db, err := sqlx.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	// 2. Testar a conexão imediatamente
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	// 3. Pool de conexões
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	log.Info("✅ Pool de Conexões PostgreSQL configurado e pronto.", map[string]interface{}{"max_open_conns": 25})

	return db, nil
}
