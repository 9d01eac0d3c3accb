package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// DatabaseDSN builds the MySQL DSN from DB_* env vars.
// DB_HOST may be a unix socket path ("/cloudsql/<CONNECTION_NAME>").
func DatabaseDSN() string {
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")

	network := "tcp"
	address := fmt.Sprintf("%s:%s", dbHost, dbPort)
	if strings.HasPrefix(dbHost, "/cloudsql/") {
		network = "unix"
		address = dbHost
	}

	// clientFoundRows makes conditional updates report matched rows, not changed rows
	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&clientFoundRows=true",
		dbUser,
		dbPassword,
		network,
		address,
		dbName,
	)
}

// OpenDatabase opens one MySQL connection pool and installs the tracing and
// tenant guard plugins. Pool sizes come from DB_MAX_OPEN_CONNS (50),
// DB_MAX_IDLE_CONNS (25) and DB_CONN_MAX_LIFETIME_SECONDS (300).
func OpenDatabase() (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(DatabaseDSN()), initConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if maxOpen := IntFromEnv("DB_MAX_OPEN_CONNS", 50); maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle := IntFromEnv("DB_MAX_IDLE_CONNS", 25); maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if life := time.Duration(IntFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second; life > 0 {
		sqlDB.SetConnMaxLifetime(life)
	}

	if err := conn.Use(otelgorm.NewPlugin()); err != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", err)
	}
	if err := conn.Use(NewTenantGuardPlugin()); err != nil {
		return nil, fmt.Errorf("install tenant guard: %w", err)
	}
	return conn, nil
}

// ConnectDatabaseWithRetry sets the global DB, retrying with backoff until MySQL answers.
func ConnectDatabaseWithRetry() {
	for attempt := 1; ; attempt++ {
		conn, err := OpenDatabase()
		if err == nil {
			db = conn
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}
		sleep := retryBackoff(attempt)
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// CloseDatabase closes the global pool, if any.
func CloseDatabase() {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// retryBackoff doubles from 2s and caps at 30s.
func retryBackoff(attempt int) time.Duration {
	return min(time.Second*time.Duration(1<<min(attempt, 5)), 30*time.Second)
}

func IntFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func StringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
