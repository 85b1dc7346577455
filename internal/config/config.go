// Package config carga la configuración del servicio desde variables de
// entorno. Nada acá es fatal: el servicio levanta en modo dev (in-memory,
// sin verifier) cuando faltan los backends.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string // dev | prod
	Port string

	// DBDSN vacío => repos in-memory.
	DBDSN string

	// JWTSecret habilita el verifier HS256 local. Si además viene
	// IdentityBaseURL, gana el verifier remoto.
	JWTSecret       string
	IdentityBaseURL string
	IdentityAPIKey  string

	// RedisAddr vacío => sin cache de decisiones.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQPURL vacío => sin eventos.
	AMQPURL string

	InviteTTL       time.Duration
	CacheTTL        time.Duration
	JanitorInterval time.Duration
}

func Load() Config {
	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: getenv("PORT", "8080"),

		DBDSN: os.Getenv("DB_DSN"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		IdentityBaseURL: os.Getenv("IDENTITY_BASE_URL"),
		IdentityAPIKey:  os.Getenv("IDENTITY_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),

		AMQPURL: getenv("AMQP_URL", os.Getenv("RABBITMQ_URL")),

		InviteTTL:       getenvDuration("INVITE_TTL", 7*24*time.Hour),
		CacheTTL:        getenvDuration("ACCESS_CACHE_TTL", 30*time.Second),
		JanitorInterval: getenvDuration("JANITOR_INTERVAL", time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
