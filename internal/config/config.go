package config

import (
	"errors"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	JWTSecret       string
	CORS            CORSConfig
	// TrustedProxies lista os proxies (IP ou CIDR) cujos cabeçalhos de
	// encaminhamento são aceitos. Vazio ignora X-Forwarded-For e X-Real-IP.
	TrustedProxies  []netip.Prefix
	LogLevel        string
	AppEnv          string
	SentryDSN       string
	AutoMigrate     bool
	AlertaWebhook   string
	// RateLimitIntake protege a entrada anônima: POST /denuncias e /auth/*.
	RateLimitIntake RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Storage         StorageConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// CORSConfig define a política de origem cruzada do painel.
type CORSConfig struct {
	AllowOrigins  []string
	AllowHeaders  []string
	AllowMethods  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

// StorageConfig descreve o destino dos arquivos enviados (logos).
type StorageConfig struct {
	Provider    string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	corsMaxAge, err := parseDurationEnv("CORS_MAX_AGE", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.CORS = CORSConfig{
		AllowOrigins:  splitList(getEnv("ALLOW_ORIGINS", "")),
		AllowHeaders:  splitList(getEnv("CORS_ALLOW_HEADERS", "Authorization, Content-Type, X-Requested-With")),
		AllowMethods:  splitList(getEnv("CORS_ALLOW_METHODS", "GET, POST, PUT, DELETE, OPTIONS")),
		ExposeHeaders: splitList(getEnv("CORS_EXPOSE_HEADERS", "Content-Disposition, Retry-After, X-Request-Id")),
		MaxAge:        corsMaxAge,
	}

	proxies, err := parsePrefixes(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info")))
	cfg.AppEnv = strings.TrimSpace(getEnv("APP_ENV", "development"))
	cfg.SentryDSN = strings.TrimSpace(getEnv("SENTRY_DSN", ""))
	cfg.AlertaWebhook = strings.TrimSpace(getEnv("ALERTA_WEBHOOK_URL", ""))

	autoMigrate, err := parseBoolEnv("AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}
	cfg.AutoMigrate = autoMigrate

	if cfg.RateLimitIntake, err = parseRateLimitEnv("RATE_LIMIT_INTAKE", RateLimitConfig{RequestsPerSecond: 10, Burst: 20}); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimitEnv("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40}); err != nil {
		return nil, err
	}

	cfg.Storage = StorageConfig{
		Provider:    strings.ToLower(strings.TrimSpace(getEnv("STORAGE_PROVIDER", "noop"))),
		S3Endpoint:  strings.TrimSpace(getEnv("S3_ENDPOINT", "")),
		S3Region:    strings.TrimSpace(getEnv("S3_REGION", "auto")),
		S3Bucket:    strings.TrimSpace(getEnv("S3_BUCKET", "")),
		S3AccessKey: strings.TrimSpace(getEnv("S3_ACCESS_KEY", "")),
		S3SecretKey: strings.TrimSpace(getEnv("S3_SECRET_KEY", "")),
		S3PublicURL: strings.TrimSpace(getEnv("S3_PUBLIC_URL", "")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}

// parseRateLimitEnv lê <prefixo>_RPS e <prefixo>_BURST.
func parseRateLimitEnv(prefix string, def RateLimitConfig) (RateLimitConfig, error) {
	out := def
	if raw := strings.TrimSpace(getEnv(prefix+"_RPS", "")); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return out, errors.New(prefix + "_RPS inválido")
		}
		out.RequestsPerSecond = rps
	}
	if raw := strings.TrimSpace(getEnv(prefix+"_BURST", "")); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil || burst <= 0 {
			return out, errors.New(prefix + "_BURST inválido")
		}
		out.Burst = burst
	}
	return out, nil
}

// parsePrefixes aceita IPs isolados ou CIDRs separados por vírgula.
func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range splitList(raw) {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, errors.New("TRUSTED_PROXIES inválido: " + item)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, errors.New("TRUSTED_PROXIES inválido: " + item)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
