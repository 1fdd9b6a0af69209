package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/gestaozabele/denuncias/internal/config"
)

// chaveOciosa é o tempo sem uso após o qual o bucket de uma chave é descartado.
const chaveOciosa = 10 * time.Minute

// Limiter mantém um token bucket por chave. Nome identifica o limite nos logs
// ("entrada" para o canal anônimo, "painel" para usuários autenticados).
type Limiter struct {
	Nome string

	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	varredura time.Time
}

type bucket struct {
	lim   *rate.Limiter
	visto time.Time
}

// NewLimiter cria o limitador a partir da configuração carregada.
func NewLimiter(nome string, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		Nome:    nome,
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// reservar consome um token da chave. Quando não há token devolve a espera
// até o próximo.
func (l *Limiter) reservar(chave string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.varredura) {
		for k, b := range l.buckets {
			if now.Sub(b.visto) > chaveOciosa {
				delete(l.buckets, k)
			}
		}
		l.varredura = now.Add(chaveOciosa)
	}

	b, ok := l.buckets[chave]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[chave] = b
	}
	b.visto = now

	res := b.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if espera := res.DelayFrom(now); espera > 0 {
		res.CancelAt(now)
		return false, espera
	}
	return true, 0
}

func (l *Limiter) middleware(chaveDe func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chave, ok := chaveDe(r)
			if !ok || chave == "" {
				next.ServeHTTP(w, r)
				return
			}
			if permitido, espera := l.reservar(chave); !permitido {
				log.Warn().Str("limite", l.Nome).Str("method", r.Method).Str("path", r.URL.Path).Msg("limite de requisições excedido")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(espera)))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMIT", "Limite de requisições excedido")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limita pela origem resolvida em ClientIPContext. Protege o
// registro anônimo de denúncias e os endpoints de /auth.
func RateLimitByIP(l *Limiter) func(http.Handler) http.Handler {
	return l.middleware(func(r *http.Request) (string, bool) {
		return ClientIP(r), true
	})
}

// RateLimitByAtor limita pelo usuário autenticado; requisições sem ator passam.
func RateLimitByAtor(l *Limiter) func(http.Handler) http.Handler {
	return l.middleware(func(r *http.Request) (string, bool) {
		ator := GetAtor(r.Context())
		if ator == nil {
			return "", false
		}
		return ator.ID.String(), true
	})
}

func retryAfter(espera time.Duration) int {
	s := int(math.Ceil(espera.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
