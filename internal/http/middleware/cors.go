package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gestaozabele/denuncias/internal/config"
)

// origens casa o Origin contra ALLOW_ORIGINS: entradas exatas ou "*.dominio",
// que exige subdomínio.
type origens struct {
	exatas  map[string]struct{}
	sufixos []string
}

func novasOrigens(entradas []string) origens {
	o := origens{exatas: make(map[string]struct{}, len(entradas))}
	for _, e := range entradas {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.HasPrefix(e, "*."):
			o.sufixos = append(o.sufixos, strings.ToLower(e[1:]))
		default:
			o.exatas[strings.TrimRight(e, "/")] = struct{}{}
		}
	}
	return o
}

func (o origens) permite(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := o.exatas[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suf := range o.sufixos {
		if strings.HasSuffix(host, suf) && len(host) > len(suf) {
			return true
		}
	}
	return false
}

// CORS aplica a política de origem cruzada do painel. Preflight de origem não
// permitida recebe 403; demais requisições seguem sem cabeçalhos CORS.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	permitidas := novasOrigens(cfg.AllowOrigins)
	headers := strings.Join(cfg.AllowHeaders, ", ")
	methods := strings.Join(cfg.AllowMethods, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !permitidas.permite(origin) {
				if preflight {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "Origem não permitida")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if preflight {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if expose != "" {
				w.Header().Set("Access-Control-Expose-Headers", expose)
			}
			next.ServeHTTP(w, r)
		})
	}
}
