package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const clientIPKey contextKey = "client_ip"

// IPResolver determina o IP de origem da requisição. X-Forwarded-For e
// X-Real-IP só são lidos quando a conexão chega por um proxy confiável.
type IPResolver struct {
	trusted []netip.Prefix
}

// NewIPResolver cria o resolvedor. Sem proxies confiáveis vale o RemoteAddr.
func NewIPResolver(trusted []netip.Prefix) *IPResolver {
	return &IPResolver{trusted: trusted}
}

func (res *IPResolver) confiavel(addr netip.Addr) bool {
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Resolve percorre X-Forwarded-For da direita para a esquerda enquanto o salto
// atual for um proxy confiável; o primeiro endereço fora da lista é o cliente.
func (res *IPResolver) Resolve(r *http.Request) string {
	cliente, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !res.confiavel(cliente) {
		return cliente.String()
	}

	hops := forwardedHops(r)
	if len(hops) == 0 {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return addr.Unmap().String()
		}
		return cliente.String()
	}
	for i := len(hops) - 1; i >= 0 && res.confiavel(cliente); i-- {
		addr, err := netip.ParseAddr(hops[i])
		if err != nil {
			break
		}
		cliente = addr.Unmap()
	}
	return cliente.String()
}

// ClientIPContext resolve o IP uma vez e o guarda no contexto para o rate
// limit, o log e o ip_origem das denúncias.
func ClientIPContext(res *IPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := res.Resolve(r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
		})
	}
}

// ClientIP devolve o IP resolvido por ClientIPContext; fora dele, o host do RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	if addr, ok := remoteAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

func remoteAddr(raw string) (netip.Addr, bool) {
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}
