package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"finance-gateway/middleware/ratelimit/domain"
)

const forwardedForHeader = "X-Forwarded-For"

// KeyFunc deriva a ClientKey de uma requisição.
type KeyFunc func(r *http.Request) domain.ClientKey

// IdentityFunc devolve o sujeito autenticado da requisição, se houver.
type IdentityFunc func(r *http.Request) (string, bool)

// ResolveClientKey é o resolvedor de identidade: função pura dos headers,
// do endereço de origem e da identidade já autenticada (vazia = ausente).
//
// Ordem: user:<identity>, depois ip:<primeiro X-Forwarded-For> (se trustXFF),
// depois ip:<host de remoteAddr>, e por fim ip:unknown.
func ResolveClientKey(h http.Header, remoteAddr, identity string, trustXFF bool) domain.ClientKey {
	if identity != "" {
		return domain.UserKey(identity)
	}

	if trustXFF {
		if xff := h.Get(forwardedForHeader); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return domain.IPKey(ip)
			}
		}
	}

	return domain.IPKey(remoteHost(remoteAddr))
}

// DefaultKeyFunc monta o KeyFunc padrão. identityFn pode ser nil.
func DefaultKeyFunc(identityFn IdentityFunc, trustXFF bool) KeyFunc {
	return func(r *http.Request) domain.ClientKey {
		var identity string
		if identityFn != nil {
			if id, ok := identityFn(r); ok {
				identity = id
			}
		}
		return ResolveClientKey(r.Header, r.RemoteAddr, identity, trustXFF)
	}
}

func remoteHost(remoteAddr string) string {
	addr := strings.TrimSpace(remoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return domain.UnknownAddress
}
