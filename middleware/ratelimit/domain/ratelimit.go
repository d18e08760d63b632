package domain

// Camada de domínio do controle de admissão.
//
// Tipos e contratos sem dependência de net/http.

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidQuota  = errors.New("ratelimit: quota must be positive")
	ErrInvalidWindow = errors.New("ratelimit: window must be positive")
)

// ClientKey identifica a origem de uma requisição: "user:<id>" ou "ip:<endereço>".
type ClientKey string

const (
	userPrefix = "user:"
	ipPrefix   = "ip:"

	// UnknownAddress é usado quando não há endereço de origem.
	UnknownAddress = "unknown"
)

func UserKey(id string) ClientKey { return ClientKey(userPrefix + id) }

func IPKey(addr string) ClientKey {
	if addr == "" {
		addr = UnknownAddress
	}
	return ClientKey(ipPrefix + addr)
}

// IsUser indica se a chave foi derivada de uma identidade autenticada.
func (k ClientKey) IsUser() bool { return strings.HasPrefix(string(k), userPrefix) }

func (k ClientKey) String() string { return string(k) }

// WindowConfig é imutável: quantas requisições (Quota) por janela deslizante (Window).
type WindowConfig struct {
	Quota  int
	Window time.Duration
}

// PerMinute é a configuração usada pelo gateway: janela fixa de um minuto.
func PerMinute(quota int) WindowConfig {
	return WindowConfig{Quota: quota, Window: time.Minute}
}

func (c WindowConfig) Validate() error {
	if c.Quota <= 0 {
		return ErrInvalidQuota
	}
	if c.Window <= 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Decision é o resultado de uma checagem de admissão.
//
// Remaining já reflete o registro da própria requisição quando Admitted=true,
// e é sempre 0 quando Admitted=false.
type Decision struct {
	Admitted  bool
	Limit     int
	Remaining int
	// ResetAt é now+window; só é relevante em rejeições.
	ResetAt time.Time
}

// RequestLog guarda o histórico recente por chave e decide a admissão.
//
// Implementações devem serializar prune+decisão+registro por chave.
type RequestLog interface {
	CheckAndRecord(key ClientKey, now time.Time) bool
	RemainingQuota(key ClientKey, now time.Time) int
	// Admit combina CheckAndRecord e RemainingQuota numa única seção crítica.
	Admit(key ClientKey, now time.Time) Decision
}
