package ratelimit

// DefaultBypassPaths: health check, documentação interativa, schema e raiz.
var DefaultBypassPaths = []string{"/health", "/docs", "/openapi.json", "/"}

// BypassSet é o conjunto de paths (match exato) que não passam pelo controle
// de admissão: nada é registrado e a requisição é sempre admitida.
type BypassSet map[string]struct{}

func NewBypassSet(paths ...string) BypassSet {
	b := make(BypassSet, len(paths))
	for _, p := range paths {
		b[p] = struct{}{}
	}
	return b
}

func (b BypassSet) Contains(path string) bool {
	_, ok := b[path]
	return ok
}
