// Package ratelimit fornece adapters HTTP (net/http) para controle de admissão
// por cliente e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: ClientKey, WindowConfig, Decision e as portas (sem net/http)
//   - application: casos de uso (decisão admitir/rejeitar, acquire/timeout)
//   - infra: SlidingLog em memória, semáforo, stores de estatística (memória/Redis)
//   - ratelimit (este pacote): middlewares HTTP, resolução de identidade, bypass e headers
//
// Fluxo por requisição:
//
//  1. Paths do bypass (/health, /docs, /openapi.json, /) passam direto, sem registro
//  2. Resolve a ClientKey: user:<sujeito autenticado> ou ip:<X-Forwarded-For|RemoteAddr|unknown>
//  3. A camada application poda, decide e registra numa única seção crítica
//  4. Admitido: X-RateLimit-Limit/Remaining e segue para o próximo handler
//  5. Rejeitado: 429 com corpo JSON e X-RateLimit-Limit/Remaining=0/Reset
//
// A janela é de um minuto e a cota é global por cliente (RATE_LIMIT_REQUESTS no cmd/gateway).
package ratelimit
