// Package auth extrai a identidade do cliente de um JWT Bearer.
//
// O middleware nunca rejeita: token ausente ou inválido segue como anônimo e a
// autorização fica a cargo da API upstream. A identidade serve para o rate limit
// agrupar requisições por usuário (user:<sub>).
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultPublicPaths não passam pela verificação de token.
var DefaultPublicPaths = []string{"/health", "/docs", "/openapi.json", "/", "/api/auth/login", "/api/auth/register"}

var ErrMissingSubject = errors.New("auth: token has no subject")

type Identity struct {
	Subject string
	Email   string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.Subject != ""
}

// SubjectFromRequest tem a assinatura de ratelimit.IdentityFunc.
func SubjectFromRequest(r *http.Request) (string, bool) {
	id, ok := FromContext(r.Context())
	return id.Subject, ok
}

type Options struct {
	Secret      []byte
	Algorithm   string // padrão HS256
	PublicPaths []string
	Logger      *zap.Logger
}

// Verifier valida tokens HMAC com um único algoritmo aceito.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret []byte, algorithm string) *Verifier {
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	return &Verifier{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{algorithm})),
	}
}

func (v *Verifier) Verify(raw string) (Identity, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, err
	}
	if sub == "" {
		return Identity{}, ErrMissingSubject
	}

	email, _ := claims["email"].(string)
	return Identity{Subject: sub, Email: email}, nil
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.PublicPaths == nil {
		opts.PublicPaths = DefaultPublicPaths
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	public := make(map[string]struct{}, len(opts.PublicPaths))
	for _, p := range opts.PublicPaths {
		public[p] = struct{}{}
	}
	verifier := NewVerifier(opts.Secret, opts.Algorithm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok || len(opts.Secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			id, err := verifier.Verify(raw)
			if err != nil {
				opts.Logger.Warn("invalid JWT token", zap.Error(err), zap.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	raw = strings.TrimSpace(raw)
	return raw, ok && raw != ""
}
