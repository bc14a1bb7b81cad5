package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"pushflow/internal/domain"
)

// Verifier validates a bearer credential and yields the identity it asserts.
// Implementations are swappable so tests can supply fixed identities.
type Verifier interface {
	Verify(credential string) (domain.Identity, error)
}

// JWTVerifier checks HMAC-signed bearer tokens against a shared secret and
// an audience allow-list fixed for the process lifetime.
type JWTVerifier struct {
	secret   []byte
	audience map[string]struct{}
}

func NewJWTVerifier(secret string, audiences []string) *JWTVerifier {
	allowed := make(map[string]struct{}, len(audiences))
	for _, a := range audiences {
		allowed[a] = struct{}{}
	}
	return &JWTVerifier{secret: []byte(secret), audience: allowed}
}

// Verify accepts "Bearer <token>" or a bare token. Every failure collapses
// to ErrUnauthorized; the reason is logged, never returned to the caller.
func (v *JWTVerifier) Verify(credential string) (domain.Identity, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if raw == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug().Err(err).Msg("token rejected")
		return domain.Identity{}, domain.ErrUnauthorized
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			userID = sub
		}
	}
	if userID == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	aud, err := claims.GetAudience()
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	// A token may carry several audiences; the first recognized one becomes
	// the owner audience.
	for _, a := range aud {
		if _, ok := v.audience[a]; ok {
			return domain.Identity{UserID: userID, Audience: a}, nil
		}
	}
	log.Debug().Strs("audiences", aud).Msg("no recognized audience")
	return domain.Identity{}, domain.ErrUnauthorized
}
