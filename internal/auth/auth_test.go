package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pushflow/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestVerifyValidToken(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier(testSecret, []string{"project-1", "project-2"})
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"aud":     "project-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	for _, credential := range []string{"Bearer " + token, token} {
		id, err := v.Verify(credential)
		if err != nil {
			t.Fatalf("Verify(%q) error: %v", credential, err)
		}
		if id.UserID != "user-1" || id.Audience != "project-1" {
			t.Fatalf("Verify returned %+v", id)
		}
	}
}

func TestVerifySubjectFallback(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier(testSecret, []string{"project-1"})
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "subject-9",
		"aud": "project-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify("Bearer " + token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if id.UserID != "subject-9" {
		t.Fatalf("UserID = %q, want subject-9", id.UserID)
	}
}

func TestVerifyMultiAudienceToken(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier(testSecret, []string{"project-1"})

	// The recognized audience need not come first.
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"aud":     []string{"project-x", "project-1"},
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	id, err := v.Verify("Bearer " + token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if id.Audience != "project-1" {
		t.Fatalf("Audience = %q, want project-1", id.Audience)
	}

	token = signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"aud":     []string{"project-x", "project-y"},
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify("Bearer " + token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Verify error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	t.Parallel()
	v := NewJWTVerifier(testSecret, []string{"project-1"})
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		credential string
	}{
		{name: "absent", credential: ""},
		{name: "bearer only", credential: "Bearer "},
		{name: "garbage", credential: "Bearer not.a.token"},
		{
			name: "wrong secret",
			credential: "Bearer " + signToken(t, jwt.SigningMethodHS256, "other-secret", jwt.MapClaims{
				"user_id": "user-1", "aud": "project-1", "exp": future,
			}),
		},
		{
			name: "expired",
			credential: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
				"user_id": "user-1", "aud": "project-1", "exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "unrecognized audience",
			credential: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
				"user_id": "user-1", "aud": "project-x", "exp": future,
			}),
		},
		{
			name: "missing audience",
			credential: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
				"user_id": "user-1", "exp": future,
			}),
		},
		{
			name: "missing subject",
			credential: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
				"aud": "project-1", "exp": future,
			}),
		},
		{
			name: "disallowed algorithm",
			credential: "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{
				"user_id": "user-1", "aud": "project-1", "exp": future,
			}),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.credential)
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("Verify error = %v, want ErrUnauthorized", err)
			}
		})
	}
}
