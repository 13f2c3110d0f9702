package authsvc

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/auth"
)

const audience = "authenticated"

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type tokenSigner struct {
	key     []byte
	issuer  string
	nowFunc func() time.Time
}

func (s tokenSigner) sign(acct Account, sess SessionRecord) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   acct.ID,
			Audience:  jwt.ClaimStrings{audience},
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Email: acct.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	return token, errors.Wrap(err, "signing access token")
}

// parse verifies the token's signature and, unless ignoreExpiry, its lifetime.
func (s tokenSigner) parse(token string, ignoreExpiry bool) (*claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.nowFunc),
	}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	c := new(claims)
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (interface{}, error) { return s.key, nil }, opts...)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, auth.ErrSessionExpired
	default:
		return nil, auth.ErrSessionMissing
	}
}
