package auth

import (
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"arena/config"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/service"
	"arena/internal/errors"
)

const defaultSessionTTL = time.Hour

// jwtService implements service.TokenService with HS256-signed JWTs.
// Tokens are stateless; nothing is stored server-side.
type jwtService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time

	// lastIssuedAt makes issued-at strictly increasing, also across wall
	// clock steps, so two tokens for one account never share an iat.
	lastIssuedAt atomic.Int64
}

// NewJWTService builds the session token issuer from secretKey.session and auth.sessionTTL.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	ttl := defaultSessionTTL
	if cfg.Auth != nil && cfg.Auth.SessionTTL > 0 {
		ttl = cfg.Auth.SessionTTL
	}

	return newJWTService(cfg.SecretKey.Session, ttl, cfg.Env.ServiceName, time.Now)
}

func newJWTService(secret string, ttl time.Duration, issuer string, now func() time.Time) (*jwtService, error) {
	if secret == "" {
		return nil, errors.New("session secret must be provided")
	}

	return &jwtService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    now,
	}, nil
}

// Issue signs a token asserting accountID, valid for the configured TTL.
func (s *jwtService) Issue(accountID uuid.UUID) (*entity.Session, error) {
	issuedAt := s.nextIssuedAt()
	expiresAt := issuedAt.Add(s.ttl)

	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign session token")
	}

	return &entity.Session{
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the signature, algorithm and expiry of token.
func (s *jwtService) Verify(token string) (*entity.Identity, error) {
	claims := &service.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "session token rejected")
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "session token subject is not an account id")
	}

	identity := &entity.Identity{AccountID: accountID}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}

// nextIssuedAt returns the current second, or one second past the previous
// issue when the clock has not moved past it.
func (s *jwtService) nextIssuedAt() time.Time {
	candidate := s.now().Truncate(time.Second).Unix()
	for {
		last := s.lastIssuedAt.Load()
		next := candidate
		if last != 0 && next <= last {
			next = last + 1
		}
		if s.lastIssuedAt.CompareAndSwap(last, next) {
			return time.Unix(next, 0)
		}
	}
}
