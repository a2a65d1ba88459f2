package custody

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

// Authorizer decides whether a transfer carries valid authorization and
// returns the identity that authorized it.
type Authorizer interface {
	Authorize(ctx context.Context, sampleID id.SampleID, auth Authorization, now time.Time) (string, error)
}

// StaticAuthorizer trusts the AuthorizedBy asserted by the caller, as long
// as it is present and unexpired. Used when no identity service is wired.
type StaticAuthorizer struct{}

func (StaticAuthorizer) Authorize(_ context.Context, _ id.SampleID, auth Authorization, now time.Time) (string, error) {
	by := strings.TrimSpace(auth.AuthorizedBy)
	if by == "" {
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "authorization is required")
	}
	if auth.ExpiresAt != nil && !auth.ExpiresAt.After(now) {
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "authorization has expired")
	}
	return by, nil
}

// TransferClaims are the claims of a custody transfer token.
type TransferClaims struct {
	SampleID string `json:"sample_id"`
	jwt.RegisteredClaims
}

// JWTAuthorizer validates HS256 transfer tokens minted by the identity
// service. The subject is the authorizing party.
type JWTAuthorizer struct {
	signingKey []byte
	issuer     string
}

func NewJWTAuthorizer(signingKey, issuer string) *JWTAuthorizer {
	return &JWTAuthorizer{signingKey: []byte(signingKey), issuer: issuer}
}

// IssueToken mints a transfer token for sampleID.
func (a *JWTAuthorizer) IssueToken(sampleID id.SampleID, subject string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TransferClaims{
		SampleID: sampleID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(a.signingKey)
}

func (a *JWTAuthorizer) Authorize(_ context.Context, sampleID id.SampleID, auth Authorization, now time.Time) (string, error) {
	raw := strings.TrimSpace(auth.Token)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "authorization token is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &TransferClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "authorization has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "invalid authorization token")
	}

	claims, ok := parsed.Claims.(*TransferClaims)
	if !ok || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "invalid authorization token")
	}
	if claims.SampleID != sampleID.String() {
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "authorization is for a different sample")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", dErrors.New(dErrors.CodeUnauthorizedTransfer, "authorization has no subject")
	}
	return claims.Subject, nil
}
