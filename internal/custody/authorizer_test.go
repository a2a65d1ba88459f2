package custody

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

func TestStaticAuthorizer(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Second)
	var a StaticAuthorizer

	by, err := a.Authorize(ctx, id.NewSampleID(), Authorization{AuthorizedBy: " qa "}, now)
	require.NoError(t, err)
	assert.Equal(t, "qa", by)

	_, err = a.Authorize(ctx, id.NewSampleID(), Authorization{AuthorizedBy: "qa", ExpiresAt: &later}, now)
	require.NoError(t, err)

	_, err = a.Authorize(ctx, id.NewSampleID(), Authorization{AuthorizedBy: "qa", ExpiresAt: &earlier}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))

	_, err = a.Authorize(ctx, id.NewSampleID(), Authorization{Token: "abc"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
}

func TestJWTAuthorizer(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	sampleID := id.NewSampleID()
	a := NewJWTAuthorizer("test-signing-key", "sampletrack")

	valid, err := a.IssueToken(sampleID, "carrier-ops", now, 10*time.Minute)
	require.NoError(t, err)

	t.Run("valid token yields subject", func(t *testing.T) {
		by, err := a.Authorize(ctx, sampleID, Authorization{Token: valid}, now)
		require.NoError(t, err)
		assert.Equal(t, "carrier-ops", by)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := a.Authorize(ctx, sampleID, Authorization{Token: valid}, now.Add(11*time.Minute))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
		assert.Contains(t, dErrors.Message(err), "expired")
	})

	t.Run("token for another sample", func(t *testing.T) {
		_, err := a.Authorize(ctx, id.NewSampleID(), Authorization{Token: valid}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
	})

	t.Run("token signed with another key", func(t *testing.T) {
		forged, err := NewJWTAuthorizer("other-key", "sampletrack").IssueToken(sampleID, "mallory", now, time.Minute)
		require.NoError(t, err)
		_, err = a.Authorize(ctx, sampleID, Authorization{Token: forged}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTAuthorizer("test-signing-key", "elsewhere").IssueToken(sampleID, "ops", now, time.Minute)
		require.NoError(t, err)
		_, err = a.Authorize(ctx, sampleID, Authorization{Token: other}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := a.Authorize(ctx, sampleID, Authorization{AuthorizedBy: "qa"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
	})
}
