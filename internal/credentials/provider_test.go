package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

func TestDefaultMethod(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()

	method, err := p.DefaultMethod(ctx, "user_demo_001")
	require.NoError(t, err)
	assert.Equal(t, "tok_visa_4242", method.Token)
	assert.True(t, method.IsDefault)
}

func TestDefaultMethodFallsBackToFirst(t *testing.T) {
	p := NewStaticProvider().WithUser("user_nodefault", []Method{
		{Token: "tok_visa_0001", Type: "visa", LastFour: "0001"},
		{Token: "tok_visa_0002", Type: "visa", LastFour: "0002"},
	})

	method, err := p.DefaultMethod(context.Background(), "user_nodefault")
	require.NoError(t, err)
	assert.Equal(t, "tok_visa_0001", method.Token)
}

func TestUnknownUserGetsCredentialsError(t *testing.T) {
	p := NewStaticProvider()

	_, err := p.Methods(context.Background(), "user_unknown")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeCredentials, pkgerrors.CodeOf(err))

	_, err = p.DefaultMethod(context.Background(), "user_unknown")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeCredentials, pkgerrors.CodeOf(err))
}

func TestMethodsAreTokenized(t *testing.T) {
	p := NewStaticProvider()
	for _, user := range []string{"user_demo_001", "user_demo_002", "user_demo_003"} {
		methods, err := p.Methods(context.Background(), user)
		require.NoError(t, err)
		for _, m := range methods {
			assert.Regexp(t, "^tok_", m.Token)
			assert.Len(t, m.LastFour, 4)
		}
	}
}
