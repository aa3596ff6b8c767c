package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestManager_LoginResolveLogout(t *testing.T) {
	store, _ := newRedisStore(t)
	m := NewManager(store)
	ctx := context.Background()

	user := models.User{ID: 7, Name: "Asha", Email: "asha@example.com"}
	s, err := m.Login(ctx, user, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", s.Token)

	got, err := m.Resolve(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.User.ID)
	assert.Equal(t, "Asha", got.User.Name)

	require.NoError(t, m.Logout(ctx, "tok-123"))
	_, err = m.Resolve(ctx, "tok-123")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	assert.NoError(t, m.Logout(ctx, "tok-123"))
}

func TestManager_LoginValidation(t *testing.T) {
	m := NewManager(NewMemoryStore())

	_, err := m.Login(context.Background(), models.User{ID: 1}, "  ")
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "token", ve.Field)

	_, err = m.Login(context.Background(), models.User{}, "tok")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "user", ve.Field)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{User: models.User{ID: 1}, Token: "t"}))
	mr.FastForward(2 * time.Hour)

	_, err := store.Load(ctx, "t")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func signAdmin(t *testing.T, secret string, claims AdminClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestAdminParser(t *testing.T) {
	claims := AdminClaims{
		AdminID: 3,
		Email:   "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("verified with secret", func(t *testing.T) {
		tok := signAdmin(t, "s3cret", claims)
		admin, err := NewAdminParser("s3cret").Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(3), admin.ID)
		assert.Equal(t, tok, admin.Token)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		tok := signAdmin(t, "other", claims)
		_, err := NewAdminParser("s3cret").Parse(tok)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})

	t.Run("unverified without secret", func(t *testing.T) {
		tok := signAdmin(t, "whatever", claims)
		admin, err := NewAdminParser("").Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", admin.Email)
	})

	t.Run("subject used when id claim missing", func(t *testing.T) {
		tok := signAdmin(t, "k", AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}})
		admin, err := NewAdminParser("k").Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(42), admin.ID)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewAdminParser("").Parse("not-a-jwt")
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})
}
