package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
	"crackedgrain.shop/storefront/internal/features/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var fastParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type fakeAccounts struct {
	mu    sync.Mutex
	users map[string]*users.User
}

func (f *fakeAccounts) ValidateNew(email, name string) (string, string, error) {
	email, name = strings.TrimSpace(email), strings.TrimSpace(name)
	if !strings.Contains(email, "@") || strings.ContainsAny(email, "<> ") || name == "" {
		return "", "", common.ErrValidation
	}
	return email, name, nil
}

func (f *fakeAccounts) Create(_ context.Context, email, name, hash string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(key, "@") {
		return nil, common.ErrValidation
	}
	if _, ok := f.users[key]; ok {
		return nil, common.ErrEmailTaken
	}
	u := &users.User{ID: uuid.New(), Email: key, Name: name, PasswordHash: hash}
	f.users[key] = u
	return u, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u, nil
}

type attempt struct {
	email   string
	success bool
	at      time.Time
}

type fakeAttempts struct {
	mu  sync.Mutex
	log []attempt
	now func() time.Time
}

func (f *fakeAttempts) LogAttempt(_ context.Context, email string, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, attempt{email: strings.ToLower(email), success: success, at: f.now()})
	return nil
}

func (f *fakeAttempts) RecentFailures(_ context.Context, email string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.log {
		if a.email == strings.ToLower(email) && !a.success && !a.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *fakeAttempts, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cfg := &config.Config{
		AuthMaxFailedLogins:   3,
		AuthLockoutWindow:     time.Hour,
		AuthRegisterPerMinute: 100,
	}
	attempts := &fakeAttempts{now: clock}
	tokens := NewTokens(testSecret, "crackedgrain.shop", time.Hour)
	tokens.now = clock

	svc := NewService(&fakeAccounts{users: map[string]*users.User{}}, attempts, tokens, cfg)
	svc.params = fastParams
	svc.now = clock
	return svc, attempts, &now
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("mash-tun-42", fastParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, VerifyPassword("mash-tun-42", hash))
	assert.False(t, VerifyPassword("mash-tun-43", hash))
	assert.False(t, VerifyPassword("mash-tun-42", "not-a-hash"))
	assert.False(t, VerifyPassword("mash-tun-42", strings.Replace(hash, "argon2id", "argon2i", 1)))

	other, err := HashPassword("mash-tun-42", fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens(testSecret, "crackedgrain.shop", time.Hour)
	tokens.now = func() time.Time { return now }

	userID := uuid.New()
	raw, exp, err := tokens.Issue(userID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	got, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	t.Run("expired", func(t *testing.T) {
		later := NewTokens(testSecret, "crackedgrain.shop", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Verify(raw)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("ffffffffffffffffffffffffffffffff", "crackedgrain.shop", time.Hour)
		other.now = tokens.now
		_, err := other.Verify(raw)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokens(testSecret, "someone-else", time.Hour)
		other.now = tokens.now
		_, err := other.Verify(raw)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "crackedgrain.shop",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tokens.Verify(none)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("abc.def.ghi")
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "hop@example.com", Name: "Hop", Password: "short"})
	assert.ErrorIs(t, err, common.ErrValidation)

	session, err := svc.Register(ctx, RegisterRequest{Email: "hop@example.com", Name: "Hop", Password: "cascade-citra"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.NotEqual(t, uuid.Nil, session.UserID)

	_, err = svc.Register(ctx, RegisterRequest{Email: "hop@example.com", Name: "Hop", Password: "cascade-citra"})
	assert.ErrorIs(t, err, common.ErrEmailTaken)

	login, err := svc.Login(ctx, LoginRequest{Email: "HOP@example.com", Password: "cascade-citra"})
	require.NoError(t, err)
	assert.Equal(t, session.UserID, login.UserID)

	got, err := svc.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got)

	_, err = svc.Login(ctx, LoginRequest{Email: "hop@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, common.ErrBadCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, common.ErrBadCredentials)
}

func TestRegisterValidatesBeforeHashing(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var hashed int
	svc.hash = func(password string, p HashParams) (string, error) {
		hashed++
		return HashPassword(password, p)
	}

	for _, req := range []RegisterRequest{
		{Email: "not-an-email", Name: "Hop", Password: "cascade-citra"},
		{Email: "Hop <hop@example.com>", Name: "Hop", Password: "cascade-citra"},
		{Email: "hop@example.com", Name: "   ", Password: "cascade-citra"},
	} {
		_, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, common.ErrValidation, req.Email)
	}
	assert.Zero(t, hashed, "invalid registrations must not pay for a hash")

	_, err := svc.Register(ctx, RegisterRequest{Email: "hop@example.com", Name: "Hop", Password: "cascade-citra"})
	require.NoError(t, err)
	assert.Equal(t, 1, hashed)
}

func TestLoginLockout(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "malt@example.com", Name: "Malt", Password: "pale-ale-2row"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, LoginRequest{Email: "malt@example.com", Password: "nope-nope"})
		require.ErrorIs(t, err, common.ErrBadCredentials)
	}

	// correct password is refused while locked
	_, err = svc.Login(ctx, LoginRequest{Email: "malt@example.com", Password: "pale-ale-2row"})
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)

	*now = now.Add(61 * time.Minute)
	_, err = svc.Login(ctx, LoginRequest{Email: "malt@example.com", Password: "pale-ale-2row"})
	assert.NoError(t, err)
}

func TestRegisterRateLimited(t *testing.T) {
	svc, _, _ := newTestService(t)
	cfg := &config.Config{AuthRegisterPerMinute: 2, AuthMaxFailedLogins: 3, AuthLockoutWindow: time.Hour}
	limited := NewService(svc.accounts, svc.attempts, svc.tokens, cfg)
	limited.params = fastParams

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := limited.Register(ctx, RegisterRequest{
			Email: uuid.NewString() + "@example.com", Name: "Burst", Password: "long-enough-pw",
		})
		require.NoError(t, err)
	}
	_, err := limited.Register(ctx, RegisterRequest{Email: "third@example.com", Name: "Burst", Password: "long-enough-pw"})
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)
}

func TestHandlers(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	cases := []struct {
		name   string
		handle http.HandlerFunc
		body   string
		status int
	}{
		{"register", h.HandleRegister, `{"email":"yeast@example.com","name":"Yeast","password":"us-05-dry"}`, http.StatusCreated},
		{"register duplicate", h.HandleRegister, `{"email":"yeast@example.com","name":"Yeast","password":"us-05-dry"}`, http.StatusConflict},
		{"register bad json", h.HandleRegister, `{"email":`, http.StatusBadRequest},
		{"login", h.HandleLogin, `{"email":"yeast@example.com","password":"us-05-dry"}`, http.StatusOK},
		{"login wrong password", h.HandleLogin, `{"email":"yeast@example.com","password":"s-04"}`, http.StatusUnauthorized},
		{"login missing fields", h.HandleLogin, `{}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.handle(w, httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(tc.body)))
			require.Equal(t, tc.status, w.Code, w.Body.String())

			if tc.status < 300 {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotEmpty(t, body["token"])
				assert.NotContains(t, w.Body.String(), "argon2id")
			}
		})
	}
}
