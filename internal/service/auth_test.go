package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
	"github.com/quillsuite/quill-go/internal/mocks"
	"github.com/quillsuite/quill-go/internal/mocks/identitytest"
	"github.com/quillsuite/quill-go/internal/ports"
	"github.com/quillsuite/quill-go/internal/testutil"
)

// stubIssuer returns canned backend responses.
type stubIssuer struct {
	rec  identity.Record
	cred identity.Credential
	err  error

	registered RegisterInput
	verified   string
}

func (s *stubIssuer) Login(context.Context, string, string) (identity.Record, identity.Credential, error) {
	return s.rec, s.cred, s.err
}

func (s *stubIssuer) Register(_ context.Context, in RegisterInput) (identity.Record, error) {
	s.registered = in
	return s.rec, s.err
}

func (s *stubIssuer) VerifyEmail(_ context.Context, token string) error {
	s.verified = token
	return s.err
}

func (s *stubIssuer) ExchangeSSOToken(context.Context, string) (identity.Record, identity.Credential, error) {
	return s.rec, s.cred, s.err
}

func newTestAuthFlow(store *CredentialStore, cache ports.IdentityCache, issuer CredentialIssuer) *AuthFlow {
	return NewAuthFlow(AuthFlowOptions{Store: store, Cache: cache, Issuer: issuer})
}

func TestAuthFlow_Login_Success(t *testing.T) {
	t.Parallel()

	rec := testutil.NewRecord().Build()
	store := NewCredentialStore()
	cache := identitytest.NewMemoryIdentityCache()
	flow := newTestAuthFlow(store, cache, &stubIssuer{rec: rec, cred: testutil.CredentialFresh})

	got, err := flow.Login(context.Background(), rec.Email, "hunter2")

	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, store.Identity().IsAuthenticated())
	assert.True(t, cache.Has(ports.CacheKeyUser))
	assert.Equal(t, testutil.CredentialFresh, cache.Snapshot()[ports.CacheKeyCredential])
}

func TestAuthFlow_Login_Validation(t *testing.T) {
	t.Parallel()

	flow := newTestAuthFlow(NewCredentialStore(), identitytest.NewMemoryIdentityCache(), &stubIssuer{})

	_, err := flow.Login(context.Background(), "", "hunter2")
	assert.True(t, apperrors.IsValidation(err))

	_, err = flow.Login(context.Background(), "u@example.com", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthFlow_Login_InvalidCredentialRejected(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	flow := newTestAuthFlow(store, identitytest.NewMemoryIdentityCache(), &stubIssuer{
		rec:  testutil.NewRecord().Build(),
		cred: "malformed",
	})

	_, err := flow.Login(context.Background(), "u@example.com", "hunter2")

	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
	assert.True(t, store.Identity().IsAnonymous())
}

func TestAuthFlow_Login_ClearsGuestSession(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetGuest(testutil.NewRecord().WithID("guest-1").AsGuest().Build())
	cache := identitytest.NewMemoryIdentityCache().Seed(map[string]string{
		ports.CacheKeyGuestUser: testutil.NewRecord().WithID("guest-1").AsGuest().JSON(t),
	})
	flow := newTestAuthFlow(store, cache, &stubIssuer{
		rec:  testutil.NewRecord().Build(),
		cred: testutil.CredentialFresh,
	})

	_, err := flow.Login(context.Background(), "u@example.com", "hunter2")

	require.NoError(t, err)
	assert.True(t, store.Identity().IsAuthenticated())
	assert.False(t, cache.Has(ports.CacheKeyGuestUser), "guest state cleared on login")
}

func TestAuthFlow_Login_PersistFailureKeepsSession(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := mocks.NewMockIdentityCache(ctrl)
	persistErr := errors.New("disk full")
	cache.EXPECT().Set(gomock.Any(), ports.CacheKeyUser, gomock.Any()).Return(persistErr)
	cache.EXPECT().Set(gomock.Any(), ports.CacheKeyCredential, gomock.Any()).Return(persistErr)

	store := NewCredentialStore()
	flow := newTestAuthFlow(store, cache, &stubIssuer{
		rec:  testutil.NewRecord().Build(),
		cred: testutil.CredentialFresh,
	})

	_, err := flow.Login(context.Background(), "u@example.com", "hunter2")

	// The login stands; it just will not survive a restart.
	require.NoError(t, err)
	assert.True(t, store.Identity().IsAuthenticated())
}

func TestAuthFlow_LoginWithSSOToken(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	flow := newTestAuthFlow(store, identitytest.NewMemoryIdentityCache(), &stubIssuer{
		rec:  testutil.NewRecord().Build(),
		cred: testutil.CredentialFresh,
	})

	_, err := flow.LoginWithSSOToken(context.Background(), "header.payload.sig")
	require.NoError(t, err)
	assert.True(t, store.Identity().IsAuthenticated())

	_, err = flow.LoginWithSSOToken(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthFlow_Register_NoIdentityAdopted(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	issuer := &stubIssuer{rec: testutil.NewRecord().Build()}
	flow := newTestAuthFlow(store, identitytest.NewMemoryIdentityCache(), issuer)

	in := RegisterInput{Email: "new@example.com", Password: "hunter2", DisplayName: "New User"}
	_, err := flow.Register(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, in, issuer.registered)
	assert.True(t, store.Identity().IsAnonymous(), "registration does not sign in")
}

func TestAuthFlow_VerifyEmail(t *testing.T) {
	t.Parallel()

	issuer := &stubIssuer{}
	flow := newTestAuthFlow(NewCredentialStore(), identitytest.NewMemoryIdentityCache(), issuer)

	require.NoError(t, flow.VerifyEmail(context.Background(), "verify-token"))
	assert.Equal(t, "verify-token", issuer.verified)

	err := flow.VerifyEmail(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}
