package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bidout/pkg/apperr"
	"github.com/floroz/bidout/pkg/auth"
)

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) ValidateAccessToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) GetAccessTokenHash(ctx context.Context, userID uuid.UUID) ([]byte, bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

type MockGuestRepository struct {
	mock.Mock
}

func (m *MockGuestRepository) GetActiveGuest(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func TestResolver_ResolveClient(t *testing.T) {
	userID := uuid.New()
	guestID := uuid.New()
	const token = "header.payload.sig"

	tests := []struct {
		name        string
		authHeader  string
		guestHeader string
		setup       func(*MockTokenVerifier, *MockSessionStore, *MockGuestRepository)
		want        Client
		wantErr     error
	}{
		{
			name:       "valid bearer token resolves to user",
			authHeader: "Bearer " + token,
			setup: func(tv *MockTokenVerifier, ss *MockSessionStore, _ *MockGuestRepository) {
				tv.On("ValidateAccessToken", token).Return(userID, nil)
				ss.On("GetAccessTokenHash", mock.Anything, userID).Return(auth.HashToken(token), true, nil)
			},
			want: Client{ID: userID, Authenticated: true},
		},
		{
			name:        "bearer token takes precedence over guest header",
			authHeader:  "Bearer " + token,
			guestHeader: guestID.String(),
			setup: func(tv *MockTokenVerifier, ss *MockSessionStore, _ *MockGuestRepository) {
				tv.On("ValidateAccessToken", token).Return(userID, nil)
				ss.On("GetAccessTokenHash", mock.Anything, userID).Return(auth.HashToken(token), true, nil)
			},
			want: Client{ID: userID, Authenticated: true},
		},
		{
			name:       "invalid token is unauthorized, no guest fallback",
			authHeader: "Bearer " + token,
			setup: func(tv *MockTokenVerifier, _ *MockSessionStore, _ *MockGuestRepository) {
				tv.On("ValidateAccessToken", token).Return(uuid.Nil, auth.ErrInvalidToken)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:       "superseded token is unauthorized",
			authHeader: "Bearer " + token,
			setup: func(tv *MockTokenVerifier, ss *MockSessionStore, _ *MockGuestRepository) {
				tv.On("ValidateAccessToken", token).Return(userID, nil)
				ss.On("GetAccessTokenHash", mock.Anything, userID).Return(auth.HashToken("newer.token.sig"), true, nil)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:       "token for deleted user is unauthorized",
			authHeader: "Bearer " + token,
			setup: func(tv *MockTokenVerifier, ss *MockSessionStore, _ *MockGuestRepository) {
				tv.On("ValidateAccessToken", token).Return(userID, nil)
				ss.On("GetAccessTokenHash", mock.Anything, userID).Return(nil, false, nil)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:       "non-bearer authorization header is unauthorized",
			authHeader: "Basic dXNlcjpwYXNz",
			setup:      func(*MockTokenVerifier, *MockSessionStore, *MockGuestRepository) {},
			wantErr:    ErrUnauthorized,
		},
		{
			name:        "active guest resolves to guest client",
			guestHeader: guestID.String(),
			setup: func(_ *MockTokenVerifier, _ *MockSessionStore, gr *MockGuestRepository) {
				gr.On("GetActiveGuest", mock.Anything, guestID).Return(true, nil)
			},
			want: Client{ID: guestID},
		},
		{
			name:        "unknown or merged guest resolves to anonymous",
			guestHeader: guestID.String(),
			setup: func(_ *MockTokenVerifier, _ *MockSessionStore, gr *MockGuestRepository) {
				gr.On("GetActiveGuest", mock.Anything, guestID).Return(false, nil)
			},
			want: Client{},
		},
		{
			name:        "malformed guest id resolves to anonymous without lookup",
			guestHeader: "not-a-uuid",
			setup:       func(*MockTokenVerifier, *MockSessionStore, *MockGuestRepository) {},
			want:        Client{},
		},
		{
			name:  "no credentials resolves to anonymous",
			setup: func(*MockTokenVerifier, *MockSessionStore, *MockGuestRepository) {},
			want:  Client{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tv, ss, gr := new(MockTokenVerifier), new(MockSessionStore), new(MockGuestRepository)
			tt.setup(tv, ss, gr)

			r := NewResolver(tv, ss, gr)
			got, err := r.ResolveClient(context.Background(), tt.authHeader, tt.guestHeader)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			tv.AssertExpectations(t)
			ss.AssertExpectations(t)
			gr.AssertExpectations(t)
		})
	}
}

func TestResolver_RequireAuthenticated(t *testing.T) {
	r := NewResolver(new(MockTokenVerifier), new(MockSessionStore), new(MockGuestRepository))

	_, err := r.RequireAuthenticated(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolver_GuestLookupFailure(t *testing.T) {
	guestID := uuid.New()
	gr := new(MockGuestRepository)
	gr.On("GetActiveGuest", mock.Anything, guestID).Return(false, errors.New("conn refused"))

	r := NewResolver(new(MockTokenVerifier), new(MockSessionStore), gr)
	_, err := r.ResolveClient(context.Background(), "", guestID.String())

	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

func TestClient_Anonymous(t *testing.T) {
	assert.True(t, Client{}.Anonymous())
	assert.False(t, Client{ID: uuid.New()}.Anonymous())
}
