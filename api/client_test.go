package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jrsteele09/go-auth-session/api"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/token/jwt/jwttest"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// fakeBackend answers each path with a fixed status and body and records the
// last request it saw.
func fakeBackend(t *testing.T, routes map[string]func() (int, string)) (*httptest.Server, *recordedRequest) {
	t.Helper()
	last := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Method = r.Method
		last.Path = r.URL.Path
		last.Auth = r.Header.Get("Authorization")
		last.Body = nil
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &last.Body))
		}

		respond, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		status, body := respond()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func ok(body string) func() (int, string) {
	return func() (int, string) { return http.StatusOK, body }
}

func TestClient_VerifyOTP(t *testing.T) {
	access := jwttest.AccessToken(t, "user-1", time.Now().Add(time.Hour), "ADMIN")
	srv, last := fakeBackend(t, map[string]func() (int, string){
		api.PathOTPVerify: ok(`{"data":{
			"user":{"id":"user-1","email":"john.doe@example.com","firstName":"John"},
			"tenant":{"id":"tenant-1","name":"Acme"},
			"tokens":{"accessToken":"` + access + `","refreshToken":"refresh-1"},
			"tenants":[{"id":"tenant-1","name":"Acme"},{"id":"tenant-2","name":"Globex"}]
		},"messages":["Welcome back"]}`),
	})
	client := api.New(srv.URL)

	result, err := client.VerifyOTP(context.Background(), api.OTPVerification{Email: "john.doe@example.com", Code: "123456"})
	require.NoError(t, err)
	require.Equal(t, "user-1", result.User.ID)
	require.Equal(t, "tenant-1", result.Tenant.ID)
	require.Equal(t, token.Pair{AccessToken: access, RefreshToken: "refresh-1"}, result.Tokens)
	require.Len(t, result.Tenants, 2)

	require.Equal(t, http.MethodPost, last.Method)
	require.Equal(t, "john.doe@example.com", last.Body["email"])
	require.Equal(t, "123456", last.Body["code"])
	require.Empty(t, last.Auth)
}

func TestClient_VerifyOTPValidation(t *testing.T) {
	srv, last := fakeBackend(t, nil)
	client := api.New(srv.URL)

	_, err := client.VerifyOTP(context.Background(), api.OTPVerification{Email: "not-an-email", Code: "123456"})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = client.VerifyOTP(context.Background(), api.OTPVerification{Email: "john.doe@example.com"})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	require.Empty(t, last.Path)
}

func TestClient_VerifyMagicLinkWithoutTokens(t *testing.T) {
	srv, _ := fakeBackend(t, map[string]func() (int, string){
		api.PathMagicLinkVerify: ok(`{"data":{"user":{"id":"user-1"},"tenant":{"id":"tenant-1"}}}`),
	})
	client := api.New(srv.URL)

	_, err := client.VerifyMagicLink(context.Background(), api.MagicLinkVerification{Token: "ml-1"})
	require.ErrorIs(t, err, errors.ErrBackendRejected)
}

func TestClient_RequestOTP(t *testing.T) {
	srv, last := fakeBackend(t, map[string]func() (int, string){
		api.PathOTPRequest: ok(`{"data":null,"messages":["Code sent"]}`),
	})
	client := api.New(srv.URL)

	require.NoError(t, client.RequestOTP(context.Background(), api.OTPRequest{Email: "john.doe@example.com"}))
	require.Equal(t, api.PathOTPRequest, last.Path)
}

func TestClient_SwitchTenantSendsBearer(t *testing.T) {
	srv, last := fakeBackend(t, map[string]func() (int, string){
		api.PathSwitchTenant: ok(`{"data":{"accessToken":"a.b.c","refreshToken":"r-2"}}`),
	})
	client := api.New(srv.URL)

	pair, err := client.SwitchTenant(context.Background(), "current-access", "tenant-2")
	require.NoError(t, err)
	require.Equal(t, token.Pair{AccessToken: "a.b.c", RefreshToken: "r-2"}, pair)
	require.Equal(t, "Bearer current-access", last.Auth)
	require.Equal(t, "tenant-2", last.Body["tenantId"])
}

func TestClient_Rejections(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		messages []string
	}{
		{
			name:     "string errors",
			status:   http.StatusBadRequest,
			body:     `{"data":null,"errors":["Code expired","Try again"]}`,
			messages: []string{"Code expired", "Try again"},
		},
		{
			name:     "object errors",
			status:   http.StatusForbidden,
			body:     `{"errors":[{"code":"E_TENANT","message":"Not a member of this tenant"}]}`,
			messages: []string{"Not a member of this tenant"},
		},
		{
			name:     "errors on a 200",
			status:   http.StatusOK,
			body:     `{"data":{},"errors":["Tenant disabled"]}`,
			messages: []string{"Tenant disabled"},
		},
		{
			name:     "messages only",
			status:   http.StatusUnauthorized,
			body:     `{"messages":["Please sign in"]}`,
			messages: []string{"Please sign in"},
		},
		{
			name:     "no envelope",
			status:   http.StatusInternalServerError,
			body:     `oops`,
			messages: []string{"Internal Server Error"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := fakeBackend(t, map[string]func() (int, string){
				api.PathSwitchTenant: func() (int, string) { return tc.status, tc.body },
			})
			client := api.New(srv.URL)

			pair, err := client.SwitchTenant(context.Background(), "access", "tenant-2")
			require.True(t, pair.IsZero())
			require.ErrorIs(t, err, errors.ErrBackendRejected)

			var rejection *api.BackendRejection
			require.ErrorAs(t, err, &rejection)
			require.Equal(t, tc.status, rejection.Status)
			require.Equal(t, tc.messages, rejection.Messages)
			require.Equal(t, tc.messages, api.UserMessages(err))
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv, _ := fakeBackend(t, nil)
	url := srv.URL
	srv.Close()

	client := api.New(url, api.WithTimeout(time.Second))
	_, err := client.RefreshTokens(context.Background(), "refresh-1")
	require.ErrorIs(t, err, errors.ErrNetwork)
	require.Nil(t, api.UserMessages(err))
}

func TestClient_ProfileTenantsLicenses(t *testing.T) {
	srv, last := fakeBackend(t, map[string]func() (int, string){
		api.PathProfile:  ok(`{"data":{"id":"user-1","email":"john.doe@example.com","roles":["USER"]}}`),
		api.PathTenants:  ok(`{"data":[{"id":"tenant-1","name":"Acme"}]}`),
		api.PathLicenses: ok(`{"data":[{"id":"lic-1","product":"stencils","tenantId":"tenant-1","expiresAt":"2030-01-01T00:00:00Z"}]}`),
	})
	client := api.New(srv.URL)
	ctx := context.Background()

	user, err := client.Profile(ctx, "access")
	require.NoError(t, err)
	require.Equal(t, []users.RoleType{users.RoleUser}, user.Roles)
	require.Equal(t, "Bearer access", last.Auth)

	list, err := client.Tenants(ctx, "access")
	require.NoError(t, err)
	require.Len(t, list, 1)

	licenses, err := client.Licenses(ctx, "access")
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	require.True(t, licenses[0].Active(time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, licenses[0].Active(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestClient_UpdateProfile(t *testing.T) {
	srv, last := fakeBackend(t, map[string]func() (int, string){
		api.PathProfile: ok(`{"data":{"id":"user-1","firstName":"Jane"}}`),
	})
	client := api.New(srv.URL)

	user, err := client.UpdateProfile(context.Background(), "access", users.Update{FirstName: utils.Ptr("Jane")})
	require.NoError(t, err)
	require.Equal(t, "Jane", user.FirstName)
	require.Equal(t, http.MethodPatch, last.Method)
	require.Equal(t, map[string]any{"firstName": "Jane"}, last.Body)
}

func TestClient_MissingData(t *testing.T) {
	srv, _ := fakeBackend(t, map[string]func() (int, string){
		api.PathProfile: ok(`{"messages":["ok"]}`),
	})
	_, err := api.New(srv.URL).Profile(context.Background(), "access")
	require.ErrorIs(t, err, errors.ErrBackendRejected)
}
