package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/book-review-service/internal/api/http/handlers"
	"github.com/spec-kit/book-review-service/internal/auth"
	"github.com/spec-kit/book-review-service/internal/config"
	"github.com/spec-kit/book-review-service/internal/events"
	"github.com/spec-kit/book-review-service/internal/observability"
	"github.com/spec-kit/book-review-service/internal/repository"
	"github.com/spec-kit/book-review-service/internal/service"
	"github.com/spec-kit/book-review-service/internal/storage"
)

const testSecret = "router-test-secret"

var coverImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(
	append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 24)...))

type testServer struct {
	app    *fiber.App
	images *storage.MemoryImageStore
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := repository.NewMemoryStore()
	images := storage.NewMemoryImageStore()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewActivityService(logger, metrics).RegisterHandlers(dispatcher)

	tokens := auth.NewTokenManager(testSecret)
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: testSecret, BcryptCost: bcrypt.MinCost}, store.Users(), tokens, dispatcher, logger)
	bookService := service.NewBookService(store.Books(), images, dispatcher, logger)

	app := NewApp(config.AppConfig{Name: "book-review-test", RequestTimeoutSeconds: 5}, logger, RouteConfig{
		Health:  handlers.NewHealthHandler("book-review-test", "test", nil),
		Auth:    handlers.NewAuthHandler(authService),
		Books:   handlers.NewBooksHandler(bookService),
		Gate:    auth.NewGate(tokens, store.Users(), logger, metrics),
		Metrics: metrics,
	})
	return &testServer{app: app, images: images, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		Email        string `json:"email"`
		ProfileImage string `json:"profileImage"`
	} `json:"user"`
}

type bookBody struct {
	ID     string `json:"_id"`
	Title  string `json:"title"`
	Rating int    `json:"rating"`
	Image  string `json:"image"`
	User   struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
	} `json:"user"`
}

type listBody struct {
	Books       []bookBody `json:"books"`
	CurrentPage int        `json:"currentPage"`
	TotalBooks  int        `json:"totalBooks"`
	TotalPages  int        `json:"totalPages"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *testServer) register(t *testing.T, username string) authBody {
	t.Helper()
	status, raw := s.do(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"username": username,
		"email":    strings.ToUpper(username) + "@Example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.NotContains(t, string(raw), "$2a$")
	return decode[authBody](t, raw)
}

func TestAliceAndBobFlow(t *testing.T) {
	s := newTestServer(t)

	alice := s.register(t, "alice")
	assert.Equal(t, "alice@example.com", alice.User.Email)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=alice", alice.User.ProfileImage)

	status, raw := s.do(t, http.MethodPost, "/books", alice.Token, fiber.Map{
		"title": "Dune", "caption": "spice", "rating": 5, "image": coverImage,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	dune := decode[bookBody](t, raw)
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, alice.User.ID, dune.User.ID)
	assert.Equal(t, 1, s.images.Len())

	bob := s.register(t, "bob")

	status, raw = s.do(t, http.MethodGet, "/books", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[listBody](t, raw)
	require.Len(t, list.Books, 1)
	assert.Equal(t, "alice", list.Books[0].User.Username)
	assert.Equal(t, 1, list.CurrentPage)
	assert.Equal(t, 1, list.TotalBooks)
	assert.Equal(t, 1, list.TotalPages)

	status, raw = s.do(t, http.MethodDelete, "/books/"+dune.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, service.MsgNotBookOwner, decode[errorBody](t, raw).Message)

	status, raw = s.do(t, http.MethodGet, "/books/user", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, raw = s.do(t, http.MethodDelete, "/books/"+dune.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Book deleted successfully"}`, string(raw))
	assert.Zero(t, s.images.Len())

	status, raw = s.do(t, http.MethodDelete, "/books/"+dune.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, service.MsgBookNotFound, decode[errorBody](t, raw).Message)
}

func TestBooksRequireValidToken(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	expired, _, err := auth.NewTokenManager(testSecret).
		WithClock(func() time.Time { return time.Now().Add(-auth.TokenTTL - time.Second) }).
		Issue(alice.User.ID)
	require.NoError(t, err)
	tampered := alice.Token[:len(alice.Token)-4] + "AAAA"
	if tampered == alice.Token {
		tampered = alice.Token[:len(alice.Token)-4] + "BBBB"
	}

	cases := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", auth.MsgNoToken},
		{"expired", expired, auth.MsgTokenExpired},
		{"garbage", "abc.def.ghi", auth.MsgTokenInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := s.do(t, http.MethodGet, "/books", tc.token, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tc.message, decode[errorBody](t, raw).Message)
		})
	}

	status, _ := s.do(t, http.MethodGet, "/books/user", tampered, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set(fiber.HeaderAuthorization, "bearer "+alice.Token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	status, raw := s.do(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice", "email": "new@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgUserAlreadyExists, decode[errorBody](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/auth/register", "", fiber.Map{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgFillAllFields, decode[errorBody](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "alice@example.com", "password": "nope-nope",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgInvalidCredentials, decode[errorBody](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "ALICE@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	login := decode[authBody](t, raw)
	assert.Equal(t, alice.User.ID, login.User.ID)
	assert.NotContains(t, string(raw), "$2a$")
	assert.NotContains(t, string(raw), "password")
}

func TestListPaginationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	for _, title := range []string{"one", "two", "three"} {
		status, raw := s.do(t, http.MethodPost, "/books", alice.Token, fiber.Map{
			"title": title, "caption": "c", "rating": "3", "image": coverImage,
		})
		require.Equal(t, http.StatusCreated, status, string(raw))
	}

	status, raw := s.do(t, http.MethodGet, "/books?page=2&limit=2", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[listBody](t, raw)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.TotalBooks)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "one", page.Books[0].Title)

	status, raw = s.do(t, http.MethodGet, "/books?page=5&limit=2", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[listBody](t, raw).Books)

	status, raw = s.do(t, http.MethodGet, "/books?page=x&limit=y", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[listBody](t, raw).CurrentPage)

	status, raw = s.do(t, http.MethodGet, "/books?page=2305843009213693953", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	huge := decode[listBody](t, raw)
	assert.Empty(t, huge.Books)
	assert.Equal(t, 3, huge.TotalBooks)
	assert.Equal(t, 1, huge.TotalPages)
}

func TestRegisterLongPasswordIsRejected(t *testing.T) {
	s := newTestServer(t)

	status, raw := s.do(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"username": "alice", "email": "alice@example.com", "password": strings.Repeat("x", 80),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgPasswordTooLong, decode[errorBody](t, raw).Message)
}

func TestCreateBookValidationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	status, raw := s.do(t, http.MethodPost, "/books", alice.Token, fiber.Map{"title": "only"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgAllFieldsRequired, decode[errorBody](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/books", alice.Token, fiber.Map{
		"title": "t", "caption": "c", "rating": 9, "image": coverImage,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgRatingOutOfRange, decode[errorBody](t, raw).Message)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	s.do(t, http.MethodGet, "/books", "", nil)
	status, raw := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `auth_gate_outcomes_total{outcome="no_token"} 1`)

	status, raw = s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, raw).Code)
}
