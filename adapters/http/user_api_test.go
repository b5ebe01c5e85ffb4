package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/user-service/adapters/image_processing"
	"github.com/khoahotran/user-service/adapters/persistence"
	"github.com/khoahotran/user-service/internal/application/usecase/account"
	"github.com/khoahotran/user-service/internal/application/usecase/avatar"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
)

type nopNotifier struct{}

func (nopNotifier) NotifyRegistered(context.Context, string, string) error { return nil }
func (nopNotifier) NotifyDeleted(context.Context, string, string) error    { return nil }

const maxAvatarSize = 64 * 1024

type UserAPITestSuite struct {
	suite.Suite
	Router *gin.Engine
	repo   user.Repository
}

func TestUserAPI(t *testing.T) {
	suite.Run(t, new(UserAPITestSuite))
}

// failingSessionStore loses its connection on every token revocation.
type failingSessionStore struct {
	user.Repository
}

func (failingSessionStore) RemoveToken(context.Context, uuid.UUID, string) error {
	return errors.New("connection reset by peer")
}

func (failingSessionStore) ClearTokens(context.Context, uuid.UUID) error {
	return errors.New("connection reset by peer")
}

func (s *UserAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.repo = persistence.NewMemoryUserRepo()
	s.Router = s.newRouter(s.repo)
}

// newRouter wires the API on s.repo, with sessions revoked through sessions.
func (s *UserAPITestSuite) newRouter(sessions user.Repository) *gin.Engine {
	log := logger.NewNopLogger()
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	policy := avatar.Policy{MaxSize: maxAvatarSize, AllowedExtensions: []string{"jpg", "jpeg", "png"}}

	userHandler := NewUserHandler(
		account.NewRegisterUseCase(s.repo, jwtSvc, nopNotifier{}, log),
		account.NewLoginUseCase(s.repo, jwtSvc, log),
		account.NewLogoutUseCase(sessions, log),
		account.NewUpdateProfileUseCase(s.repo, log),
		account.NewDeleteAccountUseCase(s.repo, nopNotifier{}, log),
		log,
	)
	avatarHandler := NewAvatarHandler(
		avatar.NewUploadAvatarUseCase(s.repo, image_processing.NewAvatarProcessor(), nil, policy, log),
		avatar.NewDeleteAvatarUseCase(s.repo, nil, log),
		avatar.NewGetAvatarUseCase(s.repo),
		policy.MaxSize,
		log,
	)

	return NewRouter(RouterDeps{
		UserHandler:    userHandler,
		AvatarHandler:  avatarHandler,
		AuthMiddleware: AuthMiddleware(account.NewAuthenticateUseCase(s.repo, jwtSvc, log), log),
		Logger:         log,
		ServiceName:    "user-service-test",
	})
}

func (s *UserAPITestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func (s *UserAPITestSuite) upload(token, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filename)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func (s *UserAPITestSuite) register(email string) (UserDTO, string) {
	rr := s.do(http.MethodPost, "/users", "", gin.H{"name": "Alice", "email": email, "password": "s3cret-pass", "age": 27})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var resp AuthResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.User, resp.Token
}

func decodeBody(rr *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return body
}

func jpegBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{G: 255, A: 255})
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}

func (s *UserAPITestSuite) Test_Health() {
	rr := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("UP", decodeBody(rr)["status"])
}

func (s *UserAPITestSuite) Test_Register_HidesSecrets() {
	rr := s.do(http.MethodPost, "/users", "", gin.H{"name": "Alice", "email": "a@example.com", "password": "s3cret-pass"})
	s.Equal(http.StatusCreated, rr.Code)

	body := rr.Body.String()
	s.NotContains(body, "password")
	s.NotContains(body, "tokens")
	s.NotEmpty(decodeBody(rr)["token"])
}

func (s *UserAPITestSuite) Test_Register_DuplicateEmail() {
	s.register("a@example.com")

	rr := s.do(http.MethodPost, "/users", "", gin.H{"name": "Bob", "email": "a@example.com", "password": "s3cret-pass"})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal("conflict", decodeBody(rr)["error"])
}

func (s *UserAPITestSuite) Test_Register_Invalid() {
	cases := []gin.H{
		{"email": "a@example.com", "password": "s3cret-pass"},
		{"name": "A", "email": "nope", "password": "s3cret-pass"},
		{"name": "A", "email": "a@example.com", "password": "short"},
		{"name": "A", "email": "a@example.com", "password": "s3cret-pass", "age": -3},
	}
	for _, body := range cases {
		rr := s.do(http.MethodPost, "/users", "", body)
		s.Equal(http.StatusBadRequest, rr.Code, body)
	}
}

func (s *UserAPITestSuite) Test_Login_Flow() {
	u, firstToken := s.register("a@example.com")

	rr := s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "s3cret-pass"})
	s.Require().Equal(http.StatusOK, rr.Code)
	var resp AuthResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Equal(u.ID, resp.User.ID)

	stored, err := s.repo.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal([]string{firstToken, resp.Token}, stored.Tokens)

	wrongPassword := s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "wrong-pass"})
	unknownEmail := s.do(http.MethodPost, "/users/login", "", gin.H{"email": "b@example.com", "password": "s3cret-pass"})
	s.Equal(http.StatusBadRequest, wrongPassword.Code)
	s.Equal(http.StatusBadRequest, unknownEmail.Code)
	s.JSONEq(wrongPassword.Body.String(), unknownEmail.Body.String())
}

func (s *UserAPITestSuite) Test_Login_MalformedRequestLooksLikeBadCredentials() {
	s.register("a@example.com")
	wrongPassword := s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "wrong-pass"})

	for _, body := range []any{
		gin.H{"email": "a@example.com"},
		gin.H{"password": "s3cret-pass"},
		[]string{"a@example.com"},
		nil,
	} {
		rr := s.do(http.MethodPost, "/users/login", "", body)
		s.Equal(http.StatusBadRequest, rr.Code, body)
		s.JSONEq(wrongPassword.Body.String(), rr.Body.String(), body)
	}
}

func (s *UserAPITestSuite) Test_Auth_Rejections() {
	rr := s.do(http.MethodGet, "/users/me", "", nil)
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.NotEmpty(decodeBody(rr)["error"])

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rr = httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/users/me", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *UserAPITestSuite) Test_GetMe() {
	u, token := s.register("a@example.com")

	rr := s.do(http.MethodGet, "/users/me", token, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	var me UserDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &me))
	s.Equal(u.ID, me.ID)
	s.Equal(27, *me.Age)
}

func (s *UserAPITestSuite) Test_Logout_RevokesOnlyThatToken() {
	_, first := s.register("a@example.com")
	rr := s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "s3cret-pass"})
	second := decodeBody(rr)["token"].(string)

	rr = s.do(http.MethodPost, "/users/logout", second, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"user":"Alice","status":"Logged Out"}`, rr.Body.String())

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", second, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/users/me", first, nil).Code)
}

func (s *UserAPITestSuite) Test_LogoutAll() {
	_, first := s.register("a@example.com")
	rr := s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "s3cret-pass"})
	second := decodeBody(rr)["token"].(string)

	rr = s.do(http.MethodPost, "/users/logoutAll", first, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"user":"Alice","status":"Logged out from all devices"}`, rr.Body.String())

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", first, nil).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", second, nil).Code)
}

func (s *UserAPITestSuite) Test_Logout_StoreFailure() {
	_, token := s.register("a@example.com")
	s.Router = s.newRouter(failingSessionStore{s.repo})

	for _, path := range []string{"/users/logout", "/users/logoutAll"} {
		rr := s.do(http.MethodPost, path, token, nil)
		s.Equal(http.StatusInternalServerError, rr.Code, path)
		body := decodeBody(rr)
		s.Equal("internal server error", body["error"], path)
		s.NotContains(body, "details", path)
	}

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/users/me", token, nil).Code)
}

func (s *UserAPITestSuite) Test_UpdateMe() {
	u, token := s.register("a@example.com")

	rr := s.do(http.MethodPatch, "/users/me", token, gin.H{"name": "Alicia", "password": "another-s3cret"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal("Alicia", decodeBody(rr)["name"])

	rr = s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "another-s3cret"})
	s.Equal(http.StatusOK, rr.Code)

	stored, err := s.repo.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal("Alicia", stored.Name)
}

func (s *UserAPITestSuite) Test_UpdateMe_EmptyBodyIsNoop() {
	u, token := s.register("a@example.com")

	rr := s.do(http.MethodPatch, "/users/me", token, nil)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal("Alice", decodeBody(rr)["name"])

	stored, err := s.repo.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal("Alice", stored.Name)
	s.Equal(27, *stored.Age)
}

func (s *UserAPITestSuite) Test_UpdateMe_DisallowedField() {
	u, token := s.register("a@example.com")

	rr := s.do(http.MethodPatch, "/users/me", token, gin.H{"name": "Mallory", "role": "admin"})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Contains(decodeBody(rr)["details"], "role")

	stored, err := s.repo.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal("Alice", stored.Name)
}

func (s *UserAPITestSuite) Test_UpdateMe_InvalidValues() {
	_, token := s.register("a@example.com")

	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/users/me", token, gin.H{"age": -1}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/users/me", token, gin.H{"email": "broken"}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/users/me", token, []string{"name"}).Code)
}

func (s *UserAPITestSuite) Test_DeleteMe() {
	u, token := s.register("a@example.com")

	rr := s.do(http.MethodDelete, "/users/me", token, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(u.ID.String(), decodeBody(rr)["id"])

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", token, nil).Code)
	rr = s.do(http.MethodPost, "/users/login", "", gin.H{"email": "a@example.com", "password": "s3cret-pass"})
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *UserAPITestSuite) Test_Avatar_Lifecycle() {
	u, token := s.register("a@example.com")
	avatarPath := "/user/" + u.ID.String() + "/avatar"

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, avatarPath, "", nil).Code)

	rr := s.upload(token, "me.JPG", jpegBytes(400, 120))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, avatarPath, "", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("image/png", rr.Header().Get("Content-Type"))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
	s.Require().NoError(err)
	s.Equal("png", format)
	s.Equal(250, cfg.Width)
	s.Equal(250, cfg.Height)

	rr = s.do(http.MethodGet, "/users/me", token, nil)
	s.Equal(true, decodeBody(rr)["has_avatar"])

	rr = s.do(http.MethodDelete, "/users/me/avatar", token, nil)
	s.Equal(http.StatusOK, rr.Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, avatarPath, "", nil).Code)
}

func (s *UserAPITestSuite) Test_Avatar_UploadRejections() {
	u, token := s.register("a@example.com")

	cases := []struct {
		filename string
		content  []byte
	}{
		{"me.gif", jpegBytes(10, 10)},
		{"me.ts", jpegBytes(10, 10)},
		{"me.png", []byte("not an image at all")},
		{"me.jpg", bytes.Repeat([]byte{0xff}, maxAvatarSize+1)},
	}
	for _, tc := range cases {
		rr := s.upload(token, tc.filename, tc.content)
		s.Equal(http.StatusBadRequest, rr.Code, tc.filename)
		s.NotEmpty(decodeBody(rr)["error"])
	}

	_, err := s.repo.GetAvatar(context.Background(), u.ID)
	s.Error(err)
}

func (s *UserAPITestSuite) Test_GetAvatar_BadIDs() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/user/not-a-uuid/avatar", "", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/user/"+uuid.NewString()+"/avatar", "", nil).Code)
}
