package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/user-service/internal/application/usecase/account"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

type UserHandler struct {
	registerUseCase      *account.RegisterUseCase
	loginUseCase         *account.LoginUseCase
	logoutUseCase        *account.LogoutUseCase
	updateProfileUseCase *account.UpdateProfileUseCase
	deleteAccountUseCase *account.DeleteAccountUseCase
	logger               logger.Logger
}

func NewUserHandler(
	registerUC *account.RegisterUseCase,
	loginUC *account.LoginUseCase,
	logoutUC *account.LogoutUseCase,
	updateUC *account.UpdateProfileUseCase,
	deleteUC *account.DeleteAccountUseCase,
	log logger.Logger,
) *UserHandler {
	return &UserHandler{
		registerUseCase:      registerUC,
		loginUseCase:         loginUC,
		logoutUseCase:        logoutUC,
		updateProfileUseCase: updateUC,
		deleteAccountUseCase: deleteUC,
		logger:               log,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput(validationDetails(err), err))
		return
	}

	output, err := h.registerUseCase.Execute(c.Request.Context(), account.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{User: ToUserDTO(output.User), Token: output.Token})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(account.ErrLoginFailed())
		return
	}

	output, err := h.loginUseCase.Execute(c.Request.Context(), account.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: ToUserDTO(output.User), Token: output.Token})
}

func (h *UserHandler) Logout(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	token, hasToken := GetTokenFromGinContext(c)
	if !ok || !hasToken {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}

	if err := h.logoutUseCase.Execute(c.Request.Context(), u, token); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{User: u.Name, Status: "Logged Out"})
}

func (h *UserHandler) LogoutAll(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}

	if err := h.logoutUseCase.ExecuteAll(c.Request.Context(), u); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{User: u.Name, Status: "Logged out from all devices"})
}

func (h *UserHandler) GetMe(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}
	c.JSON(http.StatusOK, ToUserDTO(u))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.Error(apperror.NewInvalidInput("cannot read request body", err))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.Error(apperror.NewInvalidInput("request body must be a JSON object", err))
		return
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	if err := account.ValidateUpdateFields(keys); err != nil {
		c.Error(err)
		return
	}

	var req UpdateUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.Error(apperror.NewInvalidInput(err.Error(), err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.Error(apperror.NewInvalidInput(validationDetails(err), err))
		return
	}

	updated, err := h.updateProfileUseCase.Execute(c.Request.Context(), account.UpdateProfileInput{
		User:     u,
		Keys:     keys,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToUserDTO(updated))
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}

	deleted, err := h.deleteAccountUseCase.Execute(c.Request.Context(), u)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToUserDTO(deleted))
}
