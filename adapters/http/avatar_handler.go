package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/khoahotran/user-service/internal/application/usecase/avatar"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

// multipartOverhead is the slack allowed on top of the file limit for
// boundaries and part headers.
const multipartOverhead = 1 << 20

type AvatarHandler struct {
	uploadAvatarUseCase *avatar.UploadAvatarUseCase
	deleteAvatarUseCase *avatar.DeleteAvatarUseCase
	getAvatarUseCase    *avatar.GetAvatarUseCase
	maxSize             int64
	logger              logger.Logger
}

func NewAvatarHandler(
	uploadUC *avatar.UploadAvatarUseCase,
	deleteUC *avatar.DeleteAvatarUseCase,
	getUC *avatar.GetAvatarUseCase,
	maxSize int64,
	log logger.Logger,
) *AvatarHandler {
	return &AvatarHandler{
		uploadAvatarUseCase: uploadUC,
		deleteAvatarUseCase: deleteUC,
		getAvatarUseCase:    getUC,
		maxSize:             maxSize,
		logger:              log,
	}
}

func (h *AvatarHandler) UploadAvatar(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+multipartOverhead)
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.NewInvalidInput("File too large", err))
			return
		}
		c.Error(apperror.NewInvalidInput("'avatar' file is required", err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("cannot open uploaded file", err))
		return
	}
	defer file.Close()

	err = h.uploadAvatarUseCase.Execute(c.Request.Context(), avatar.UploadAvatarInput{
		UserID:   u.ID,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		File:     file,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Avatar Upload Success"})
}

func (h *AvatarHandler) DeleteAvatar(c *gin.Context) {
	u, ok := GetUserFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("user not found in context", nil))
		return
	}

	if err := h.deleteAvatarUseCase.Execute(c.Request.Context(), u.ID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Avatar Delete Success"})
}

func (h *AvatarHandler) GetAvatar(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewAppError(apperror.ErrInvalidInput, "invalid user id", "", err))
		return
	}

	png, err := h.getAvatarUseCase.Execute(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
