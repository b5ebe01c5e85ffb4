package avatar

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/pkg/logger"
)

const mirrorFolder = "avatars"

var tracer = otel.Tracer("avatar_usecase")

// Policy bounds what an avatar upload may look like before it is decoded.
type Policy struct {
	MaxSize           int64
	AllowedExtensions []string
}

func (p Policy) allows(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(p.AllowedExtensions, func(allowed string) bool {
		return strings.EqualFold(allowed, ext)
	})
}

// mirrorAsync runs fn against the optional CDN mirror on its own goroutine.
func mirrorAsync(mirror service.Uploader, log logger.Logger, userID string, fn func(ctx context.Context, m service.Uploader) error) {
	if mirror == nil {
		return
	}
	go func() {
		if err := fn(context.Background(), mirror); err != nil {
			log.Warn("Avatar mirror sync failed", zap.String("user_id", userID), zap.Error(err))
		}
	}()
}
