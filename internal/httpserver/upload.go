package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/logging"
)

type UploadHandler struct {
	// PublicDir is the static root; files land in its images subdirectory.
	PublicDir string
}

// Upload stores one multipart file under a collision-resistant name and
// returns its public URL. Extension and content are taken as-is.
func (h *UploadHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "upload")

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("upload_failed", "reason", "missing file field", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}

	src, err := fh.Open()
	if err != nil {
		l.Error("upload_failed", "reason", "cannot open upload", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read upload")
	}
	defer src.Close()

	dir := filepath.Join(h.PublicDir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("upload_failed", "reason", "cannot create upload dir", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot store upload")
	}

	name := fmt.Sprintf("%d-%s%s",
		time.Now().UnixNano(),
		uuid.NewString()[:8],
		filepath.Ext(fh.Filename),
	)

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		l.Error("upload_failed", "reason", "cannot create file", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot store upload")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		l.Error("upload_failed", "reason", "write failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot store upload")
	}

	l.Info("upload_success", "file", name, "size", fh.Size)
	return c.JSON(http.StatusOK, map[string]string{"url": "/images/" + name})
}
