package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/models"
)

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func setUserContext(c echo.Context, claims *Claims) {
	c.Set("userID", claims.UserID)
	c.Set("role", claims.Role)
	c.Set("email", claims.Email)
}

// authenticate resolves the session from the access cookie, transparently
// rotating through the refresh cookie when the access token has expired.
func (t *Service) authenticate(c echo.Context) (*Claims, error) {
	if ck, err := c.Cookie("accessToken"); err == nil && ck.Value != "" {
		claims, err := t.ValidateAccess(ck.Value)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	rck, err := c.Cookie("refreshToken")
	if err != nil || rck.Value == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}

	access, refresh, claims, err := t.Rotate(rck.Value)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	c.SetCookie(CreateCookie("accessToken", access, "/", time.Now().Add(AccessTTL)))
	c.SetCookie(CreateCookie("refreshToken", refresh, "/", time.Now().Add(RefreshTTL)))
	return claims, nil
}

func (t *Service) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.authenticate(c)
		if err != nil {
			return err
		}
		setUserContext(c, claims)
		return next(c)
	}
}

// RequireAdmin gates on the role claim rather than a fixed identity, so
// promoting a user is a data change, not a deploy.
func (t *Service) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.authenticate(c)
		if err != nil {
			return err
		}
		if claims.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		setUserContext(c, claims)
		return next(c)
	}
}

// UserID reads the authenticated user id that RequireUser stamped onto the
// request context.
func UserID(c echo.Context) (uint, bool) {
	v, ok := c.Get("userID").(uint)
	return v, ok
}

func Email(c echo.Context) string {
	v, _ := c.Get("email").(string)
	return v
}
