package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/models"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

type Claims struct {
	UserID uint
	Role   string
	Email  string
}

func (t *Service) SignAccessToken(u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   float64(u.ID),
		"role":  u.Role,
		"email": u.Email,
		"exp":   time.Now().Add(AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.JWTSecret)
}

func (t *Service) SignRefreshToken(u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   float64(u.ID),
		"role":  u.Role,
		"email": u.Email,
		"exp":   time.Now().Add(RefreshTTL).Unix(),
		"typ":   "refresh",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.RefreshSecret)
	if err != nil {
		return "", err
	}

	rec := models.RefreshToken{
		Token:     raw,
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(RefreshTTL).Unix(),
	}
	if err := t.DB.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("persist refresh token: %w", err)
	}
	return raw, nil
}

func parseHMAC(raw string, secret []byte) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func claimsFrom(mc jwt.MapClaims) (*Claims, error) {
	sub, ok := mc["sub"].(float64)
	if !ok {
		return nil, errors.New("invalid subject claim")
	}
	role, _ := mc["role"].(string)
	email, _ := mc["email"].(string)
	return &Claims{UserID: uint(sub), Role: role, Email: email}, nil
}

func (t *Service) ValidateAccess(raw string) (*Claims, error) {
	mc, err := parseHMAC(raw, t.JWTSecret)
	if err != nil {
		return nil, err
	}
	return claimsFrom(mc)
}

// ValidateRefresh checks the signature and the stored, unrevoked,
// unexpired row for the token.
func (t *Service) ValidateRefresh(raw string) (*Claims, error) {
	mc, err := parseHMAC(raw, t.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if typ, _ := mc["typ"].(string); typ != "refresh" {
		return nil, errors.New("not a refresh token")
	}

	var stored models.RefreshToken
	if err := t.DB.Where("token = ?", raw).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refresh token not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if stored.Revoked {
		return nil, errors.New("refresh token revoked")
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return nil, errors.New("refresh token expired")
	}

	return claimsFrom(mc)
}

// Rotate exchanges a valid refresh token for a fresh access/refresh pair.
func (t *Service) Rotate(raw string) (string, string, *Claims, error) {
	claims, err := t.ValidateRefresh(raw)
	if err != nil {
		return "", "", nil, err
	}

	var user models.User
	if err := t.DB.First(&user, claims.UserID).Error; err != nil {
		return "", "", nil, fmt.Errorf("refresh user lookup: %w", err)
	}

	access, err := t.SignAccessToken(&user)
	if err != nil {
		return "", "", nil, err
	}
	refresh, err := t.SignRefreshToken(&user)
	if err != nil {
		return "", "", nil, err
	}

	if err := t.DB.Model(&models.RefreshToken{}).Where("token = ?", raw).Update("revoked", true).Error; err != nil {
		return "", "", nil, fmt.Errorf("revoke old refresh token: %w", err)
	}

	return access, refresh, &Claims{UserID: user.ID, Role: user.Role, Email: user.Email}, nil
}

func (t *Service) Revoke(raw string) error {
	return t.DB.Model(&models.RefreshToken{}).Where("token = ?", raw).Update("revoked", true).Error
}
