package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	UserId   string `json:"user_id"`
	TenantId string `json:"tenant_id,omitempty"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "Billing-Secret"
	}
	return secret
}

func tokenLifespan() (int, error) {
	raw := os.Getenv("TOKEN_HOUR_LIFESPAN")
	if raw == "" {
		return 24, nil
	}
	return strconv.Atoi(raw)
}

// JwtGenerate issues a token for userId. An empty tenantId produces a token
// for a user who has not been onboarded to a shop yet.
func JwtGenerate(userId string, tenantId string) (string, error) {
	tokenLifespan, err := tokenLifespan()
	if err != nil {
		return "", err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		UserId:   userId,
		TenantId: tenantId,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(tokenLifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(jwtSecret)
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
}

// JwtClaims validates token and returns its claims.
func JwtClaims(token string) (*JwtCustomClaim, error) {
	parsed, err := JwtValidate(token)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
