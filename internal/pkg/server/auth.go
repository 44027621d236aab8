package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/pkg/hasher"
)

const tokenTTL = time.Hour

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// postLogin exchanges local API credentials for a short-lived JWT.
func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled {
		writeError(w, http.StatusNotFound, "authentication disabled")
		return
	}
	req, err := unmarshalPayload[loginPayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	if req.Username != s.username || !hasher.PasswordCorrect(req.Password, s.passwordHash) {
		s.logger.Warn("login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueToken(req.Username)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) issueToken(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		Username: username,
	})
	return token.SignedString([]byte(s.signingKey))
}

func (s *Server) parseToken(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.signingKey), nil
	})
	if err != nil {
		return "", err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return c.Username, nil
}
