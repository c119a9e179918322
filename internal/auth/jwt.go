package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

// DefaultJWTConfig reads JWT_SECRET and JWT_EXPIRY from the environment.
// Without a configured secret a random one is generated, which
// invalidates tokens across restarts (fine for a single analysis run).
func DefaultJWTConfig() JWTConfig {
	config := JWTConfig{
		Secret: os.Getenv("JWT_SECRET"),
		Issuer: "sentio",
		Expiry: 24 * time.Hour,
	}
	if config.Secret == "" {
		randomBytes := make([]byte, 32)
		rand.Read(randomBytes)
		config.Secret = hex.EncodeToString(randomBytes)
	}
	if exp := os.Getenv("JWT_EXPIRY"); exp != "" {
		if d, err := time.ParseDuration(exp); err == nil {
			config.Expiry = d
		}
	}
	return config
}

// JWTManager signs and validates monitor tokens.
type JWTManager struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
}

// NewJWTManager creates a manager for the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		secretKey: []byte(config.Secret),
		issuer:    config.Issuer,
		expiry:    config.Expiry,
	}
}

// GenerateToken creates a new token for a user.
func (m *JWTManager) GenerateToken(username string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.expiry)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
