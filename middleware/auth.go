package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/salocin93/freesign-sub000/config"
)

// AccountClaims are the JWT claims of a logged-in sender account.
type AccountClaims struct {
	Username string `json:"username"`
	Tenant   string `json:"tenant"`
	jwt.RegisteredClaims
}

// SigningClaims are the JWT claims embedded in a recipient's signing link.
// They bind the token to one document and one recipient.
type SigningClaims struct {
	DocumentID  string `json:"document_id"`
	RecipientID string `json:"recipient_id"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token for a user account
func GenerateToken(username, tenant string, cfg *config.AuthConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := AccountClaims{
		Username: username,
		Tenant:   tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// GenerateSigningToken mints a recipient signing-link token for one document
func GenerateSigningToken(documentID, recipientID string, cfg *config.AuthConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.SigningTokenExpireHours) * time.Hour)

	claims := SigningClaims{
		DocumentID:  documentID,
		RecipientID: recipientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// AuthMiddleware validates an account JWT and extracts user info
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		claims := &AccountClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})

		if err != nil || !token.Valid || claims.Username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Set("tenant", claims.Tenant)

		c.Next()
	}
}

// ViewerAuth accepts either an account token or a recipient signing token,
// so both the sender preparing a document and a recipient opening a signing
// link can create viewer sessions.
func ViewerAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		account := &AccountClaims{}
		token, err := jwt.ParseWithClaims(tokenString, account, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err == nil && token.Valid && account.Username != "" {
			c.Set("username", account.Username)
			c.Set("tenant", account.Tenant)
			c.Next()
			return
		}

		signing := &SigningClaims{}
		token, err = jwt.ParseWithClaims(tokenString, signing, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err == nil && token.Valid && signing.DocumentID != "" && signing.RecipientID != "" {
			c.Set("signing_document_id", signing.DocumentID)
			c.Set("signing_recipient_id", signing.RecipientID)
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		c.Abort()
		return "", false
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
		c.Abort()
		return "", false
	}
	return parts[1], true
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get("username"); exists {
		return username.(string)
	}
	return ""
}

// GetTenant gets the tenant from context
func GetTenant(c *gin.Context) string {
	if tenant, exists := c.Get("tenant"); exists {
		return tenant.(string)
	}
	return ""
}

// GetSigningDocumentID gets the signing-token document id from context
func GetSigningDocumentID(c *gin.Context) string {
	if id, exists := c.Get("signing_document_id"); exists {
		return id.(string)
	}
	return ""
}

// GetSigningRecipientID gets the signing-token recipient id from context
func GetSigningRecipientID(c *gin.Context) string {
	if id, exists := c.Get("signing_recipient_id"); exists {
		return id.(string)
	}
	return ""
}
