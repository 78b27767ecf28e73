package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestCustomClaims_IsAdmin(t *testing.T) {
	tests := []struct {
		name string
		role string
		want bool
	}{
		{name: "admin role", role: "admin", want: true},
		{name: "client role", role: "client", want: false},
		{name: "no role", role: "", want: false},
		{name: "case matters", role: "Admin", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := CustomClaims{Role: tt.role}
			assert.Equal(t, tt.want, claims.IsAdmin())
		})
	}
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantID    string
		wantErr   bool
	}{
		{
			name: "successfully extracts user ID",
			setupFunc: func(c *gin.Context) {
				c.Set("user_id", "auth0|123456")
			},
			wantID:  "auth0|123456",
			wantErr: false,
		},
		{
			name: "user ID not found in context",
			setupFunc: func(c *gin.Context) {
				// Don't set user_id
			},
			wantID:  "",
			wantErr: true,
		},
		{
			name: "user ID is not a string",
			setupFunc: func(c *gin.Context) {
				c.Set("user_id", 12345) // Set as int instead of string
			},
			wantID:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.setupFunc(c)

			gotID, err := GetUserID(c)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, gotID)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, gotID)
			}
		})
	}
}

func TestGetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantErr   bool
	}{
		{
			name: "successfully extracts claims",
			setupFunc: func(c *gin.Context) {
				claims := &validator.ValidatedClaims{
					RegisteredClaims: validator.RegisteredClaims{
						Issuer:  "https://test.auth0.com/",
						Subject: "auth0|123456",
					},
					CustomClaims: &CustomClaims{
						Role:  "client",
						Email: "maria@example.com",
					},
				}
				c.Set("validated_claims", claims)
			},
			wantErr: false,
		},
		{
			name: "claims not found in context",
			setupFunc: func(c *gin.Context) {
				// Don't set validated_claims
			},
			wantErr: true,
		},
		{
			name: "claims are not the expected type",
			setupFunc: func(c *gin.Context) {
				c.Set("validated_claims", "invalid")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.setupFunc(c)

			claims, err := GetClaims(c)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, claims)
			}
		})
	}
}

func TestGetAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, err := GetAccessToken(c)
	assert.Error(t, err)

	c.Set("access_token", "")
	_, err = GetAccessToken(c)
	assert.Error(t, err)

	c.Set("access_token", "raw.jwt.token")
	token, err := GetAccessToken(c)
	assert.NoError(t, err)
	assert.Equal(t, "raw.jwt.token", token)
}

func TestGetActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		claims    interface{}
		wantActor services.Actor
		wantErr   bool
	}{
		{
			name: "admin",
			claims: &validator.ValidatedClaims{
				CustomClaims: &CustomClaims{Role: "admin", Email: " admin@salon.test "},
			},
			wantActor: services.Actor{Email: "admin@salon.test", Privileged: true},
		},
		{
			name: "client",
			claims: &validator.ValidatedClaims{
				CustomClaims: &CustomClaims{Role: "client", Email: "maria@example.com"},
			},
			wantActor: services.Actor{Email: "maria@example.com"},
		},
		{
			name:    "missing custom claims",
			claims:  &validator.ValidatedClaims{},
			wantErr: true,
		},
		{
			name:    "no claims",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			if tt.claims != nil {
				c.Set("validated_claims", tt.claims)
			}

			actor, err := GetActor(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantActor, actor)
		})
	}
}

func TestGetActor_StoredRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	require.NoError(t, db.Create(&models.User{Name: "Promoted Admin", Email: "lena@example.com", Role: models.UserRoleAdmin}).Error)
	require.NoError(t, db.Create(&models.User{Name: "Maria Ivanova", Email: "maria@example.com", Role: models.UserRoleClient}).Error)

	previous := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(previous) })

	tests := []struct {
		name           string
		email          string
		wantPrivileged bool
	}{
		{name: "stored admin", email: "Lena@Example.com", wantPrivileged: true},
		{name: "stored client", email: "maria@example.com", wantPrivileged: false},
		{name: "no profile", email: "nobody@example.com", wantPrivileged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set("validated_claims", &validator.ValidatedClaims{
				CustomClaims: &CustomClaims{Role: "client", Email: tt.email},
			})

			actor, err := GetActor(c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrivileged, actor.Privileged)

			RequireAdmin()(c)
			assert.Equal(t, !tt.wantPrivileged, c.IsAborted())
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupFunc      func(*gin.Context)
		wantStatusCode int
		wantAborted    bool
	}{
		{
			name: "admin passes",
			setupFunc: func(c *gin.Context) {
				c.Set("validated_claims", &validator.ValidatedClaims{
					CustomClaims: &CustomClaims{Role: "admin"},
				})
			},
			wantAborted: false,
		},
		{
			name: "client is forbidden",
			setupFunc: func(c *gin.Context) {
				c.Set("validated_claims", &validator.ValidatedClaims{
					CustomClaims: &CustomClaims{Role: "client"},
				})
			},
			wantStatusCode: http.StatusForbidden,
			wantAborted:    true,
		},
		{
			name:           "claims not in context",
			setupFunc:      func(c *gin.Context) {},
			wantStatusCode: http.StatusUnauthorized,
			wantAborted:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

			tt.setupFunc(c)
			RequireAdmin()(c)

			if tt.wantAborted {
				assert.True(t, c.IsAborted())
				assert.Equal(t, tt.wantStatusCode, w.Code)
			} else {
				assert.False(t, c.IsAborted())
			}
		})
	}
}

func TestAuthError(t *testing.T) {
	err := &AuthError{
		Code:    "TEST_ERROR",
		Message: "This is a test error",
	}

	assert.Equal(t, "This is a test error", err.Error())
}
