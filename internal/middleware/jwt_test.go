package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	valid, err := IssueToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	expired, _ := IssueToken(testSecret, "alice", -time.Hour)
	foreign, _ := IssueToken("other-secret", "alice", time.Hour)

	tests := []struct {
		name     string
		mw       gin.HandlerFunc
		header   string
		query    string
		wantCode int
		wantUser string
	}{
		{"header token", JWTAuth(testSecret), "Bearer " + valid, "", http.StatusOK, "alice"},
		{"query token", JWTAuth(testSecret), "", "?token=" + valid, http.StatusOK, "alice"},
		{"missing token", JWTAuth(testSecret), "", "", http.StatusUnauthorized, ""},
		{"bad scheme", JWTAuth(testSecret), "Basic abc", "", http.StatusUnauthorized, ""},
		{"expired", JWTAuth(testSecret), "Bearer " + expired, "", http.StatusUnauthorized, ""},
		{"wrong secret", JWTAuth(testSecret), "Bearer " + foreign, "", http.StatusUnauthorized, ""},
		{"optional anonymous", OptionalJWTAuth(testSecret), "", "", http.StatusOK, ""},
		{"optional valid", OptionalJWTAuth(testSecret), "", "?token=" + valid, http.StatusOK, "alice"},
		{"optional invalid", OptionalJWTAuth(testSecret), "Bearer garbage", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter(tt.mw).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d (%s)", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantCode == http.StatusOK && w.Body.String() != tt.wantUser {
				t.Errorf("Expected user %q, got %q", tt.wantUser, w.Body.String())
			}
		})
	}
}

func TestParseToken_SubFallback(t *testing.T) {
	token, err := IssueToken(testSecret, "bob", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	claims.UserID = ""
	if claims.Identity() != "bob" {
		t.Errorf("Expected sub fallback to bob, got %q", claims.Identity())
	}
}
