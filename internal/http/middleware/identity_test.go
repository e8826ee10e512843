package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentity(t *testing.T) {
	r := gin.New()
	r.Use(Identity())
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, "[%s]", UserID(c)) })

	cases := map[string]string{
		"":        "[]",
		"   ":     "[]",
		" u-42 ":  "[u-42]",
		"admin-1": "[admin-1]",
	}
	for hdr, want := range cases {
		w := do(r, http.MethodGet, "/me", map[string]string{HeaderUserID: hdr})
		if w.Body.String() != want {
			t.Fatalf("header %q: got %s want %s", hdr, w.Body.String(), want)
		}
	}
}
