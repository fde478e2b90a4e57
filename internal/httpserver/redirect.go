package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// redirectHandler serves every path no other route claimed. A bare path
// segment is treated as a short code; the landing page for a dead link
// distinguishes a code that never existed from one that expired.
func (s *Server) redirectHandler(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}

	shortCode := strings.Trim(c.Request.URL.Path, "/")
	if shortCode == "" {
		// Root request; point people at the API docs.
		c.Redirect(http.StatusFound, docsURL)
		return
	}
	if strings.Contains(shortCode, "/") {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}

	destination, err := s.svc.Resolve(c.Request.Context(), shortCode)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, destination)
}
