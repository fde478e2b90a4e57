package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linkmint/linkmint/internal/auth"
	"github.com/linkmint/linkmint/internal/core"
	"github.com/linkmint/linkmint/internal/shortener"
)

type shortenRequest struct {
	OriginalURL    string `json:"originalUrl"`
	CustomAlias    string `json:"customAlias"`
	ExpirationDate string `json:"expirationDate"`
	ExpiresInDays  *int   `json:"expiresInDays"`
}

// urlResponse is the record shape the frontend consumes.
type urlResponse struct {
	ID           int64     `json:"id"`
	OriginalURL  string    `json:"originalUrl"`
	ShortURL     string    `json:"shortUrl"`
	FullShortURL string    `json:"fullShortUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ClickCount   int64     `json:"clickCount"`
}

func (s *Server) toURLResponse(link core.Link) urlResponse {
	return urlResponse{
		ID:           link.ID,
		OriginalURL:  link.OriginalURL,
		ShortURL:     link.ShortCode,
		FullShortURL: s.baseURL + "/" + link.ShortCode,
		CreatedAt:    link.CreatedAt,
		ExpiresAt:    link.ExpiresAt,
		ClickCount:   link.ClickCount,
	}
}

// expirationFormats are accepted layouts for the expirationDate field. The
// web frontend's datetime-local input omits seconds and zone.
var expirationFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseExpiration(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range expirationFormats {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts, nil
		}
	}
	return nil, core.ErrInvalidExpiration
}

func (s *Server) shortenHandler(c *gin.Context) {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing identity"})
		return
	}

	var req shortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	explicit, err := parseExpiration(req.ExpirationDate)
	if err != nil {
		s.writeError(c, err)
		return
	}

	link, err := s.svc.Shorten(c.Request.Context(), ownerID, shortener.ShortenRequest{
		OriginalURL:    req.OriginalURL,
		CustomAlias:    strings.TrimSpace(req.CustomAlias),
		ExpirationDate: explicit,
		ExpiresInDays:  req.ExpiresInDays,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.toURLResponse(link))
}

func (s *Server) myURLsHandler(c *gin.Context) {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing identity"})
		return
	}

	links, err := s.svc.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]urlResponse, 0, len(links))
	for _, link := range links {
		out = append(out, s.toURLResponse(link))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteHandler(c *gin.Context) {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing identity"})
		return
	}

	if err := s.svc.Delete(c.Request.Context(), c.Param("shortUrl"), ownerID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
