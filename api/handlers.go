package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/csousa/bookdata-api/auth"
	"github.com/csousa/bookdata-api/catalog"
	"github.com/csousa/bookdata-api/insights"
)

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": status})
}

func (s *Server) health(c *gin.Context) {
	if s.store.Len() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"message": "book data is not loaded",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "API is up and book data is loaded",
	})
}

func (s *Server) listBooks(c *gin.Context) {
	books := s.store.List()
	if len(books) == 0 {
		fail(c, http.StatusNotFound, "no books found")
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) getBook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "book id must be an integer")
		return
	}

	book, err := s.store.Get(id)
	if errors.Is(err, catalog.ErrNotFound) {
		fail(c, http.StatusNotFound, fmt.Sprintf("book with id %d not found", id))
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) searchBooks(c *gin.Context) {
	title := c.Query("title")
	category := c.Query("category")

	books, err := insights.Search(s.store.List(), title, category)
	if errors.Is(err, insights.ErrNoSearchCriteria) {
		fail(c, http.StatusBadRequest, "provide a title or a category to search")
		return
	}
	if len(books) == 0 {
		fail(c, http.StatusNotFound, "no books matched the search criteria")
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) priceRange(c *gin.Context) {
	min, err := decimal.NewFromString(c.Query("min"))
	if err != nil {
		fail(c, http.StatusBadRequest, "min must be a decimal number")
		return
	}
	max, err := decimal.NewFromString(c.Query("max"))
	if err != nil {
		fail(c, http.StatusBadRequest, "max must be a decimal number")
		return
	}

	books, err := insights.PriceRange(s.store.List(), min, max)
	if errors.Is(err, insights.ErrInvalidPriceRange) {
		fail(c, http.StatusBadRequest, "min cannot exceed max")
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) topRated(c *gin.Context) {
	c.JSON(http.StatusOK, insights.TopRated(s.store.List()))
}

func (s *Server) listCategories(c *gin.Context) {
	categories := s.store.Categories()
	if len(categories) == 0 {
		fail(c, http.StatusNotFound, "no categories found")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Server) statsOverview(c *gin.Context) {
	stats := insights.Overview(s.store.List())

	// The original API renders distribution keys as "<n>_stars".
	distribution := make(map[string]int, len(stats.RatingDistribution))
	for rating, count := range stats.RatingDistribution {
		distribution[fmt.Sprintf("%d_stars", rating)] = count
	}

	c.JSON(http.StatusOK, gin.H{
		"total_books":         stats.TotalBooks,
		"average_price":       stats.AveragePrice,
		"rating_distribution": distribution,
	})
}

func (s *Server) statsByCategory(c *gin.Context) {
	c.JSON(http.StatusOK, insights.ByCategory(s.store.List()))
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		fail(c, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	s.issueToken(c, user.Username)
}

func (s *Server) refresh(c *gin.Context) {
	username := c.GetString(auth.ContextUserKey)
	s.issueToken(c, username)
}

func (s *Server) issueToken(c *gin.Context, username string) {
	token, err := s.tokens.Issue(username)
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) reload(c *gin.Context) {
	snap, err := catalog.LoadCSV(s.cfg.DataFile)
	if err != nil {
		fail(c, http.StatusInternalServerError, fmt.Sprintf("reload failed: %v", err))
		return
	}

	s.store.Replace(snap)
	s.metrics.SetCatalogSize(snap.Len())
	c.JSON(http.StatusOK, gin.H{"total_books": snap.Len()})
}
