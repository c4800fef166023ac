package menus

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/google/uuid"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL"
)

// Register mounts the menus routes on r:
//
//	GET    /menus          search with query parameters
//	POST   /menus/_search  search with a JSON body
//	GET    /menus/:id
//	POST   /menus
//	PUT    /menus/:id
//	DELETE /menus/:id
func Register(r gin.IRouter, svc *Service) {
	g := r.Group("/menus")
	g.GET("", SearchHandler(svc))
	g.POST("/_search", SearchBodyHandler(svc))
	g.GET("/:id", GetHandler(svc))
	g.POST("", CreateHandler(svc))
	g.PUT("/:id", UpdateHandler(svc))
	g.DELETE("/:id", DeleteHandler(svc))
}

// NewRouter returns a gin engine serving the menus routes under /api.
func NewRouter(svc *Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	Register(r.Group("/api"), svc)
	return r
}

// GET /api/menus?tenantCode=0&name=系统&page=0&size=10&sort=sort,asc
func SearchHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q Query
		if err := c.ShouldBindQuery(&q); err != nil {
			abort(c, http.StatusBadRequest, CodeInvalidRequest, err)
			return
		}
		runSearch(c, svc, q)
	}
}

// POST /api/menus/_search
func SearchBodyHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q Query
		if err := c.ShouldBindJSON(&q); err != nil {
			abort(c, http.StatusBadRequest, CodeInvalidRequest, err)
			return
		}
		runSearch(c, svc, q)
	}
}

func runSearch(c *gin.Context, svc *Service, q Query) {
	page, err := svc.Search(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/menus/:id
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		m, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// POST /api/menus
func CreateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m Menu
		if err := c.ShouldBindJSON(&m); err != nil {
			abort(c, http.StatusBadRequest, CodeInvalidRequest, err)
			return
		}
		created, err := svc.Create(c.Request.Context(), m)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// PUT /api/menus/:id
func UpdateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var m Menu
		if err := c.ShouldBindJSON(&m); err != nil {
			abort(c, http.StatusBadRequest, CodeInvalidRequest, err)
			return
		}
		m.ID = id
		updated, err := svc.Update(c.Request.Context(), m)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /api/menus/:id
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

// fail maps service errors onto the error envelope.
func fail(c *gin.Context, err error) {
	var (
		cfgErr *criteria.ConfigError
		valErr *ValidationError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		abort(c, http.StatusNotFound, CodeNotFound, err)
	case errors.As(err, &valErr), errors.As(err, &cfgErr), errors.Is(err, criteria.ErrUnknownProperty):
		abort(c, http.StatusBadRequest, CodeInvalidRequest, err)
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, CodeInternal, err)
	}
}

func abort(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": err.Error(), "code": code},
	})
}
