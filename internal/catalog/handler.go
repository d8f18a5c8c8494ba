package catalog

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/response"
)

// Handler serves the admin catalog and the public catalog.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterAdmin mounts category and subcategory management on an ADMIN-only group.
func (h *Handler) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/categories", h.ListCategories)
	g.POST("/categories", h.CreateCategory)
	g.POST("/categories/bulk", h.BulkCategories)
	g.PUT("/categories/:id", h.UpdateCategory)
	g.DELETE("/categories/:id", h.DeleteCategory)

	g.GET("/subcategories", h.ListSubCategories)
	g.POST("/subcategories", h.CreateSubCategory)
	g.POST("/subcategories/bulk", h.BulkSubCategories)
	g.PUT("/subcategories/:id", h.UpdateSubCategory)
	g.DELETE("/subcategories/:id", h.DeleteSubCategory)
}

// RegisterPublic mounts the read-only catalog.
func (h *Handler) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/categories", h.Categories)
	g.GET("/courses", h.Courses)
	g.GET("/courses/:id", h.Course)
}

func includeInactive(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("includeInactive"))
	return v
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// ListCategories handles GET /api/admin/categories?q=&includeInactive=&page=&limit=.
func (h *Handler) ListCategories(c *gin.Context) {
	f := CategoryFilter{Query: c.Query("q"), IncludeInactive: includeInactive(c)}
	page, err := h.svc.ListCategories(c.Request.Context(), f, response.ParsePage(c))
	if err != nil {
		h.fail(c, err, "failed to list categories")
		return
	}
	response.OK(c, page)
}

// CreateCategory handles POST /api/admin/categories.
func (h *Handler) CreateCategory(c *gin.Context) {
	var in CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "failed to create category")
		return
	}
	response.Created(c, cat)
}

// UpdateCategory handles PUT /api/admin/categories/:id.
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat, err := h.svc.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err, "failed to update category")
		return
	}
	response.OK(c, cat)
}

// DeleteCategory handles DELETE /api/admin/categories/:id.
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete category")
		return
	}
	response.OKMessage(c, nil, "category deleted")
}

// BulkCategories handles POST /api/admin/categories/bulk.
func (h *Handler) BulkCategories(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.BulkCategories(c.Request.Context(), req.Operation, req.Data)
	if err != nil {
		h.fail(c, err, "bulk operation failed")
		return
	}
	response.OK(c, res)
}

// ListSubCategories handles GET /api/admin/subcategories?categoryId=&q=&includeInactive=.
func (h *Handler) ListSubCategories(c *gin.Context) {
	f := SubCategoryFilter{Query: c.Query("q"), IncludeInactive: includeInactive(c)}
	if v := c.Query("categoryId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid categoryId")
			return
		}
		f.CategoryID = &id
	}
	page, err := h.svc.ListSubCategories(c.Request.Context(), f, response.ParsePage(c))
	if err != nil {
		h.fail(c, err, "failed to list subcategories")
		return
	}
	response.OK(c, page)
}

// CreateSubCategory handles POST /api/admin/subcategories.
func (h *Handler) CreateSubCategory(c *gin.Context) {
	var in SubCategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sc, err := h.svc.CreateSubCategory(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "failed to create subcategory")
		return
	}
	response.Created(c, sc)
}

// UpdateSubCategory handles PUT /api/admin/subcategories/:id.
func (h *Handler) UpdateSubCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in SubCategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sc, err := h.svc.UpdateSubCategory(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err, "failed to update subcategory")
		return
	}
	response.OK(c, sc)
}

// DeleteSubCategory handles DELETE /api/admin/subcategories/:id.
func (h *Handler) DeleteSubCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteSubCategory(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete subcategory")
		return
	}
	response.OKMessage(c, nil, "subcategory deleted")
}

// BulkSubCategories handles POST /api/admin/subcategories/bulk.
func (h *Handler) BulkSubCategories(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.BulkSubCategories(c.Request.Context(), req.Operation, req.Data)
	if err != nil {
		h.fail(c, err, "bulk operation failed")
		return
	}
	response.OK(c, res)
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(c *gin.Context) {
	tree, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to load categories")
		return
	}
	response.OK(c, tree)
}

// Courses handles GET /api/courses?category=&subcategory=&q=&page=&limit=.
func (h *Handler) Courses(c *gin.Context) {
	f := CourseFilter{Category: c.Query("category"), SubCategory: c.Query("subcategory"), Query: c.Query("q")}
	page, err := h.svc.Courses(c.Request.Context(), f, response.ParsePage(c))
	if err != nil {
		h.fail(c, err, "failed to list courses")
		return
	}
	response.OK(c, page)
}

// Course handles GET /api/courses/:id; the id may also be the course slug.
func (h *Handler) Course(c *gin.Context) {
	d, err := h.svc.Course(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to load course")
		return
	}
	response.OK(c, d)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrCategoryNotFound),
		errors.Is(err, ErrSubCategoryNotFound),
		errors.Is(err, ErrCourseNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrParentNotFound),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidSlug),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrDuplicateSlug),
		errors.Is(err, ErrCategoryInUse),
		errors.Is(err, ErrSubCategoryInUse),
		errors.Is(err, ErrInvalidOperation),
		errors.Is(err, ErrInvalidBulkData):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, msg)
	}
}
