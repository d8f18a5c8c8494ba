package certificates

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
	"github.com/inr99/academy/pkg/response"
)

// ErrNotFound is returned for an unknown certificate number.
var ErrNotFound = errors.New("certificate not found")

// Verification is the public verify response.
type Verification struct {
	Valid       bool                            `json:"valid"`
	Certificate *models.CertificateVerification `json:"certificate,omitempty"`
}

// Finder looks certificates up by number.
type Finder interface {
	FindByNumber(ctx context.Context, number string) (*models.CertificateVerification, error)
}

// Repository is the PostgreSQL Finder.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a certificate repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// FindByNumber joins the certificate with its student and course.
func (r *Repository) FindByNumber(ctx context.Context, number string) (*models.CertificateVerification, error) {
	const q = `SELECT c.certificate_number, c.issued_at, u.name, co.title
		FROM certificates c
		JOIN users u ON u.id = c.user_id
		JOIN courses co ON co.id = c.course_id
		WHERE c.certificate_number = $1`
	var v models.CertificateVerification
	err := r.db.QueryRow(ctx, q, number).Scan(&v.Number, &v.IssuedAt, &v.StudentName, &v.CourseTitle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Handler serves the public verification endpoint.
type Handler struct {
	finder Finder
	logger *zap.Logger
}

// NewHandler creates a certificate handler.
func NewHandler(finder Finder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{finder: finder, logger: logger}
}

// Register mounts GET /certificates/verify/:number.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/certificates/verify/:number", h.Verify)
}

// Verify handles GET /api/certificates/verify/:number.
func (h *Handler) Verify(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		response.NotFoundData(c, Verification{}, ErrNotFound.Error())
		return
	}
	v, err := h.finder.FindByNumber(c.Request.Context(), number)
	switch {
	case err == nil:
		response.OK(c, Verification{Valid: true, Certificate: v})
	case errors.Is(err, ErrNotFound):
		response.NotFoundData(c, Verification{}, err.Error())
	default:
		h.logger.Error("verify certificate", zap.String("number", number), zap.Error(err))
		response.Internal(c, "failed to verify certificate")
	}
}
