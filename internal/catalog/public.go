package catalog

import (
	"context"
	"fmt"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/response"
)

// CourseReader serves the public catalog.
type CourseReader interface {
	CategoryTree(ctx context.Context) ([]models.CategoryTree, error)
	ListCourses(ctx context.Context, f CourseFilter, p response.Page) ([]models.Course, int, error)
	// GetCourseDetail looks a course up by id or slug.
	GetCourseDetail(ctx context.Context, idOrSlug string) (*models.CourseDetail, error)
}

// CourseFilter narrows the public course listing. Slugs select the category and subcategory.
type CourseFilter struct {
	Category    string
	SubCategory string
	Query       string
}

// Categories returns active categories with their active subcategories.
func (s *Service) Categories(ctx context.Context) ([]models.CategoryTree, error) {
	tree, err := s.courses.CategoryTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("category tree: %w", err)
	}
	if tree == nil {
		tree = []models.CategoryTree{}
	}
	return tree, nil
}

// Courses returns a page of active courses.
func (s *Service) Courses(ctx context.Context, f CourseFilter, p response.Page) (*response.Paginated[models.Course], error) {
	items, total, err := s.courses.ListCourses(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	page := response.NewPaginated(items, p, total)
	return &page, nil
}

// Course returns a course with its ordered lessons and assessment summaries.
func (s *Service) Course(ctx context.Context, idOrSlug string) (*models.CourseDetail, error) {
	d, err := s.courses.GetCourseDetail(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if d.Lessons == nil {
		d.Lessons = []models.Lesson{}
	}
	if d.Assessments == nil {
		d.Assessments = []models.AssessmentSummary{}
	}
	return d, nil
}
