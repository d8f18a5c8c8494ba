package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/response"
	"github.com/inr99/academy/pkg/utils"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubCategoryNotFound = errors.New("subcategory not found")
	ErrParentNotFound      = errors.New("parent category not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrNameRequired        = errors.New("name is required")
	ErrInvalidSlug         = errors.New("slug must contain only lowercase letters, digits and hyphens")
	ErrInvalidID           = errors.New("invalid id")
	ErrDuplicateName       = errors.New("name already exists")
	ErrDuplicateSlug       = errors.New("slug already exists")
	ErrCategoryInUse       = errors.New("cannot delete category with existing courses or subcategories")
	ErrSubCategoryInUse    = errors.New("cannot delete subcategory with existing courses")
)

// Store persists categories and subcategories.
type Store interface {
	ListCategories(ctx context.Context, f CategoryFilter, p response.Page) ([]models.CategoryWithCounts, int, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	// FindCategory returns a category other than exclude whose name (case-insensitive) or slug matches, or nil.
	FindCategory(ctx context.Context, name, slug string, exclude uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CategoryDependents(ctx context.Context, id uuid.UUID) (courses, subCategories int, err error)
	SetCategoryOrder(ctx context.Context, id uuid.UUID, order int) error

	ListSubCategories(ctx context.Context, f SubCategoryFilter, p response.Page) ([]models.SubCategoryWithCounts, int, error)
	GetSubCategory(ctx context.Context, id uuid.UUID) (*models.SubCategory, error)
	FindSubCategory(ctx context.Context, categoryID uuid.UUID, name, slug string, exclude uuid.UUID) (*models.SubCategory, error)
	CreateSubCategory(ctx context.Context, s *models.SubCategory) error
	UpdateSubCategory(ctx context.Context, s *models.SubCategory) error
	DeleteSubCategory(ctx context.Context, id uuid.UUID) error
	SubCategoryCourses(ctx context.Context, id uuid.UUID) (int, error)
	SetSubCategoryOrder(ctx context.Context, id uuid.UUID, order int) error
}

// CategoryFilter narrows the admin category listing.
type CategoryFilter struct {
	Query           string
	IncludeInactive bool
}

// SubCategoryFilter narrows the admin subcategory listing.
type SubCategoryFilter struct {
	CategoryID      *uuid.UUID
	Query           string
	IncludeInactive bool
}

// CategoryInput is a create or partial update of a category.
type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
	SortOrder   *int    `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

// SubCategoryInput is a create or partial update of a subcategory.
type SubCategoryInput struct {
	CategoryID  *string `json:"categoryId"`
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

// Service implements catalog administration and the public catalog.
type Service struct {
	store   Store
	courses CourseReader
	logger  *zap.Logger
}

// NewService creates the catalog service.
func NewService(store Store, courses CourseReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, courses: courses, logger: logger}
}

// ListCategories returns a page of categories with their subcategory and course counts.
func (s *Service) ListCategories(ctx context.Context, f CategoryFilter, p response.Page) (*response.Paginated[models.CategoryWithCounts], error) {
	items, total, err := s.store.ListCategories(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	page := response.NewPaginated(items, p, total)
	return &page, nil
}

// CreateCategory validates and inserts a category. The slug is derived from the name unless given.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := trimmed(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	slug, err := resolveSlug(in.Slug, name)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategoryUnique(ctx, name, slug, uuid.Nil); err != nil {
		return nil, err
	}

	c := &models.Category{Name: name, Slug: slug, IsActive: true}
	applyCategory(c, in)
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory applies a partial update.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := trimmed(in.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		c.Name = name
	}
	if in.Slug != nil {
		slug, err := resolveSlug(in.Slug, c.Name)
		if err != nil {
			return nil, err
		}
		c.Slug = slug
	}
	if err := s.checkCategoryUnique(ctx, c.Name, c.Slug, c.ID); err != nil {
		return nil, err
	}
	applyCategory(c, in)
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category that has no courses and no subcategories.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return err
	}
	courses, subs, err := s.store.CategoryDependents(ctx, id)
	if err != nil {
		return fmt.Errorf("count dependents: %w", err)
	}
	if courses > 0 || subs > 0 {
		return fmt.Errorf("%w (%d courses, %d subcategories)", ErrCategoryInUse, courses, subs)
	}
	return s.store.DeleteCategory(ctx, id)
}

func (s *Service) checkCategoryUnique(ctx context.Context, name, slug string, exclude uuid.UUID) error {
	other, err := s.store.FindCategory(ctx, name, slug, exclude)
	if err != nil {
		return fmt.Errorf("check uniqueness: %w", err)
	}
	return conflict(other != nil, other != nil && strings.EqualFold(other.Name, name), name, slug)
}

// ListSubCategories returns a page of subcategories with their course counts.
func (s *Service) ListSubCategories(ctx context.Context, f SubCategoryFilter, p response.Page) (*response.Paginated[models.SubCategoryWithCounts], error) {
	items, total, err := s.store.ListSubCategories(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	page := response.NewPaginated(items, p, total)
	return &page, nil
}

// CreateSubCategory validates and inserts a subcategory under an existing category.
func (s *Service) CreateSubCategory(ctx context.Context, in SubCategoryInput) (*models.SubCategory, error) {
	parentID, err := s.parent(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	name := trimmed(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	slug, err := resolveSlug(in.Slug, name)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubCategoryUnique(ctx, parentID, name, slug, uuid.Nil); err != nil {
		return nil, err
	}

	sc := &models.SubCategory{CategoryID: parentID, Name: name, Slug: slug, IsActive: true}
	applySubCategory(sc, in)
	if err := s.store.CreateSubCategory(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// UpdateSubCategory applies a partial update, optionally moving it to another category.
func (s *Service) UpdateSubCategory(ctx context.Context, id uuid.UUID, in SubCategoryInput) (*models.SubCategory, error) {
	sc, err := s.store.GetSubCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		parentID, err := s.parent(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		sc.CategoryID = parentID
	}
	if in.Name != nil {
		name := trimmed(in.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		sc.Name = name
	}
	if in.Slug != nil {
		slug, err := resolveSlug(in.Slug, sc.Name)
		if err != nil {
			return nil, err
		}
		sc.Slug = slug
	}
	if err := s.checkSubCategoryUnique(ctx, sc.CategoryID, sc.Name, sc.Slug, sc.ID); err != nil {
		return nil, err
	}
	applySubCategory(sc, in)
	if err := s.store.UpdateSubCategory(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// DeleteSubCategory removes a subcategory that has no courses.
func (s *Service) DeleteSubCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetSubCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.store.SubCategoryCourses(ctx, id)
	if err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w (%d courses)", ErrSubCategoryInUse, n)
	}
	return s.store.DeleteSubCategory(ctx, id)
}

func (s *Service) parent(ctx context.Context, raw *string) (uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return uuid.Nil, fmt.Errorf("%w: categoryId is required", ErrInvalidID)
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: categoryId", ErrInvalidID)
	}
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return uuid.Nil, ErrParentNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Service) checkSubCategoryUnique(ctx context.Context, categoryID uuid.UUID, name, slug string, exclude uuid.UUID) error {
	other, err := s.store.FindSubCategory(ctx, categoryID, name, slug, exclude)
	if err != nil {
		return fmt.Errorf("check uniqueness: %w", err)
	}
	return conflict(other != nil, other != nil && strings.EqualFold(other.Name, name), name, slug)
}

func conflict(found, sameName bool, name, slug string) error {
	switch {
	case !found:
		return nil
	case sameName:
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	default:
		return fmt.Errorf("%w: %q", ErrDuplicateSlug, slug)
	}
}

func resolveSlug(given *string, name string) (string, error) {
	if v := trimmed(given); v != "" {
		if !utils.ValidSlug(v) {
			return "", ErrInvalidSlug
		}
		return v, nil
	}
	slug := utils.Slugify(name)
	if slug == "" {
		return "", ErrInvalidSlug
	}
	return slug, nil
}

func applyCategory(c *models.Category, in CategoryInput) {
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func applySubCategory(sc *models.SubCategory, in SubCategoryInput) {
	if in.Description != nil {
		sc.Description = *in.Description
	}
	if in.SortOrder != nil {
		sc.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		sc.IsActive = *in.IsActive
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
