package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/response"
)

// memStore is an in-memory Store and CourseReader.
type memStore struct {
	categories    map[uuid.UUID]*models.Category
	subCategories map[uuid.UUID]*models.SubCategory
	courses       []models.Course
}

func newMemStore() *memStore {
	return &memStore{categories: map[uuid.UUID]*models.Category{}, subCategories: map[uuid.UUID]*models.SubCategory{}}
}

func pageOf[T any](all []T, p response.Page) []T {
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (m *memStore) ListCategories(_ context.Context, f CategoryFilter, p response.Page) ([]models.CategoryWithCounts, int, error) {
	var all []models.CategoryWithCounts
	for _, c := range m.categories {
		if !f.IncludeInactive && !c.IsActive {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Query)) {
			continue
		}
		courses, subs, _ := m.CategoryDependents(context.Background(), c.ID)
		all = append(all, models.CategoryWithCounts{Category: *c, SubCategoryCount: subs, CourseCount: courses})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SortOrder < all[j].SortOrder })
	return pageOf(all, p), len(all), nil
}

func (m *memStore) GetCategory(_ context.Context, id uuid.UUID) (*models.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) FindCategory(_ context.Context, name, slug string, exclude uuid.UUID) (*models.Category, error) {
	var bySlug *models.Category
	for _, c := range m.categories {
		if c.ID == exclude {
			continue
		}
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
		if c.Slug == slug {
			cp := *c
			bySlug = &cp
		}
	}
	return bySlug, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *models.Category) error {
	c.ID = uuid.New()
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateCategory(_ context.Context, c *models.Category) error {
	if _, ok := m.categories[c.ID]; !ok {
		return ErrCategoryNotFound
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) CategoryDependents(_ context.Context, id uuid.UUID) (int, int, error) {
	var courses, subs int
	for _, c := range m.courses {
		if c.CategoryID != nil && *c.CategoryID == id {
			courses++
		}
	}
	for _, s := range m.subCategories {
		if s.CategoryID == id {
			subs++
		}
	}
	return courses, subs, nil
}

func (m *memStore) SetCategoryOrder(_ context.Context, id uuid.UUID, order int) error {
	c, ok := m.categories[id]
	if !ok {
		return ErrCategoryNotFound
	}
	c.SortOrder = order
	return nil
}

func (m *memStore) ListSubCategories(_ context.Context, f SubCategoryFilter, p response.Page) ([]models.SubCategoryWithCounts, int, error) {
	var all []models.SubCategoryWithCounts
	for _, s := range m.subCategories {
		if f.CategoryID != nil && s.CategoryID != *f.CategoryID {
			continue
		}
		if !f.IncludeInactive && !s.IsActive {
			continue
		}
		n, _ := m.SubCategoryCourses(context.Background(), s.ID)
		all = append(all, models.SubCategoryWithCounts{SubCategory: *s, CourseCount: n})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SortOrder < all[j].SortOrder })
	return pageOf(all, p), len(all), nil
}

func (m *memStore) GetSubCategory(_ context.Context, id uuid.UUID) (*models.SubCategory, error) {
	s, ok := m.subCategories[id]
	if !ok {
		return nil, ErrSubCategoryNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) FindSubCategory(_ context.Context, categoryID uuid.UUID, name, slug string, exclude uuid.UUID) (*models.SubCategory, error) {
	var bySlug *models.SubCategory
	for _, s := range m.subCategories {
		if s.ID == exclude || s.CategoryID != categoryID {
			continue
		}
		if strings.EqualFold(s.Name, name) {
			cp := *s
			return &cp, nil
		}
		if s.Slug == slug {
			cp := *s
			bySlug = &cp
		}
	}
	return bySlug, nil
}

func (m *memStore) CreateSubCategory(_ context.Context, s *models.SubCategory) error {
	s.ID = uuid.New()
	cp := *s
	m.subCategories[s.ID] = &cp
	return nil
}

func (m *memStore) UpdateSubCategory(_ context.Context, s *models.SubCategory) error {
	if _, ok := m.subCategories[s.ID]; !ok {
		return ErrSubCategoryNotFound
	}
	cp := *s
	m.subCategories[s.ID] = &cp
	return nil
}

func (m *memStore) DeleteSubCategory(_ context.Context, id uuid.UUID) error {
	if _, ok := m.subCategories[id]; !ok {
		return ErrSubCategoryNotFound
	}
	delete(m.subCategories, id)
	return nil
}

func (m *memStore) SubCategoryCourses(_ context.Context, id uuid.UUID) (int, error) {
	var n int
	for _, c := range m.courses {
		if c.SubCategoryID != nil && *c.SubCategoryID == id {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SetSubCategoryOrder(_ context.Context, id uuid.UUID, order int) error {
	s, ok := m.subCategories[id]
	if !ok {
		return ErrSubCategoryNotFound
	}
	s.SortOrder = order
	return nil
}

func (m *memStore) CategoryTree(context.Context) ([]models.CategoryTree, error) {
	var tree []models.CategoryTree
	for _, c := range m.categories {
		if !c.IsActive {
			continue
		}
		t := models.CategoryTree{Category: *c, SubCategories: []models.SubCategory{}}
		for _, s := range m.subCategories {
			if s.CategoryID == c.ID && s.IsActive {
				t.SubCategories = append(t.SubCategories, *s)
			}
		}
		tree = append(tree, t)
	}
	return tree, nil
}

func (m *memStore) ListCourses(_ context.Context, f CourseFilter, p response.Page) ([]models.Course, int, error) {
	var all []models.Course
	for _, c := range m.courses {
		if !c.IsActive {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Query)) {
			continue
		}
		all = append(all, c)
	}
	return pageOf(all, p), len(all), nil
}

func (m *memStore) GetCourseDetail(_ context.Context, idOrSlug string) (*models.CourseDetail, error) {
	for _, c := range m.courses {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			return &models.CourseDetail{Course: c}, nil
		}
	}
	return nil, ErrCourseNotFound
}

func (m *memStore) addCategory(name string) uuid.UUID {
	c := &models.Category{Name: name, Slug: strings.ToLower(strings.ReplaceAll(name, " ", "-")), IsActive: true}
	_ = m.CreateCategory(context.Background(), c)
	return c.ID
}

func (m *memStore) addCourse(id string, categoryID, subCategoryID *uuid.UUID) {
	m.courses = append(m.courses, models.Course{ID: id, Title: id, Slug: id, CategoryID: categoryID, SubCategoryID: subCategoryID, IsActive: true})
}
