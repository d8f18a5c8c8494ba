package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inr99/academy/pkg/response"
)

func str(s string) *string { return &s }

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, store, nil), store
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	svc, _ := newTestService()
	c, err := svc.CreateCategory(context.Background(), CategoryInput{Name: str("  Data Science & AI ")})
	require.NoError(t, err)
	assert.Equal(t, "Data Science & AI", c.Name)
	assert.Equal(t, "data-science-and-ai", c.Slug)
	assert.True(t, c.IsActive)
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, CategoryInput{Name: str("   ")})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: str("Finance"), Slug: str("Not A Slug")})
	assert.ErrorIs(t, err, ErrInvalidSlug)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: str("Finance")})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: str("finance")})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: str("Personal Finance"), Slug: str("finance")})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestUpdateCategoryExcludesSelf(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	id := store.addCategory("Coding")
	store.addCategory("Design")

	c, err := svc.UpdateCategory(ctx, id, CategoryInput{Name: str("Coding"), Description: str("Learn to code")})
	require.NoError(t, err)
	assert.Equal(t, "Learn to code", c.Description)

	_, err = svc.UpdateCategory(ctx, id, CategoryInput{Name: str("Design")})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.UpdateCategory(ctx, uuid.New(), CategoryInput{})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestDeleteCategoryBlockedByDependents(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	withCourse := store.addCategory("Coding")
	store.addCourse("go-basics", &withCourse, nil)
	withSub := store.addCategory("Design")
	_, err := svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: str(withSub.String()), Name: str("UI")})
	require.NoError(t, err)
	empty := store.addCategory("Empty")

	assert.ErrorIs(t, svc.DeleteCategory(ctx, withCourse), ErrCategoryInUse)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, withSub), ErrCategoryInUse)
	assert.NoError(t, svc.DeleteCategory(ctx, empty))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, empty), ErrCategoryNotFound)
}

func TestSubCategoryUniquenessIsScopedToParent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	a := store.addCategory("Coding")
	b := store.addCategory("Design")

	_, err := svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: str(a.String()), Name: str("Basics")})
	require.NoError(t, err)
	_, err = svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: str(b.String()), Name: str("Basics")})
	require.NoError(t, err)
	_, err = svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: str(a.String()), Name: str("basics")})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: str(uuid.NewString()), Name: str("Orphan")})
	assert.ErrorIs(t, err, ErrParentNotFound)
	_, err = svc.CreateSubCategory(ctx, SubCategoryInput{Name: str("Orphan")})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestDeleteSubCategoryBlockedByCourses(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	cat := store.addCategory("Coding")
	sc, err := svc.CreateSubCategory(ctx, SubCategoryInput{CategoryID: str(cat.String()), Name: str("Go")})
	require.NoError(t, err)
	store.addCourse("go-basics", &cat, &sc.ID)

	assert.ErrorIs(t, svc.DeleteSubCategory(ctx, sc.ID), ErrSubCategoryInUse)
}

func TestListCategoriesCounts(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	cat := store.addCategory("Coding")
	store.addCourse("a", &cat, nil)
	store.addCourse("b", &cat, nil)
	off := false
	_, err := svc.CreateCategory(ctx, CategoryInput{Name: str("Hidden"), IsActive: &off})
	require.NoError(t, err)

	page, err := svc.ListCategories(ctx, CategoryFilter{}, response.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].CourseCount)

	page, err = svc.ListCategories(ctx, CategoryFilter{IncludeInactive: true}, response.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Meta.Total)
}

func TestPublicCourseLookup(t *testing.T) {
	svc, store := newTestService()
	store.addCourse("budgeting", nil, nil)

	d, err := svc.Course(context.Background(), "budgeting")
	require.NoError(t, err)
	assert.NotNil(t, d.Lessons)
	assert.NotNil(t, d.Assessments)

	_, err = svc.Course(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}
