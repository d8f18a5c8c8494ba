package seed

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inr99/academy/internal/models"
)

type curriculumKey struct {
	course string
	order  int
}

// memDB is an in-memory Runner whose transactions roll back on error.
type memDB struct {
	categories    map[string]uuid.UUID
	subCategories map[string]uuid.UUID // categoryID/slug
	users         map[string]uuid.UUID
	courses       map[string]models.Course
	lessons       map[curriculumKey]models.Lesson
	assessments   map[curriculumKey]models.Assessment
	failLessons   bool
}

func newMemDB() *memDB {
	return &memDB{
		categories:    map[string]uuid.UUID{},
		subCategories: map[string]uuid.UUID{},
		users:         map[string]uuid.UUID{},
		courses:       map[string]models.Course{},
		lessons:       map[curriculumKey]models.Lesson{},
		assessments:   map[curriculumKey]models.Assessment{},
	}
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memDB) WithinTx(_ context.Context, fn func(w Writer) error) error {
	snapshot := *d
	snapshot.categories = clone(d.categories)
	snapshot.subCategories = clone(d.subCategories)
	snapshot.courses = clone(d.courses)
	snapshot.lessons = clone(d.lessons)
	snapshot.assessments = clone(d.assessments)
	if err := fn(d); err != nil {
		*d = snapshot
		return err
	}
	return nil
}

func (d *memDB) EnsureCategory(_ context.Context, c CategorySpec) (uuid.UUID, error) {
	if id, ok := d.categories[c.Slug]; ok {
		return id, nil
	}
	id := uuid.New()
	d.categories[c.Slug] = id
	return id, nil
}

func (d *memDB) EnsureSubCategory(_ context.Context, categoryID uuid.UUID, sc SubCategorySpec) error {
	key := categoryID.String() + "/" + sc.Slug
	if _, ok := d.subCategories[key]; !ok {
		d.subCategories[key] = uuid.New()
	}
	return nil
}

func (d *memDB) CategoryID(_ context.Context, slug string) (uuid.UUID, error) {
	id, ok := d.categories[slug]
	if !ok {
		return uuid.Nil, ErrUnknownCategory
	}
	return id, nil
}

func (d *memDB) SubCategoryID(_ context.Context, categoryID uuid.UUID, slug string) (uuid.UUID, error) {
	id, ok := d.subCategories[categoryID.String()+"/"+slug]
	if !ok {
		return uuid.Nil, ErrUnknownSubCategory
	}
	return id, nil
}

func (d *memDB) UserIDByEmail(_ context.Context, email string) (uuid.UUID, error) {
	id, ok := d.users[strings.ToLower(email)]
	if !ok {
		return uuid.Nil, ErrUnknownInstructor
	}
	return id, nil
}

func (d *memDB) UpsertCourse(_ context.Context, c *models.Course) error {
	d.courses[c.ID] = *c
	return nil
}

func (d *memDB) DeleteCurriculum(_ context.Context, courseID string) error {
	for k := range d.lessons {
		if k.course == courseID {
			delete(d.lessons, k)
		}
	}
	for k := range d.assessments {
		if k.course == courseID {
			delete(d.assessments, k)
		}
	}
	return nil
}

func (d *memDB) InsertLesson(_ context.Context, l *models.Lesson, skipExisting bool) (bool, error) {
	if d.failLessons {
		return false, errors.New("disk full")
	}
	k := curriculumKey{l.CourseID, l.Order}
	if _, ok := d.lessons[k]; ok {
		if skipExisting {
			return false, nil
		}
		return false, errors.New("duplicate lesson order")
	}
	d.lessons[k] = *l
	return true, nil
}

func (d *memDB) InsertAssessment(_ context.Context, a *models.Assessment, skipExisting bool) (bool, error) {
	k := curriculumKey{a.CourseID, a.Order}
	if _, ok := d.assessments[k]; ok {
		if skipExisting {
			return false, nil
		}
		return false, errors.New("duplicate assessment order")
	}
	d.assessments[k] = *a
	return true, nil
}

func (d *memDB) seedTaxonomy() {
	cat := uuid.New()
	d.categories["finance"] = cat
	d.subCategories[cat.String()+"/budgeting"] = uuid.New()
}

func TestParseAppliesDefaults(t *testing.T) {
	m, err := ParseFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)

	assert.Equal(t, PolicySkipExisting, m.Policy)
	assert.Equal(t, "test-course", m.Course.Slug)
	assert.Equal(t, "BEGINNER", m.Course.Level)
	assert.Equal(t, models.AssessmentQuiz, m.Assessments[0].Type)
	assert.NoError(t, m.Validate())
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("course:\n  id: x\n  titel: typo\n"))
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestValidateCollectsProblems(t *testing.T) {
	m, err := ParseFile(filepath.Join("testdata", "invalid.yaml"))
	require.NoError(t, err)

	err = m.Validate()
	require.ErrorIs(t, err, ErrInvalidManifest)
	msg := err.Error()
	assert.Contains(t, msg, `policy "overwrite"`)
	assert.Contains(t, msg, "course.id is required")
	assert.Contains(t, msg, "lessons[1].order 1 is duplicated")
	assert.Contains(t, msg, "lessons[1].duration must be >= 0")
}

func TestDiscover(t *testing.T) {
	all, err := Discover("testdata", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "invalid.yaml"), filepath.Join("testdata", "valid.yaml")}, all)

	picked, err := Discover("testdata", []string{"valid.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "valid.yaml")}, picked)
}

func TestLoadSkipExistingThenReplace(t *testing.T) {
	db := newMemDB()
	db.seedTaxonomy()
	loader := NewLoader(db, nil)
	ctx := context.Background()

	m, err := ParseFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)
	rep, err := loader.Load(ctx, m, "")
	require.NoError(t, err)
	assert.Equal(t, Report{Source: m.Source, Course: "course-test", LessonsInserted: 2, AssessmentsInserted: 1}, *rep)
	assert.NotNil(t, db.courses["course-test"].SubCategoryID)
	assert.JSONEq(t, `[{"prompt":"2 + 2?","answer":4}]`, string(db.assessments[curriculumKey{"course-test", 1}].Questions))

	rep, err = loader.Load(ctx, m, "")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.LessonsInserted)
	assert.Equal(t, 3, rep.Skipped)

	m.Lessons = m.Lessons[:1]
	rep, err = loader.Load(ctx, m, PolicyReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.LessonsInserted)
	assert.Equal(t, 0, rep.Skipped)
	assert.Len(t, db.lessons, 1)
}

func TestLoadRollsBackOnFailure(t *testing.T) {
	db := newMemDB()
	db.seedTaxonomy()
	db.failLessons = true
	loader := NewLoader(db, nil)

	m, err := ParseFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), m, "")
	require.Error(t, err)
	assert.Empty(t, db.courses)
}

func TestLoadResolvesReferences(t *testing.T) {
	db := newMemDB()
	loader := NewLoader(db, nil)
	ctx := context.Background()

	m, err := ParseFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)
	_, err = loader.Load(ctx, m, "")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	m.Taxonomy = []CategorySpec{{Name: "Finance", Slug: "finance", SubCategories: []SubCategorySpec{{Name: "Budgeting", Slug: "budgeting"}}}}
	m.Course.InstructorEmail = "Instructor@Example.com"
	_, err = loader.Load(ctx, m, "")
	assert.ErrorIs(t, err, ErrUnknownInstructor)

	db.users["instructor@example.com"] = uuid.New()
	_, err = loader.Load(ctx, m, "")
	require.NoError(t, err)
	assert.Equal(t, db.users["instructor@example.com"], *db.courses["course-test"].InstructorID)
}

func TestLoadFilesReportsEachManifest(t *testing.T) {
	db := newMemDB()
	db.seedTaxonomy()
	loader := NewLoader(db, nil)

	paths, err := Discover("testdata", nil)
	require.NoError(t, err)
	reports, err := loader.LoadFiles(context.Background(), paths, "")
	require.Error(t, err)
	require.Len(t, reports, 2)
	assert.NotEmpty(t, reports[0].Error)
	assert.Empty(t, reports[1].Error)
	assert.Equal(t, 2, reports[1].LessonsInserted)
}

func TestSampleSeedsAreValid(t *testing.T) {
	paths, err := Discover(filepath.Join("..", "..", "seeds"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		m, err := ParseFile(p)
		require.NoError(t, err, p)
		assert.NoError(t, m.Validate(), p)
	}
}
