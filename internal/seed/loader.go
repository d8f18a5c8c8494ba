package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
)

var (
	ErrUnknownCategory    = errors.New("category not found")
	ErrUnknownSubCategory = errors.New("subcategory not found")
	ErrUnknownInstructor  = errors.New("instructor not found")
)

// Writer is the transactional view the loader writes through.
type Writer interface {
	EnsureCategory(ctx context.Context, c CategorySpec) (uuid.UUID, error)
	EnsureSubCategory(ctx context.Context, categoryID uuid.UUID, sc SubCategorySpec) error
	CategoryID(ctx context.Context, slug string) (uuid.UUID, error)
	SubCategoryID(ctx context.Context, categoryID uuid.UUID, slug string) (uuid.UUID, error)
	UserIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
	UpsertCourse(ctx context.Context, c *models.Course) error
	DeleteCurriculum(ctx context.Context, courseID string) error
	// InsertLesson reports false when skipExisting is set and the order is already taken.
	InsertLesson(ctx context.Context, l *models.Lesson, skipExisting bool) (bool, error)
	InsertAssessment(ctx context.Context, a *models.Assessment, skipExisting bool) (bool, error)
}

// Runner runs fn in one database transaction.
type Runner interface {
	WithinTx(ctx context.Context, fn func(w Writer) error) error
}

// Report summarizes one loaded manifest.
type Report struct {
	Source              string `json:"source"`
	Course              string `json:"course"`
	LessonsInserted     int    `json:"lessonsInserted"`
	AssessmentsInserted int    `json:"assessmentsInserted"`
	Skipped             int    `json:"skipped"`
	Error               string `json:"error,omitempty"`
}

// Loader applies manifests to the database.
type Loader struct {
	runner Runner
	logger *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(runner Runner, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{runner: runner, logger: logger}
}

// Load validates m and writes it in one transaction. A non-empty override replaces the manifest's policy.
func (l *Loader) Load(ctx context.Context, m *Manifest, override Policy) (*Report, error) {
	if override != "" {
		m.Policy = override
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var rep Report
	err := l.runner.WithinTx(ctx, func(w Writer) error {
		rep = Report{Source: m.Source, Course: m.Course.ID}
		return l.apply(ctx, w, m, &rep)
	})
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", m.Course.ID, err)
	}
	l.logger.Info("manifest loaded",
		zap.String("course", rep.Course),
		zap.String("policy", string(m.Policy)),
		zap.Int("lessons_inserted", rep.LessonsInserted),
		zap.Int("assessments_inserted", rep.AssessmentsInserted),
		zap.Int("skipped", rep.Skipped))
	return &rep, nil
}

// LoadFiles parses and loads each path in order. A failing manifest is reported and the rest still load.
func (l *Loader) LoadFiles(ctx context.Context, paths []string, override Policy) ([]Report, error) {
	reports := make([]Report, 0, len(paths))
	var errs []error
	for _, p := range paths {
		m, err := ParseFile(p)
		if err == nil {
			var rep *Report
			if rep, err = l.Load(ctx, m, override); err == nil {
				reports = append(reports, *rep)
				continue
			}
		}
		l.logger.Error("manifest failed", zap.String("source", p), zap.Error(err))
		reports = append(reports, Report{Source: p, Error: err.Error()})
		errs = append(errs, fmt.Errorf("%s: %w", p, err))
	}
	return reports, errors.Join(errs...)
}

func (l *Loader) apply(ctx context.Context, w Writer, m *Manifest, rep *Report) error {
	for _, cat := range m.Taxonomy {
		id, err := w.EnsureCategory(ctx, cat)
		if err != nil {
			return fmt.Errorf("ensure category %s: %w", cat.Slug, err)
		}
		for _, sc := range cat.SubCategories {
			if err := w.EnsureSubCategory(ctx, id, sc); err != nil {
				return fmt.Errorf("ensure subcategory %s/%s: %w", cat.Slug, sc.Slug, err)
			}
		}
	}

	course, err := l.resolveCourse(ctx, w, m.Course)
	if err != nil {
		return err
	}
	if err := w.UpsertCourse(ctx, course); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}

	skip := m.Policy == PolicySkipExisting
	if !skip {
		if err := w.DeleteCurriculum(ctx, course.ID); err != nil {
			return fmt.Errorf("clear curriculum: %w", err)
		}
	}

	for _, ls := range m.Lessons {
		ok, err := w.InsertLesson(ctx, &models.Lesson{
			CourseID: course.ID,
			Title:    ls.Title,
			Content:  ls.Content,
			VideoURL: ls.VideoURL,
			Duration: ls.Duration,
			Order:    ls.Order,
			IsFree:   ls.IsFree,
		}, skip)
		if err != nil {
			return fmt.Errorf("lesson %d: %w", ls.Order, err)
		}
		if ok {
			rep.LessonsInserted++
		} else {
			rep.Skipped++
		}
	}

	for _, as := range m.Assessments {
		questions, err := json.Marshal(as.Questions)
		if err != nil {
			return fmt.Errorf("assessment %d questions: %w", as.Order, err)
		}
		if as.Questions == nil {
			questions = []byte("[]")
		}
		passing := 60
		if as.PassingScore != nil {
			passing = *as.PassingScore
		}
		ok, err := w.InsertAssessment(ctx, &models.Assessment{
			CourseID:     course.ID,
			Title:        as.Title,
			Type:         as.Type,
			Order:        as.Order,
			PassingScore: passing,
			Questions:    questions,
		}, skip)
		if err != nil {
			return fmt.Errorf("assessment %d: %w", as.Order, err)
		}
		if ok {
			rep.AssessmentsInserted++
		} else {
			rep.Skipped++
		}
	}
	return nil
}

func (l *Loader) resolveCourse(ctx context.Context, w Writer, spec CourseSpec) (*models.Course, error) {
	catID, err := w.CategoryID(ctx, spec.Category)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", spec.Category, err)
	}
	c := &models.Course{
		ID:           spec.ID,
		Title:        spec.Title,
		Slug:         spec.Slug,
		Description:  spec.Description,
		CategoryID:   &catID,
		Level:        spec.Level,
		Price:        spec.Price,
		ThumbnailURL: spec.ThumbnailURL,
		IsActive:     spec.IsActive == nil || *spec.IsActive,
	}
	if spec.Subcategory != "" {
		id, err := w.SubCategoryID(ctx, catID, spec.Subcategory)
		if err != nil {
			return nil, fmt.Errorf("subcategory %q: %w", spec.Subcategory, err)
		}
		c.SubCategoryID = &id
	}
	if spec.InstructorEmail != "" {
		id, err := w.UserIDByEmail(ctx, spec.InstructorEmail)
		if err != nil {
			return nil, fmt.Errorf("instructor %q: %w", spec.InstructorEmail, err)
		}
		c.InstructorID = &id
	}
	return c, nil
}
