package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/response"
)

const courseColumns = `co.id, co.title, co.slug, co.description, co.category_id, co.sub_category_id, co.instructor_id,
	co.level, co.price, co.thumbnail_url, co.is_active, co.created_at`

func courseFields(c *models.Course) []any {
	return []any{&c.ID, &c.Title, &c.Slug, &c.Description, &c.CategoryID, &c.SubCategoryID, &c.InstructorID,
		&c.Level, &c.Price, &c.ThumbnailURL, &c.IsActive, &c.CreatedAt}
}

// CategoryTree returns active categories, each with its active subcategories, in sort order.
func (r *Repository) CategoryTree(ctx context.Context) ([]models.CategoryTree, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.is_active ORDER BY c.sort_order, c.name`)
	if err != nil {
		return nil, err
	}
	var tree []models.CategoryTree
	index := map[string]int{}
	for rows.Next() {
		var t models.CategoryTree
		if err := rows.Scan(categoryFields(&t.Category)...); err != nil {
			rows.Close()
			return nil, err
		}
		t.SubCategories = []models.SubCategory{}
		index[t.ID.String()] = len(tree)
		tree = append(tree, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `SELECT `+subCategoryColumns+` FROM sub_categories s
		JOIN categories c ON c.id = s.category_id
		WHERE s.is_active AND c.is_active
		ORDER BY s.sort_order, s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s models.SubCategory
		if err := rows.Scan(subCategoryFields(&s)...); err != nil {
			return nil, err
		}
		if i, ok := index[s.CategoryID.String()]; ok {
			tree[i].SubCategories = append(tree[i].SubCategories, s)
		}
	}
	return tree, rows.Err()
}

// ListCourses returns a page of active courses.
func (r *Repository) ListCourses(ctx context.Context, f CourseFilter, p response.Page) ([]models.Course, int, error) {
	var w where
	w.raw("co.is_active")
	if f.Category != "" {
		w.add("co.category_id = (SELECT id FROM categories WHERE slug = $%d)", f.Category)
	}
	if f.SubCategory != "" {
		w.add("co.sub_category_id IN (SELECT id FROM sub_categories WHERE slug = $%d)", f.SubCategory)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("(co.title ILIKE $%[1]d OR co.description ILIKE $%[1]d)", likePattern(q))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses co`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.page(p)
	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+` FROM courses co`+w.String()+` ORDER BY co.created_at DESC, co.id`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(courseFields(&c)...); err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	return list, total, rows.Err()
}

// GetCourseDetail loads a course by id or slug with its curriculum.
func (r *Repository) GetCourseDetail(ctx context.Context, idOrSlug string) (*models.CourseDetail, error) {
	var d models.CourseDetail
	err := r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses co WHERE co.id = $1 OR co.slug = $1 LIMIT 1`, idOrSlug).
		Scan(courseFields(&d.Course)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	if d.CategoryID != nil {
		if d.Category, err = r.GetCategory(ctx, *d.CategoryID); err != nil && !errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
	}
	if d.SubCategoryID != nil {
		if d.SubCategory, err = r.GetSubCategory(ctx, *d.SubCategoryID); err != nil && !errors.Is(err, ErrSubCategoryNotFound) {
			return nil, err
		}
	}
	if d.InstructorID != nil {
		var u models.UserPublic
		err := r.db.QueryRow(ctx, `SELECT id, email, name, role FROM users WHERE id = $1`, *d.InstructorID).
			Scan(&u.ID, &u.Email, &u.Name, &u.Role)
		switch {
		case err == nil:
			d.Instructor = &u
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, err
		}
	}

	if d.Lessons, err = r.lessons(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Assessments, err = r.assessments(ctx, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) lessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	rows, err := r.db.Query(ctx, `SELECT id, course_id, title, content, video_url, duration, "order", is_free
		FROM lessons WHERE course_id = $1 ORDER BY "order"`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.VideoURL, &l.Duration, &l.Order, &l.IsFree); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *Repository) assessments(ctx context.Context, courseID string) ([]models.AssessmentSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title, type, "order", passing_score,
			CASE WHEN jsonb_typeof(questions) = 'array' THEN jsonb_array_length(questions) ELSE 0 END
		FROM assessments WHERE course_id = $1 ORDER BY "order"`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AssessmentSummary
	for rows.Next() {
		var a models.AssessmentSummary
		if err := rows.Scan(&a.ID, &a.Title, &a.Type, &a.Order, &a.PassingScore, &a.QuestionCount); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
