package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
	"github.com/inr99/academy/pkg/response"
)

// Repository persists the catalog with pgx.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const (
	categoryColumns    = `c.id, c.name, c.slug, c.description, c.icon, c.color, c.sort_order, c.is_active, c.created_at, c.updated_at`
	subCategoryColumns = `s.id, s.category_id, s.name, s.slug, s.description, s.sort_order, s.is_active, s.created_at, s.updated_at`
)

func categoryFields(c *models.Category) []any {
	return []any{&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.Color, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt}
}

func subCategoryFields(s *models.SubCategory) []any {
	return []any{&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.SortOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt}
}

// where collects numbered SQL conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) raw(cond string) { w.conds = append(w.conds, cond) }

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause with its args.
func (w *where) page(p response.Page) (string, []any) {
	n := len(w.args)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), append(append([]any{}, w.args...), p.Limit, p.Offset())
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// ListCategories returns a page of categories with dependent counts.
func (r *Repository) ListCategories(ctx context.Context, f CategoryFilter, p response.Page) ([]models.CategoryWithCounts, int, error) {
	var w where
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("(c.name ILIKE $%[1]d OR c.slug ILIKE $%[1]d OR c.description ILIKE $%[1]d)", likePattern(q))
	}
	if !f.IncludeInactive {
		w.raw("c.is_active")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories c`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.page(p)
	q := `SELECT ` + categoryColumns + `,
			(SELECT COUNT(*) FROM sub_categories s WHERE s.category_id = c.id),
			(SELECT COUNT(*) FROM courses co WHERE co.category_id = c.id)
		FROM categories c` + w.String() + ` ORDER BY c.sort_order, c.name` + limit
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []models.CategoryWithCounts{}
	for rows.Next() {
		var c models.CategoryWithCounts
		dest := append(categoryFields(&c.Category), &c.SubCategoryCount, &c.CourseCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	return list, total, rows.Err()
}

// GetCategory returns a category by id.
func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id).Scan(categoryFields(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCategory returns a category clashing with name or slug, ignoring exclude.
func (r *Repository) FindCategory(ctx context.Context, name, slug string, exclude uuid.UUID) (*models.Category, error) {
	const q = `SELECT ` + categoryColumns + ` FROM categories c
		WHERE (LOWER(c.name) = LOWER($1) OR c.slug = $2) AND c.id <> $3
		ORDER BY (LOWER(c.name) = LOWER($1)) DESC
		LIMIT 1`
	var c models.Category
	err := r.db.QueryRow(ctx, q, name, slug, exclude).Scan(categoryFields(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts c and fills its generated fields.
func (r *Repository) CreateCategory(ctx context.Context, c *models.Category) error {
	const q = `INSERT INTO categories (name, slug, description, icon, color, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, c.Name, c.Slug, c.Description, c.Icon, c.Color, c.SortOrder, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return duplicate(err, c.Name, c.Slug)
}

// UpdateCategory writes every mutable column of c.
func (r *Repository) UpdateCategory(ctx context.Context, c *models.Category) error {
	const q = `UPDATE categories SET name = $2, slug = $3, description = $4, icon = $5, color = $6, sort_order = $7,
			is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, c.ID, c.Name, c.Slug, c.Description, c.Icon, c.Color, c.SortOrder, c.IsActive).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCategoryNotFound
	}
	return duplicate(err, c.Name, c.Slug)
}

// DeleteCategory removes a category.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if database.IsForeignKeyViolation(err) {
		return ErrCategoryInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// CategoryDependents counts courses and subcategories under a category.
func (r *Repository) CategoryDependents(ctx context.Context, id uuid.UUID) (courses, subCategories int, err error) {
	const q = `SELECT
			(SELECT COUNT(*) FROM courses WHERE category_id = $1),
			(SELECT COUNT(*) FROM sub_categories WHERE category_id = $1)`
	err = r.db.QueryRow(ctx, q, id).Scan(&courses, &subCategories)
	return courses, subCategories, err
}

// SetCategoryOrder sets a category's sort position.
func (r *Repository) SetCategoryOrder(ctx context.Context, id uuid.UUID, order int) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET sort_order = $2, updated_at = NOW() WHERE id = $1`, id, order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// ListSubCategories returns a page of subcategories with course counts.
func (r *Repository) ListSubCategories(ctx context.Context, f SubCategoryFilter, p response.Page) ([]models.SubCategoryWithCounts, int, error) {
	var w where
	if f.CategoryID != nil {
		w.add("s.category_id = $%d", *f.CategoryID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("(s.name ILIKE $%[1]d OR s.slug ILIKE $%[1]d)", likePattern(q))
	}
	if !f.IncludeInactive {
		w.raw("s.is_active")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sub_categories s`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.page(p)
	q := `SELECT ` + subCategoryColumns + `,
			(SELECT COUNT(*) FROM courses co WHERE co.sub_category_id = s.id)
		FROM sub_categories s` + w.String() + ` ORDER BY s.sort_order, s.name` + limit
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []models.SubCategoryWithCounts{}
	for rows.Next() {
		var s models.SubCategoryWithCounts
		if err := rows.Scan(append(subCategoryFields(&s.SubCategory), &s.CourseCount)...); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

// GetSubCategory returns a subcategory by id.
func (r *Repository) GetSubCategory(ctx context.Context, id uuid.UUID) (*models.SubCategory, error) {
	var s models.SubCategory
	err := r.db.QueryRow(ctx, `SELECT `+subCategoryColumns+` FROM sub_categories s WHERE s.id = $1`, id).Scan(subCategoryFields(&s)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindSubCategory returns a subcategory of categoryID clashing with name or slug, ignoring exclude.
func (r *Repository) FindSubCategory(ctx context.Context, categoryID uuid.UUID, name, slug string, exclude uuid.UUID) (*models.SubCategory, error) {
	const q = `SELECT ` + subCategoryColumns + ` FROM sub_categories s
		WHERE s.category_id = $1 AND (LOWER(s.name) = LOWER($2) OR s.slug = $3) AND s.id <> $4
		ORDER BY (LOWER(s.name) = LOWER($2)) DESC
		LIMIT 1`
	var s models.SubCategory
	err := r.db.QueryRow(ctx, q, categoryID, name, slug, exclude).Scan(subCategoryFields(&s)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubCategory inserts s and fills its generated fields.
func (r *Repository) CreateSubCategory(ctx context.Context, s *models.SubCategory) error {
	const q = `INSERT INTO sub_categories (category_id, name, slug, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, s.CategoryID, s.Name, s.Slug, s.Description, s.SortOrder, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrParentNotFound
	}
	return duplicate(err, s.Name, s.Slug)
}

// UpdateSubCategory writes every mutable column of s.
func (r *Repository) UpdateSubCategory(ctx context.Context, s *models.SubCategory) error {
	const q = `UPDATE sub_categories SET category_id = $2, name = $3, slug = $4, description = $5, sort_order = $6,
			is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, s.ID, s.CategoryID, s.Name, s.Slug, s.Description, s.SortOrder, s.IsActive).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSubCategoryNotFound
	}
	if database.IsForeignKeyViolation(err) {
		return ErrParentNotFound
	}
	return duplicate(err, s.Name, s.Slug)
}

// DeleteSubCategory removes a subcategory.
func (r *Repository) DeleteSubCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sub_categories WHERE id = $1`, id)
	if database.IsForeignKeyViolation(err) {
		return ErrSubCategoryInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubCategoryNotFound
	}
	return nil
}

// SubCategoryCourses counts courses filed under a subcategory.
func (r *Repository) SubCategoryCourses(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE sub_category_id = $1`, id).Scan(&n)
	return n, err
}

// SetSubCategoryOrder sets a subcategory's sort position.
func (r *Repository) SetSubCategoryOrder(ctx context.Context, id uuid.UUID, order int) error {
	tag, err := r.db.Exec(ctx, `UPDATE sub_categories SET sort_order = $2, updated_at = NOW() WHERE id = $1`, id, order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubCategoryNotFound
	}
	return nil
}

// duplicate translates a unique violation into ErrDuplicateName or ErrDuplicateSlug.
func duplicate(err error, name, slug string) error {
	if !database.IsUniqueViolation(err) {
		return err
	}
	if strings.HasSuffix(database.ConstraintName(err), "_name_key") {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return fmt.Errorf("%w: %q", ErrDuplicateSlug, slug)
}
