package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/utils"
)

// Policy decides what happens to curriculum rows that already exist.
type Policy string

const (
	// PolicySkipExisting keeps existing lessons and assessments and inserts only missing orders.
	PolicySkipExisting Policy = "skip-existing"
	// PolicyReplace deletes the course's lessons and assessments and inserts the manifest's.
	PolicyReplace Policy = "replace"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool { return p == PolicySkipExisting || p == PolicyReplace }

var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest declares one course and its curriculum.
type Manifest struct {
	Policy      Policy           `yaml:"policy"`
	Taxonomy    []CategorySpec   `yaml:"taxonomy"`
	Course      CourseSpec       `yaml:"course"`
	Lessons     []LessonSpec     `yaml:"lessons"`
	Assessments []AssessmentSpec `yaml:"assessments"`
	Source      string           `yaml:"-"`
}

// CategorySpec ensures a category (and its subcategories) exists before the course is resolved.
type CategorySpec struct {
	Name          string            `yaml:"name"`
	Slug          string            `yaml:"slug"`
	Description   string            `yaml:"description"`
	SubCategories []SubCategorySpec `yaml:"subcategories"`
}

// SubCategorySpec is a subcategory inside a CategorySpec.
type SubCategorySpec struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// CourseSpec is the course row. Category and Subcategory are slugs.
type CourseSpec struct {
	ID              string `yaml:"id"`
	Title           string `yaml:"title"`
	Slug            string `yaml:"slug"`
	Description     string `yaml:"description"`
	Category        string `yaml:"category"`
	Subcategory     string `yaml:"subcategory"`
	InstructorEmail string `yaml:"instructorEmail"`
	Level           string `yaml:"level"`
	Price           int    `yaml:"price"`
	ThumbnailURL    string `yaml:"thumbnailUrl"`
	IsActive        *bool  `yaml:"isActive"`
}

// LessonSpec is one lesson.
type LessonSpec struct {
	Title    string `yaml:"title"`
	Order    int    `yaml:"order"`
	Duration int    `yaml:"duration"`
	Content  string `yaml:"content"`
	VideoURL string `yaml:"videoUrl"`
	IsFree   bool   `yaml:"isFree"`
}

// AssessmentSpec is one assessment. Questions are stored as JSON.
type AssessmentSpec struct {
	Title        string                `yaml:"title"`
	Type         models.AssessmentType `yaml:"type"`
	Order        int                   `yaml:"order"`
	PassingScore *int                  `yaml:"passingScore"`
	Questions    []any                 `yaml:"questions"`
}

// Parse decodes one manifest and applies defaults. It does not validate.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	m.defaults()
	return &m, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Source = path
	return m, nil
}

// Discover lists the manifests to load: the named files inside dir, or every *.yaml / *.yml in dir.
func Discover(dir string, files []string) ([]string, error) {
	if len(files) > 0 {
		paths := make([]string, 0, len(files))
		for _, f := range files {
			if !filepath.IsAbs(f) && dir != "" {
				f = filepath.Join(dir, f)
			}
			paths = append(paths, f)
		}
		return paths, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *Manifest) defaults() {
	if m.Policy == "" {
		m.Policy = PolicySkipExisting
	}
	if m.Course.Slug == "" {
		m.Course.Slug = utils.Slugify(m.Course.Title)
	}
	if m.Course.Level == "" {
		m.Course.Level = "BEGINNER"
	}
	for i := range m.Taxonomy {
		if m.Taxonomy[i].Slug == "" {
			m.Taxonomy[i].Slug = utils.Slugify(m.Taxonomy[i].Name)
		}
		for j := range m.Taxonomy[i].SubCategories {
			sc := &m.Taxonomy[i].SubCategories[j]
			if sc.Slug == "" {
				sc.Slug = utils.Slugify(sc.Name)
			}
		}
	}
	for i := range m.Assessments {
		if m.Assessments[i].Type == "" {
			m.Assessments[i].Type = models.AssessmentQuiz
		}
	}
}

// Validate checks the manifest before anything is written.
func (m *Manifest) Validate() error {
	var problems []string
	bad := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if !m.Policy.Valid() {
		bad("policy %q must be %s or %s", m.Policy, PolicySkipExisting, PolicyReplace)
	}
	c := m.Course
	if strings.TrimSpace(c.ID) == "" {
		bad("course.id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		bad("course.title is required")
	}
	if c.Slug == "" || !utils.ValidSlug(c.Slug) {
		bad("course.slug %q is not a valid slug", c.Slug)
	}
	if c.Category == "" {
		bad("course.category is required")
	}
	if c.Price < 0 {
		bad("course.price must be >= 0")
	}
	for i, t := range m.Taxonomy {
		if strings.TrimSpace(t.Name) == "" || !utils.ValidSlug(t.Slug) {
			bad("taxonomy[%d] needs a name and a valid slug", i)
		}
		for j, sc := range t.SubCategories {
			if strings.TrimSpace(sc.Name) == "" || !utils.ValidSlug(sc.Slug) {
				bad("taxonomy[%d].subcategories[%d] needs a name and a valid slug", i, j)
			}
		}
	}

	orders := map[int]bool{}
	for i, l := range m.Lessons {
		if strings.TrimSpace(l.Title) == "" {
			bad("lessons[%d].title is required", i)
		}
		if l.Order <= 0 {
			bad("lessons[%d].order must be > 0", i)
		} else if orders[l.Order] {
			bad("lessons[%d].order %d is duplicated", i, l.Order)
		}
		orders[l.Order] = true
		if l.Duration < 0 {
			bad("lessons[%d].duration must be >= 0", i)
		}
	}

	orders = map[int]bool{}
	for i, a := range m.Assessments {
		if strings.TrimSpace(a.Title) == "" {
			bad("assessments[%d].title is required", i)
		}
		if !a.Type.Valid() {
			bad("assessments[%d].type %q must be QUIZ, PRACTICE or EXAM", i, a.Type)
		}
		if a.Order <= 0 {
			bad("assessments[%d].order must be > 0", i)
		} else if orders[a.Order] {
			bad("assessments[%d].order %d is duplicated", i, a.Order)
		}
		orders[a.Order] = true
		if a.PassingScore != nil && (*a.PassingScore < 0 || *a.PassingScore > 100) {
			bad("assessments[%d].passingScore must be between 0 and 100", i)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(problems, "; "))
	}
	return nil
}
