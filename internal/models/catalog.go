package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category groups courses at the top level of the catalog.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryWithCounts is a category row in the admin listing.
type CategoryWithCounts struct {
	Category
	SubCategoryCount int `json:"subCategoryCount"`
	CourseCount      int `json:"courseCount"`
}

// SubCategory belongs to exactly one category.
type SubCategory struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"categoryId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SubCategoryWithCounts is a subcategory row in the admin listing.
type SubCategoryWithCounts struct {
	SubCategory
	CourseCount int `json:"courseCount"`
}

// CategoryTree is an active category with its active subcategories.
type CategoryTree struct {
	Category
	SubCategories []SubCategory `json:"subCategories"`
}

// Course is a catalog entry. IDs are stable strings so seed manifests can address them.
type Course struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Description   string     `json:"description"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	SubCategoryID *uuid.UUID `json:"subCategoryId,omitempty"`
	InstructorID  *uuid.UUID `json:"instructorId,omitempty"`
	Level         string     `json:"level"`
	Price         int        `json:"price"` // paise
	ThumbnailURL  string     `json:"thumbnailUrl,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// CourseSummary is the short course form embedded in other resources.
type CourseSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Lesson is one ordered unit of a course.
type Lesson struct {
	ID       uuid.UUID `json:"id"`
	CourseID string    `json:"courseId"`
	Title    string    `json:"title"`
	Content  string    `json:"content,omitempty"`
	VideoURL string    `json:"videoUrl,omitempty"`
	Duration int       `json:"duration"`
	Order    int       `json:"order"`
	IsFree   bool      `json:"isFree"`
}

// AssessmentType distinguishes quizzes, practice sets and exams.
type AssessmentType string

const (
	AssessmentQuiz     AssessmentType = "QUIZ"
	AssessmentPractice AssessmentType = "PRACTICE"
	AssessmentExam     AssessmentType = "EXAM"
)

// Valid reports whether t is a known assessment type.
func (t AssessmentType) Valid() bool {
	return t == AssessmentQuiz || t == AssessmentPractice || t == AssessmentExam
}

// Assessment is an ordered graded exercise of a course.
type Assessment struct {
	ID           uuid.UUID       `json:"id"`
	CourseID     string          `json:"courseId"`
	Title        string          `json:"title"`
	Type         AssessmentType  `json:"type"`
	Order        int             `json:"order"`
	PassingScore int             `json:"passingScore"`
	Questions    json.RawMessage `json:"questions,omitempty"`
}

// AssessmentSummary omits the question bank.
type AssessmentSummary struct {
	ID            uuid.UUID      `json:"id"`
	Title         string         `json:"title"`
	Type          AssessmentType `json:"type"`
	Order         int            `json:"order"`
	PassingScore  int            `json:"passingScore"`
	QuestionCount int            `json:"questionCount"`
}

// CourseDetail is a course with its curriculum.
type CourseDetail struct {
	Course
	Category    *Category           `json:"category,omitempty"`
	SubCategory *SubCategory        `json:"subCategory,omitempty"`
	Instructor  *UserPublic         `json:"instructor,omitempty"`
	Lessons     []Lesson            `json:"lessons"`
	Assessments []AssessmentSummary `json:"assessments"`
}
