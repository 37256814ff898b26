package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gracepapers/coursechat/internal/domain"
	_ "modernc.org/sqlite"
)

// Catalog implements Searcher over a SQLite course database.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens (or creates) the course catalog at dbPath and seeds a
// starter catalog when the table is empty.
func NewCatalog(dbPath string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := c.seedIfEmpty(); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	return c, nil
}

func (c *Catalog) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS courses (
		course_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		provider TEXT NOT NULL,
		level TEXT NOT NULL,
		skills TEXT NOT NULL,
		description TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_courses_title ON courses(title);
	`
	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Search matches query terms against title, skills and description, scores
// rows by term overlap (title matches weigh double) and returns the best
// matches first.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]domain.Course, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		clauses []string
		args    []interface{}
	)
	for _, term := range terms {
		clauses = append(clauses, "(LOWER(title) LIKE ? OR LOWER(skills) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + term + "%"
		args = append(args, pattern, pattern, pattern)
	}

	q := `
		SELECT course_id, title, provider, level, skills, description
		FROM courses WHERE ` + strings.Join(clauses, " OR ")

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		var (
			course     domain.Course
			skillsJSON string
		)
		if err := rows.Scan(&course.ID, &course.Title, &course.Provider, &course.Level, &skillsJSON, &course.Description); err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		if err := json.Unmarshal([]byte(skillsJSON), &course.Skills); err != nil {
			return nil, fmt.Errorf("decode skills for course %s: %w", course.ID, err)
		}
		course.RelevanceScore = relevance(course, terms)
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course rows: %w", err)
	}

	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].RelevanceScore > courses[j].RelevanceScore
	})
	if len(courses) > limit {
		courses = courses[:limit]
	}
	return courses, nil
}

// Count reports how many courses the catalog holds.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'")
		// Short stop words add noise to LIKE matching.
		if len(f) < 3 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// relevance scores a course by the share of query terms it contains.
// Title matches count double so exact-topic courses rank first.
func relevance(course domain.Course, terms []string) float64 {
	title := strings.ToLower(course.Title)
	body := strings.ToLower(course.Description + " " + strings.Join(course.Skills, " "))

	score := 0.0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 2
		}
		if strings.Contains(body, term) {
			score++
		}
	}
	return score / float64(3*len(terms))
}

func (c *Catalog) seedIfEmpty() error {
	n := 0
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	if n > 0 {
		return nil
	}

	insert := `INSERT INTO courses (course_id, title, provider, level, skills, description) VALUES (?, ?, ?, ?, ?, ?)`
	for _, course := range seedCourses {
		skillsJSON, err := json.Marshal(course.Skills)
		if err != nil {
			return fmt.Errorf("encode skills for %s: %w", course.ID, err)
		}
		if _, err := c.db.Exec(insert, course.ID, course.Title, course.Provider, course.Level, string(skillsJSON), course.Description); err != nil {
			return fmt.Errorf("insert seed course %s: %w", course.ID, err)
		}
	}
	return nil
}

// seedCourses is the starter catalog used when no course database has been
// provisioned yet.
var seedCourses = []domain.Course{
	{
		ID:          "py-101",
		Title:       "Python for Everybody",
		Provider:    "Coursera",
		Level:       "Beginner",
		Skills:      []string{"Python", "Programming"},
		Description: "Learn to program and analyze data with Python from scratch.",
	},
	{
		ID:          "py-201",
		Title:       "Intermediate Python Programming",
		Provider:    "edX",
		Level:       "Intermediate",
		Skills:      []string{"Python", "Data Structures", "OOP"},
		Description: "Move past the basics with object-oriented Python and real projects.",
	},
	{
		ID:          "py-301",
		Title:       "Advanced Python: Concurrency and Performance",
		Provider:    "Udemy",
		Level:       "Advanced",
		Skills:      []string{"Python", "Concurrency", "Performance"},
		Description: "Asyncio, multiprocessing and profiling for experienced Python developers.",
	},
	{
		ID:          "ds-101",
		Title:       "Data Analysis with Pandas",
		Provider:    "Coursera",
		Level:       "Beginner",
		Skills:      []string{"Data Analysis", "Python", "Pandas"},
		Description: "Clean, transform and visualize tabular data with pandas.",
	},
	{
		ID:          "ml-201",
		Title:       "Machine Learning Fundamentals",
		Provider:    "edX",
		Level:       "Intermediate",
		Skills:      []string{"Machine Learning", "Python", "Statistics"},
		Description: "Supervised and unsupervised learning with scikit-learn.",
	},
	{
		ID:          "ai-101",
		Title:       "AI Tools for Business Professionals",
		Provider:    "Grace Papers",
		Level:       "Beginner",
		Skills:      []string{"AI Tools", "Productivity", "Automation"},
		Description: "Practical AI tooling for non-technical roles: prompts, automation and workflow design.",
	},
	{
		ID:          "mk-201",
		Title:       "Digital Marketing Analytics",
		Provider:    "Udemy",
		Level:       "Intermediate",
		Skills:      []string{"Marketing", "Analytics", "Data Analysis"},
		Description: "Measure campaigns and build dashboards that drive marketing decisions.",
	},
	{
		ID:          "xl-101",
		Title:       "Excel Skills for Data Work",
		Provider:    "Coursera",
		Level:       "Beginner",
		Skills:      []string{"Excel", "Data Analysis"},
		Description: "Formulas, pivot tables and charts for everyday data work.",
	},
	{
		ID:          "sq-101",
		Title:       "SQL for Data Analysis",
		Provider:    "edX",
		Level:       "Beginner",
		Skills:      []string{"SQL", "Databases", "Data Analysis"},
		Description: "Query relational databases to answer business questions.",
	},
	{
		ID:          "wd-201",
		Title:       "Modern Web Development",
		Provider:    "Udemy",
		Level:       "Intermediate",
		Skills:      []string{"JavaScript", "Web Development", "React"},
		Description: "Build and deploy interactive web applications with JavaScript and React.",
	},
	{
		ID:          "ba-201",
		Title:       "Business Analysis in Practice",
		Provider:    "Grace Papers",
		Level:       "Intermediate",
		Skills:      []string{"Business Analysis", "Requirements", "Stakeholders"},
		Description: "Elicit requirements and communicate analysis to stakeholders.",
	},
	{
		ID:          "ml-301",
		Title:       "Deep Learning Specialization",
		Provider:    "Coursera",
		Level:       "Advanced",
		Skills:      []string{"Machine Learning", "Deep Learning", "Neural Networks"},
		Description: "Neural networks, CNNs and sequence models for advanced practitioners.",
	},
}
