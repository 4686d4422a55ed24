// seed inserts an employer, a candidate and a handful of job postings into
// the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/infrastructure/postgres"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "password123"

type seedUser struct {
	email     string
	role      string
	firstName string
	lastName  string
}

var users = []seedUser{
	{"employer@seed.local", "employer", "Erin", "Employer"},
	{"candidate@seed.local", "candidate", "Cass", "Candidate"},
}

type seedJob struct {
	title          string
	location       string
	remote         bool
	employmentType string
	salaryMin      *int
	salaryMax      *int
	closesIn       time.Duration // 0 means no deadline
}

func salary(v int) *int { return &v }

var jobs = []seedJob{
	{"Senior Go Engineer", "Berlin", false, "full_time", salary(80000), salary(110000), 0},
	{"Platform Engineer", "Remote", true, "full_time", salary(70000), salary(95000), 30 * 24 * time.Hour},
	{"Data Engineering Intern", "Amsterdam", false, "internship", nil, nil, 14 * 24 * time.Hour},
	{"Contract SRE", "Remote", true, "contract", salary(600), salary(800), 0},
	{"Part-time Technical Writer", "Lisbon", false, "part_time", nil, nil, 0},
	// Already past its deadline; the worker closes it on the next run.
	{"Expired Posting", "Berlin", false, "full_time", nil, nil, -time.Hour},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Panicf("hash password: %v", err)
	}

	ids := make(map[string]string, len(users))
	for _, u := range users {
		var id string
		err = pool.QueryRow(ctx, `
			INSERT INTO users (email, password_hash, role, first_name, last_name, email_verified)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT ((LOWER(email))) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
			u.email, string(hash), u.role, u.firstName, u.lastName,
		).Scan(&id)
		if err != nil {
			log.Panicf("upsert user %s: %v", u.email, err)
		}
		ids[u.role] = id
	}

	employerID := ids["employer"]

	var inserted, skipped int
	for _, j := range jobs {
		var closesAt *time.Time
		if j.closesIn != 0 {
			t := time.Now().Add(j.closesIn)
			closesAt = &t
		}

		tag, err := pool.Exec(ctx, `
			INSERT INTO jobs (employer_id, title, description, location, remote, employment_type, salary_min, salary_max, closes_at)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
			WHERE NOT EXISTS (SELECT 1 FROM jobs WHERE employer_id = $1 AND title = $2)`,
			employerID, j.title, "Seeded posting for local development.", j.location, j.remote,
			j.employmentType, j.salaryMin, j.salaryMax, closesAt,
		)
		if err != nil {
			log.Panicf("insert job %q: %v", j.title, err)
		}
		if tag.RowsAffected() == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	for _, u := range users {
		fmt.Printf("  %-10s %s / %s  (id %s)\n", u.role+":", u.email, seedPassword, ids[u.role])
	}
	fmt.Printf("  Jobs created: %d  (skipped %d already existing)\n", inserted, skipped)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: log in as the employer:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", users[0].email, seedPassword)
	fmt.Println()
	fmt.Println("  Step 2: list your postings:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/jobs/mine -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Step 3: the same call with the candidate's token returns 403 FORBIDDEN.")
}
