package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rate_plans (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT,
	rate_code_id BIGINT NOT NULL,
	room_type_id BIGINT NOT NULL,
	sell_mode    TEXT NOT NULL DEFAULT 'PerRoom',
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE (rate_code_id, room_type_id, name)
);
CREATE TABLE IF NOT EXISTS rate_plan_days (
	rate_plan_id BIGINT NOT NULL REFERENCES rate_plans(id) ON DELETE CASCADE,
	stay_date    DATE NOT NULL,
	default_rate NUMERIC(12,2) NOT NULL DEFAULT 0,
	child_rate   NUMERIC(12,2) NOT NULL DEFAULT 0,
	%s,
	PRIMARY KEY (rate_plan_id, stay_date)
);`

const maxPax = 18

type planSeed struct {
	Name       string
	RateCodeID int64
	RoomTypeID int64
	SellMode   string
	Base       float64
	Child      float64
	// PaxStep is the surcharge per extra occupant on PerPerson plans.
	PaxStep float64
}

var plans = []planSeed{
	{"Rack Deluxe", 1, 1, "PerRoom", 850000, 150000, 0},
	{"Rack Suite", 1, 2, "PerRoom", 1450000, 200000, 0},
	{"Corporate Deluxe", 2, 1, "PerPerson", 700000, 120000, 175000},
	{"Corporate Suite", 2, 2, "PerPerson", 1200000, 150000, 225000},
	{"Agent Deluxe", 3, 1, "PerPerson", 650000, 0, 150000},
}

func main() {
	days := flag.Int("days", 60, "number of stay dates to seed per plan")
	start := flag.String("start", time.Now().UTC().Format(time.DateOnly), "first stay date (YYYY-MM-DD)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	first, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	if _, err := db.Exec(fmt.Sprintf(schemaSQL, paxColumns())); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	for _, p := range plans {
		id, err := upsertPlan(db, p)
		if err != nil {
			log.Fatalf("Failed to seed plan %q: %v", p.Name, err)
		}
		n, err := seedDays(db, id, p, first, *days)
		if err != nil {
			log.Fatalf("Failed to seed days for %q: %v", p.Name, err)
		}
		log.Printf("Seeded %s (id=%d, %d days)", p.Name, id, n)
	}

	log.Println("Seeding completed successfully!")
}

func paxColumns() string {
	cols := make([]string, 0, maxPax)
	for i := 1; i <= maxPax; i++ {
		cols = append(cols, fmt.Sprintf("pax%d NUMERIC(12,2)", i))
	}
	return strings.Join(cols, ",\n\t")
}

func upsertPlan(db *sql.DB, p planSeed) (int64, error) {
	var id int64
	err := db.QueryRow(`
		INSERT INTO rate_plans (name, rate_code_id, room_type_id, sell_mode)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (rate_code_id, room_type_id, name) DO UPDATE SET sell_mode = EXCLUDED.sell_mode, active = TRUE
		RETURNING id`, p.Name, p.RateCodeID, p.RoomTypeID, p.SellMode).Scan(&id)
	return id, err
}

// seedDays bulk-loads the daily table with COPY. Weekend nights carry a 15%
// uplift. Existing rows for the plan in the window are replaced.
func seedDays(db *sql.DB, planID int64, p planSeed, first time.Time, days int) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	last := first.AddDate(0, 0, days-1)
	if _, err := tx.Exec(`DELETE FROM rate_plan_days WHERE rate_plan_id = $1 AND stay_date BETWEEN $2 AND $3`,
		planID, first, last); err != nil {
		return 0, err
	}

	cols := []string{"rate_plan_id", "stay_date", "default_rate", "child_rate"}
	if p.SellMode == "PerPerson" {
		for i := 1; i <= 4; i++ {
			cols = append(cols, fmt.Sprintf("pax%d", i))
		}
	}
	stmt, err := tx.Prepare(pq.CopyIn("rate_plan_days", cols...))
	if err != nil {
		return 0, err
	}

	for i := 0; i < days; i++ {
		date := first.AddDate(0, 0, i)
		factor := 1.0
		if wd := date.Weekday(); wd == time.Friday || wd == time.Saturday {
			factor = 1.15
		}
		base := p.Base * factor
		args := []any{planID, date, money(base), money(p.Child)}
		if p.SellMode == "PerPerson" {
			for pax := 1; pax <= 4; pax++ {
				args = append(args, money(base+float64(pax-1)*p.PaxStep))
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			_ = stmt.Close()
			return 0, err
		}
	}
	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}
	return days, tx.Commit()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
