package journal

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/med-dispatch/internal/models"
)

type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(dsn string) (*PostgresLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresLog{db: db}, nil
}

func (p *PostgresLog) Record(r *models.TransportRecord) error {
	_, err := p.db.Exec(`INSERT INTO transport_log(assignment_id, patient_name, outcome, started_at, ended_at) VALUES($1,$2,$3,$4,$5)`,
		r.AssignmentID, r.PatientName, r.Outcome, r.StartedAt, r.EndedAt)
	return err
}
