package repository

import "rally-api/pkg/database"

// NewPostgresRepositories wires every repository against one database
func NewPostgresRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Events:   NewEventRepository(db),
		Presence: NewPresenceRepository(db),
		Captures: NewCaptureRepository(db),
		Ledger:   NewLedgerRepository(db),
		Reports:  NewReportRepository(db),
		Tx:       NewPostgresTxManager(db),
	}
}
