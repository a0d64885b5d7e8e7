package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	_ EventRepository    = (*postgresEventRepository)(nil)
	_ PresenceRepository = (*postgresPresenceRepository)(nil)
	_ CaptureRepository  = (*postgresCaptureRepository)(nil)
	_ LedgerRepository   = (*postgresLedgerRepository)(nil)
	_ ReportRepository   = (*postgresReportRepository)(nil)
	_ TxManager          = (*PostgresTxManager)(nil)
)

func TestNewPostgresRepositories(t *testing.T) {
	repos := NewPostgresRepositories(nil)

	assert.IsType(t, &postgresEventRepository{}, repos.Events)
	assert.IsType(t, &postgresPresenceRepository{}, repos.Presence)
	assert.IsType(t, &postgresCaptureRepository{}, repos.Captures)
	assert.IsType(t, &postgresLedgerRepository{}, repos.Ledger)
	assert.IsType(t, &postgresReportRepository{}, repos.Reports)
	assert.IsType(t, &PostgresTxManager{}, repos.Tx)
}
