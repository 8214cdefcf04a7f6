package database

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"whatsapp-crm/internal/models"
)

var testDBCounter int
var testDBMu sync.Mutex

// openTestDB gives each test an isolated in-memory database. sqlite only
// supports one writer, so the pool is capped at a single connection.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBMu.Lock()
	testDBCounter++
	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter)
	testDBMu.Unlock()

	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func seedAgent(t *testing.T, db *gorm.DB, credits float64) *models.Agent {
	t.Helper()
	agent := &models.Agent{
		Name:        "Acme",
		TablePrefix: "acme",
		Credits:     credits,
		IsActive:    true,
	}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func TestDeductHappyPath(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db, 1.00)
	ledger := NewCreditLedger(db)

	balance, ok, err := ledger.Deduct(agent.ID, 0.01)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 0.99, balance, 1e-9)
}

func TestDeductInsufficientBalance(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db, 0.005)
	ledger := NewCreditLedger(db)

	_, ok, err := ledger.Deduct(agent.ID, 0.01)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err := ledger.Balance(agent.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.005, balance, 1e-9, "a refused charge must not touch the balance")
}

func TestDeductUnknownAgent(t *testing.T) {
	db := openTestDB(t)
	ledger := NewCreditLedger(db)

	_, ok, err := ledger.Deduct(9999, 0.01)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentDeductsNeverOverdraw(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db, 5) // room for exactly five charges
	ledger := NewCreditLedger(db)

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := ledger.Deduct(agent.ID, 1)
			if err != nil {
				t.Errorf("deduct: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted, "conditional decrement must grant exactly the funded charges")

	balance, err := ledger.Balance(agent.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0, balance, 1e-6)
}

func TestTopupAndRefundCycle(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db, 0)
	ledger := NewCreditLedger(db)

	balance, err := ledger.Topup(agent.ID, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, balance, 1e-9)

	_, ok, err := ledger.Deduct(agent.ID, 0.01)
	require.NoError(t, err)
	assert.True(t, ok)

	// Refund after a failed provider call restores the charge.
	balance, err = ledger.Topup(agent.ID, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, balance, 1e-9)
}

func TestTopupUnknownAgent(t *testing.T) {
	db := openTestDB(t)
	ledger := NewCreditLedger(db)

	_, err := ledger.Topup(9999, 0.01)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
