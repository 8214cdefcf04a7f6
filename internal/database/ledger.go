package database

import (
	"gorm.io/gorm"

	"whatsapp-crm/internal/models"
)

// CreditLedger mutates agent balances. Deduct is the only legal way to
// charge credits: a single conditional UPDATE so concurrent sends can
// never race a stale balance below zero.
type CreditLedger struct {
	db *gorm.DB
}

func NewCreditLedger(db *gorm.DB) *CreditLedger {
	return &CreditLedger{db: db}
}

// Deduct atomically subtracts amount from the agent's balance, refusing
// when the balance is below amount. ok reports whether the charge landed;
// the returned balance is a post-charge read for display only.
func (l *CreditLedger) Deduct(agentID uint, amount float64) (balance float64, ok bool, err error) {
	res := l.db.Model(&models.Agent{}).
		Where("id = ? AND credits >= ?", agentID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	balance, err = l.Balance(agentID)
	return balance, true, err
}

// Topup atomically adds amount to the agent's balance.
func (l *CreditLedger) Topup(agentID uint, amount float64) (float64, error) {
	res := l.db.Model(&models.Agent{}).
		Where("id = ?", agentID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return l.Balance(agentID)
}

func (l *CreditLedger) Balance(agentID uint) (float64, error) {
	var agent models.Agent
	if err := l.db.Select("credits").First(&agent, agentID).Error; err != nil {
		return 0, err
	}
	return agent.Credits, nil
}
