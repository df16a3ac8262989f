package model

import "time"

// Register is a physical cash drawer. Sessions and ledger events are scoped to it.
type Register struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Register) TableName() string { return "registers" }
