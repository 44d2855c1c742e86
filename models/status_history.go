package models

import "time"

// AlgorithmStatusHistory tracks historical status changes for algorithms.
type AlgorithmStatusHistory struct {
	HistoryID   uint      `gorm:"primaryKey;column:history_id" json:"history_id"`
	AlgorithmID uint      `gorm:"column:algorithm_id;index" json:"algorithm_id"`
	OldStatus   *string   `gorm:"column:old_status" json:"old_status"`
	NewStatus   string    `gorm:"column:new_status" json:"new_status"`
	ChangedBy   uint      `gorm:"column:changed_by" json:"changed_by"`
	Reason      *string   `gorm:"column:reason" json:"reason"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for AlgorithmStatusHistory.
func (AlgorithmStatusHistory) TableName() string {
	return "algorithm_status_history"
}
