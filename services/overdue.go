package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"algo-asset-api/models"
)

// ReviewDeadlineBusinessDays is how long reviewers get before the sweep
// starts nagging. The sweep only reminds; it never transitions status.
const ReviewDeadlineBusinessDays = 5

// AddBusinessDays advances t by n weekdays, skipping Saturday and Sunday.
func AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}

// daysOverdue counts whole days elapsed past the deadline, minimum 1 for
// anything past it at all.
func daysOverdue(deadline, now time.Time) int {
	if !now.After(deadline) {
		return 0
	}
	days := int(now.Sub(deadline).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

// OverdueReview pairs an algorithm with its blown deadline.
type OverdueReview struct {
	Algorithm  models.Algorithm
	Assignment models.ReviewAssignment
	Deadline   time.Time
}

// GetOverdueAlgorithms finds under_review algorithms whose active assignment
// is older than the review deadline.
func GetOverdueAlgorithms(db *gorm.DB, now time.Time) ([]OverdueReview, error) {
	var algorithms []models.Algorithm
	err := db.Where("status = ? AND delete_at IS NULL", models.StatusUnderReview).
		Find(&algorithms).Error
	if err != nil {
		return nil, storageError(err)
	}
	if len(algorithms) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(algorithms))
	for _, alg := range algorithms {
		ids = append(ids, alg.AlgorithmID)
	}
	var assignments []models.ReviewAssignment
	err = db.Where("algorithm_id IN ? AND status = ?", ids, models.AssignmentActive).
		Find(&assignments).Error
	if err != nil {
		return nil, storageError(err)
	}
	byAlgorithm := make(map[uint]models.ReviewAssignment, len(assignments))
	for _, a := range assignments {
		byAlgorithm[a.AlgorithmID] = a
	}

	var overdue []OverdueReview
	for _, alg := range algorithms {
		assignment, ok := byAlgorithm[alg.AlgorithmID]
		if !ok {
			continue
		}
		deadline := AddBusinessDays(assignment.InitiatedAt, ReviewDeadlineBusinessDays)
		if now.After(deadline) {
			overdue = append(overdue, OverdueReview{
				Algorithm:  alg,
				Assignment: assignment,
				Deadline:   deadline,
			})
		}
	}
	return overdue, nil
}

// RunOverdueSweep emits one overdue_reminder per reviewer who still has a
// pending record on an overdue algorithm. Returns the number of reminders
// sent.
func RunOverdueSweep(db *gorm.DB, now time.Time) (int, error) {
	overdue, err := GetOverdueAlgorithms(db, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, item := range overdue {
		var pending []models.ReviewRecord
		err := db.Where("algorithm_id = ? AND status = ?", item.Algorithm.AlgorithmID, models.ReviewPending).
			Find(&pending).Error
		if err != nil {
			return sent, storageError(err)
		}

		days := daysOverdue(item.Deadline, now)
		nc := TemplateOverdueReminder(item.Algorithm.Name, days, "评审")
		for _, record := range pending {
			recipient := models.User{UserID: record.ReviewerID, Name: record.ReviewerName}
			algorithmID := item.Algorithm.AlgorithmID
			if _, err := createNotification(db, &recipient, nc, &algorithmID); err != nil {
				return sent, err
			}
			sent++
		}
	}
	return sent, nil
}

// StartOverdueSweeper runs the sweep on a fixed interval until stop is
// closed. Called once from main.
func StartOverdueSweeper(db *gorm.DB, interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if sent, err := RunOverdueSweep(db, time.Now()); err != nil {
					log.Printf("[overdue] sweep failed: %v", err)
				} else if sent > 0 {
					log.Printf("[overdue] sent %d reminders", sent)
				}
			case <-stop:
				return
			}
		}
	}()
}
