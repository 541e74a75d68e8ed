package domain

import (
	"fmt"
	"time"
)

// DeathNote is one execution order.
type DeathNote struct {
	VictimID      string `batch:"victimId"`
	VictimName    string `batch:"victimName"`
	ExecutionDate string `batch:"executionDate"`
	CauseOfDeath  string `batch:"causeOfDeath"`
}

// NewDeathNotes returns n orders numbered from 1, the i-th scheduled i days after today.
func NewDeathNotes(n int, today time.Time) []DeathNote {
	notes := make([]DeathNote, 0, n)
	for i := 1; i <= n; i++ {
		notes = append(notes, DeathNote{
			VictimID:      fmt.Sprintf("KILL-%03d", i),
			VictimName:    fmt.Sprintf("victim%d", i),
			ExecutionDate: today.AddDate(0, 0, i).Format(time.DateOnly),
			CauseOfDeath:  fmt.Sprintf("cause%d", i),
		})
	}
	return notes
}
