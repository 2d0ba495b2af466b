package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryCapacity is the number of entries kept in the local history
const DefaultHistoryCapacity = 50

// GameHistoryEntry records the outcome of one finished race
type GameHistoryEntry struct {
	ID                  string        `json:"id"`
	Score               int           `json:"score"`
	Distance            int           `json:"distance"`
	ObstaclesAvoided    int           `json:"obstacles_avoided"`
	BonusBoxesCollected int           `json:"bonus_boxes_collected"`
	LapTime             time.Duration `json:"lap_time"`
	CarUsed             string        `json:"car_used"`
	Timestamp           time.Time     `json:"timestamp"`
	IsNewHighScore      bool          `json:"is_new_high_score"`
}

// NewGameHistoryEntry creates an entry stamped with a fresh id
func NewGameHistoryEntry(score, distance, avoided, bonus int, lapTime time.Duration, carUsed string, at time.Time, newHigh bool) GameHistoryEntry {
	return GameHistoryEntry{
		ID:                  uuid.New().String(),
		Score:               score,
		Distance:            distance,
		ObstaclesAvoided:    avoided,
		BonusBoxesCollected: bonus,
		LapTime:             lapTime,
		CarUsed:             carUsed,
		Timestamp:           at,
		IsNewHighScore:      newHigh,
	}
}

// History is the capped list of finished races, newest first
type History struct {
	Entries  []GameHistoryEntry `json:"entries"`
	Capacity int                `json:"-"`
}

// NewHistory creates an empty history with the given capacity
// If capacity is 0 or less, DefaultHistoryCapacity is used
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		Entries:  make([]GameHistoryEntry, 0, capacity),
		Capacity: capacity,
	}
}

// Add puts the entry at the front and drops the oldest entries beyond capacity
func (h *History) Add(e GameHistoryEntry) {
	h.Entries = append([]GameHistoryEntry{e}, h.Entries...)
	if h.Capacity > 0 && len(h.Entries) > h.Capacity {
		h.Entries = h.Entries[:h.Capacity]
	}
}

// Len returns the number of entries
func (h *History) Len() int {
	return len(h.Entries)
}

// Latest returns the newest entry
func (h *History) Latest() (GameHistoryEntry, bool) {
	if len(h.Entries) == 0 {
		return GameHistoryEntry{}, false
	}
	return h.Entries[0], true
}

// BestScore returns the highest score in the history
func (h *History) BestScore() int {
	best := 0
	for _, e := range h.Entries {
		if e.Score > best {
			best = e.Score
		}
	}
	return best
}
