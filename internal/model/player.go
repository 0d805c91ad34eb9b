package model

import "time"

// Player is a clan member as seen in the most recent roster sync.
// Rows are upserted on every sync and never deleted; a player who leaves the
// clan simply stops receiving garage updates.
type Player struct {
	AccountID int64  `json:"account_id"`
	Nickname  string `json:"nickname"`
}

// GarageTank is one player-owned vehicle row. For a given account the set of
// rows is always the filtered snapshot of the last successful sync: the sync
// replaces them wholesale instead of merging.
type GarageTank struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"account_id"`
	TankID        int64     `json:"tank_id"`
	TankName      string    `json:"tank_name"`
	Tier          int       `json:"tier"`
	Battles       int64     `json:"battles"`
	Wins          int64     `json:"wins"`
	MarkOfMastery int       `json:"mark_of_mastery"`
	IsPremium     bool      `json:"is_premium"`
	Nation        string    `json:"nation"`
	Type          string    `json:"type"`
	ImageURL      string    `json:"image_url"`
	RawJSON       []byte    `json:"-"`
	LastUpdated   time.Time `json:"last_updated"`
}

// GarageRow is a report row joining a tank with its owner's nickname.
type GarageRow struct {
	GarageTank
	Nickname string `json:"nickname"`
}

// GarageFilter narrows the garage report. Zero values mean "no filter".
type GarageFilter struct {
	Tier      int
	AccountID int64
	Nation    string
	Type      string
}

// GarageStats aggregates the full filtered set, not just the current page.
type GarageStats struct {
	TotalBattles int64   `json:"total_battles"`
	TotalWins    int64   `json:"total_wins"`
	TotalMarks   int64   `json:"total_marks"`
	AvgBattles   float64 `json:"avg_battles"`
	WinPct       float64 `json:"win_pct"`
}
