package model

import "encoding/json"

// Member is one roster entry from the clan info endpoint.
type Member struct {
	AccountID int64  `json:"account_id"`
	Nickname  string `json:"account_name"`
}

// TankStatistics is the per-tank stats block of an account tanks record.
type TankStatistics struct {
	Battles int64 `json:"battles"`
	Wins    int64 `json:"wins"`
}

// TankRecord is one entry of an account's tank list. Raw keeps the original
// payload for the raw_json column.
type TankRecord struct {
	TankID        int64          `json:"tank_id"`
	MarkOfMastery int            `json:"mark_of_mastery"`
	Statistics    TankStatistics `json:"statistics"`
	Raw           json.RawMessage `json:"-"`
}

// VehicleImages holds the icon variants the encyclopedia exposes.
type VehicleImages struct {
	BigIcon     string `json:"big_icon"`
	ContourIcon string `json:"contour_icon"`
	SmallIcon   string `json:"small_icon"`
}

// VehicleMeta is one encyclopedia entry, cached on disk keyed by tank id.
// Entries are treated as immutable once cached.
type VehicleMeta struct {
	TankID    int64         `json:"tank_id"`
	Name      string        `json:"name"`
	ShortName string        `json:"short_name"`
	Tier      int           `json:"tier"`
	Nation    string        `json:"nation"`
	Type      string        `json:"type"`
	IsPremium bool          `json:"is_premium"`
	Images    VehicleImages `json:"images"`
}

// Image returns the best available icon, largest first.
func (v *VehicleMeta) Image() string {
	switch {
	case v.Images.BigIcon != "":
		return v.Images.BigIcon
	case v.Images.ContourIcon != "":
		return v.Images.ContourIcon
	default:
		return v.Images.SmallIcon
	}
}
