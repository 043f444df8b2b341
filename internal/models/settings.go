package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSlotSetting is display reference data; it does not feed conflict detection.
type TimeSlotSetting struct {
	SlotType          TimeSlot          `json:"slot_type" yaml:"slot_type"`
	AccommodationType AccommodationType `json:"accommodation_type" yaml:"accommodation_type"`
	StartTime         string            `json:"start_time" yaml:"start_time"` // HH:MM
	EndTime           string            `json:"end_time" yaml:"end_time"`
	IsOvernight       bool              `json:"is_overnight" yaml:"is_overnight"`
}

// Label renders the slot window as "8:00 AM - 5:00 PM".
func (s TimeSlotSetting) Label() string {
	label := fmt.Sprintf("%s - %s", clockLabel(s.StartTime), clockLabel(s.EndTime))
	if s.IsOvernight {
		label += " (next day)"
	}
	return label
}

func clockLabel(hhmm string) string {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return hhmm
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return hhmm
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%s %s", h, parts[1], suffix)
}

// DefaultTimeSlotSettings seeds the time_slot_settings table.
func DefaultTimeSlotSettings() []TimeSlotSetting {
	return []TimeSlotSetting{
		{SlotType: SlotMorning, AccommodationType: TypeCottage, StartTime: "08:00", EndTime: "17:00"},
		{SlotType: SlotNight, AccommodationType: TypeCottage, StartTime: "18:00", EndTime: "06:00", IsOvernight: true},
		{SlotType: SlotMorning, AccommodationType: TypeRoom, StartTime: "09:00", EndTime: "17:00"},
		{SlotType: SlotNight, AccommodationType: TypeRoom, StartTime: "19:00", EndTime: "07:00", IsOvernight: true},
		{SlotType: SlotWholeDay, AccommodationType: TypeRoom, StartTime: "14:00", EndTime: "12:00", IsOvernight: true},
	}
}

type PricingSetting struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category" yaml:"category"`
	Type      string    `json:"type" yaml:"type"`
	Price     float64   `json:"price" yaml:"price"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

type PriceUpdate struct {
	ID    int64   `json:"id"`
	Price float64 `json:"price"`
}
