package models

import "time"

type Accommodation struct {
	ID               int64               `json:"id" yaml:"-"`
	Name             string              `json:"name" yaml:"name"`
	Type             AccommodationType   `json:"type" yaml:"type"`
	Capacity         int                 `json:"capacity" yaml:"capacity"`
	Price            float64             `json:"price" yaml:"price"`
	AddPrice         float64             `json:"add_price" yaml:"add_price"`
	Status           AccommodationStatus `json:"status" yaml:"-"`
	SupportsMorning  bool                `json:"supports_morning" yaml:"supports_morning"`
	SupportsNight    bool                `json:"supports_night" yaml:"supports_night"`
	SupportsWholeDay bool                `json:"supports_whole_day" yaml:"supports_whole_day"`
	CreatedAt        time.Time           `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time           `json:"updated_at" yaml:"-"`
}

// SupportedSlots returns the slots this unit can be booked for, in canonical order.
func (a *Accommodation) SupportedSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, len(AllTimeSlots))
	for _, s := range AllTimeSlots {
		if a.Supports(s) {
			slots = append(slots, s)
		}
	}
	return slots
}

func (a *Accommodation) Supports(slot TimeSlot) bool {
	switch slot {
	case SlotMorning:
		return a.SupportsMorning
	case SlotNight:
		return a.SupportsNight
	case SlotWholeDay:
		return a.SupportsWholeDay && a.Type != TypeCottage
	}
	return false
}
