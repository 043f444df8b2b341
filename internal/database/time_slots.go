package database

import (
	"context"

	"resort/internal/models"
)

func (s *queries) ListTimeSlotSettings(ctx context.Context) ([]*models.TimeSlotSetting, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT slot_type, accommodation_type, start_time, end_time, is_overnight
              FROM time_slot_settings ORDER BY accommodation_type ASC, slot_type ASC`)
	if err != nil {
		return nil, mapError("list time slot settings", err)
	}
	defer rows.Close()

	var settings []*models.TimeSlotSetting
	for rows.Next() {
		var ts models.TimeSlotSetting
		if err := rows.Scan(&ts.SlotType, &ts.AccommodationType, &ts.StartTime, &ts.EndTime, &ts.IsOvernight); err != nil {
			return nil, mapError("scan time slot setting", err)
		}
		settings = append(settings, &ts)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list time slot settings", err)
	}
	return settings, nil
}

func (s *queries) GetTimeSlotSetting(ctx context.Context, slot models.TimeSlot, accType models.AccommodationType) (*models.TimeSlotSetting, error) {
	var ts models.TimeSlotSetting
	err := s.q.QueryRowContext(ctx, `SELECT slot_type, accommodation_type, start_time, end_time, is_overnight
              FROM time_slot_settings WHERE slot_type = ? AND accommodation_type = ?`, slot, accType).
		Scan(&ts.SlotType, &ts.AccommodationType, &ts.StartTime, &ts.EndTime, &ts.IsOvernight)
	if err != nil {
		return nil, notFoundOr("get time slot setting", "time slot setting", string(slot)+"/"+string(accType), err)
	}
	return &ts, nil
}
