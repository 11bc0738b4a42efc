package model

import "time"

// WeekRange представляет календарную неделю с понедельника по воскресенье
type WeekRange struct {
	Start time.Time `json:"start"` // понедельник, полночь
	End   time.Time `json:"end"`   // воскресенье, полночь
}

// Contains проверяет попадает ли дата в эту неделю
func (w WeekRange) Contains(date time.Time) bool {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}

// Equal проверяет что это одна и та же неделя
func (w WeekRange) Equal(other WeekRange) bool {
	return w.Start.Equal(other.Start) && w.End.Equal(other.End)
}
