// Package dateutil содержит календарную арифметику: ключи дней и недель,
// границы недель и форматы отображения. Неделя начинается с понедельника.
package dateutil

import (
	"fmt"
	"time"
)

// Форматы ключей и отображения дат.
const (
	FormatDayKey      = "2006-01-02"
	FormatDisplayDate = "02/01/2006"
	FormatTimeOfDay   = "15:04"
	FormatShortDate   = "02/01"
)

// DayKey возвращает ключ календарного дня для момента t.
// Момент должен быть заранее переведён в часовой пояс группы.
func DayKey(t time.Time) string {
	return t.Format(FormatDayKey)
}

// WeekStart возвращает понедельник 00:00 недели, содержащей t, в поясе t.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // воскресенье
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// WeekKeyOf возвращает ключ недели (день понедельника) для момента t.
func WeekKeyOf(t time.Time) string {
	return DayKey(WeekStart(t))
}

// ParseDayKey разбирает ключ дня в указанном часовом поясе.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(FormatDayKey, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", key, err)
	}
	return t, nil
}

// ParseWeekKey разбирает ключ недели и проверяет, что он указывает на понедельник.
func ParseWeekKey(key string, loc *time.Location) (time.Time, error) {
	t, err := ParseDayKey(key, loc)
	if err != nil {
		return time.Time{}, err
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("week key %q is not a monday", key)
	}
	return t, nil
}

// WeekDays возвращает ключи семи дней недели, начинающейся с weekKey.
func WeekDays(weekKey string, loc *time.Location) ([]string, error) {
	start, err := ParseWeekKey(weekKey, loc)
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, DayKey(start.AddDate(0, 0, i)))
	}
	return days, nil
}

// WeekElapsed сообщает, полностью ли прошла неделя weekKey к моменту now:
// календарная дата now должна быть строго позже воскресенья этой недели.
func WeekElapsed(weekKey string, now time.Time) bool {
	start, err := ParseWeekKey(weekKey, now.Location())
	if err != nil {
		return false
	}
	nextMonday := start.AddDate(0, 0, 7)
	return !now.Before(nextMonday)
}

// PrevWeekKey возвращает ключ недели, предшествующей неделе момента t.
func PrevWeekKey(t time.Time) string {
	return DayKey(WeekStart(t).AddDate(0, 0, -7))
}

// WeekRange возвращает отображаемый диапазон недели: "03/06 – 09/06".
func WeekRange(weekKey string, loc *time.Location) (string, error) {
	start, err := ParseWeekKey(weekKey, loc)
	if err != nil {
		return "", err
	}
	end := start.AddDate(0, 0, 6)
	return start.Format(FormatShortDate) + " – " + end.Format(FormatShortDate), nil
}

// DaysBetween возвращает ключи всех дней от from до to включительно.
// Если from позже to, возвращается пустой срез.
func DaysBetween(from, to string, loc *time.Location) ([]string, error) {
	start, err := ParseDayKey(from, loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseDayKey(to, loc)
	if err != nil {
		return nil, err
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, DayKey(d))
	}
	return days, nil
}

// DisplayDate форматирует ключ дня для сообщений пользователю.
func DisplayDate(dayKey string, loc *time.Location) (string, error) {
	t, err := ParseDayKey(dayKey, loc)
	if err != nil {
		return "", err
	}
	return t.Format(FormatDisplayDate), nil
}

// TimeOfDay форматирует время суток момента t.
func TimeOfDay(t time.Time) string {
	return t.Format(FormatTimeOfDay)
}
