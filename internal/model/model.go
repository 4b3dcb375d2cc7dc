// Package model содержит доменные сущности сервиса учёта посещаемости.
package model

import "time"

// FineUnit — размер штрафа за одну проваленную неделю и шаг платежа (в донгах).
const FineUnit int64 = 100000

// WeekThreshold — минимальное число отметок за неделю, чтобы неделя была засчитана.
const WeekThreshold = 5

// Member представляет участника группы.
type Member struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Checkin описывает одну отметку посещаемости: день, ссылку на фото и момент отправки.
type Checkin struct {
	Day       string
	ProofURL  string
	CheckedAt time.Time
}

// Verdict описывает итог недели относительно порога посещаемости.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// WeekProgress содержит результат оценки одной недели для участника.
// Для ещё не закончившейся недели Elapsed равен false, и вердикт носит
// информационный характер.
type WeekProgress struct {
	WeekKey string
	Count   int
	Verdict Verdict
	Elapsed bool
}

// SettleResult описывает исход закрытия недели.
// Settled равен true, только если запись о закрытии была создана этим вызовом.
type SettleResult struct {
	Verdict Verdict
	Settled bool
}

// Ledger содержит сводку по штрафам участника.
type Ledger struct {
	MissedWeeks int   `json:"missed_weeks"`
	FineTotal   int64 `json:"fine_total"`
	PaidTotal   int64 `json:"paid_total"`
	Outstanding int64 `json:"outstanding"`
}

// HistoryEntry описывает один день истории посещаемости.
// Time заполняется только для дней с отметкой.
type HistoryEntry struct {
	Date    string `json:"date"`
	Present bool   `json:"present"`
	Time    string `json:"time,omitempty"`
}
