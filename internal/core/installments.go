package core

import "time"

// Month is a calendar year/month pair.
type Month struct {
	Year  int
	Month int
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonthRange
	}
	return nil
}

// installmentHour keeps same-day installments below fresher cards under the
// descending timestamp ordering.
const installmentHour = 12

// MonthsInclusive returns the number of calendar months from start to end,
// counting both ends. The result is <= 0 when end precedes start.
func MonthsInclusive(start, end Month) int {
	return (end.Year-start.Year)*12 + (end.Month - start.Month) + 1
}

// SplitInstallments divides totalCents into months parts that sum exactly
// to the total. Every part except the last equals floor(total/months); the
// last absorbs the rounding remainder.
func SplitInstallments(totalCents int64, months int) ([]int64, error) {
	if months < 1 {
		return nil, ErrInvalidMonthRange
	}
	if totalCents <= 0 {
		return nil, ErrInvalidAmount
	}
	base := totalCents / int64(months)
	out := make([]int64, months)
	for i := range out {
		out[i] = base
	}
	out[months-1] = totalCents - base*int64(months-1)
	return out, nil
}

// InstallmentSchedule returns one instant per installment, starting in the
// given month and advancing one calendar month at a time. Each instant falls
// on dayOfMonth clamped to the last valid day of that month, at a fixed
// time of day, in UTC.
func InstallmentSchedule(start Month, months int, dayOfMonth int) []time.Time {
	out := make([]time.Time, 0, months)
	for i := 0; i < months; i++ {
		y, m := advanceMonth(start.Year, start.Month, i)
		day := clampDay(y, m, dayOfMonth)
		out = append(out, time.Date(y, time.Month(m), day, installmentHour, 0, 0, 0, time.UTC))
	}
	return out
}

func advanceMonth(year, month, by int) (int, int) {
	idx := year*12 + (month - 1) + by
	return idx / 12, idx%12 + 1
}

func clampDay(year, month, day int) int {
	if day < 1 {
		return 1
	}
	// Day zero of the next month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// BuildInstallmentPlan produces the projected-card drafts for totalCents
// spread over the inclusive start..end month range. The drafts conserve the
// total exactly and are all projections.
func BuildInstallmentPlan(listID string, totalCents int64, start, end Month, dayOfMonth int) ([]CardDraft, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := end.Validate(); err != nil {
		return nil, err
	}
	months := MonthsInclusive(start, end)
	if months < 1 {
		return nil, ErrInvalidMonthRange
	}
	amounts, err := SplitInstallments(totalCents, months)
	if err != nil {
		return nil, err
	}
	schedule := InstallmentSchedule(start, months, dayOfMonth)

	drafts := make([]CardDraft, months)
	for i := range drafts {
		drafts[i] = CardDraft{
			ListID:       listID,
			Amount:       Money{Cents: amounts[i]},
			OccurredAt:   schedule[i],
			IsProjection: true,
		}
	}
	return drafts, nil
}
