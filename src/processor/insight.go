package processor

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount 千分位格式化，用于头部指标和说明文字
func FormatCount(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

func seasonInsight(t Table) string {
	best, bestTotal := "", -1.0
	dominated := 0
	for _, r := range t.Rows {
		casual, registered := r.Values[0], r.Values[1]
		if total := casual + registered; total > bestTotal {
			best, bestTotal = r.Group, total
		}
		if registered > casual {
			dominated++
		}
	}

	text := fmt.Sprintf("%s records the highest volume with %s rentals per day.", best, FormatCount(bestTotal))
	switch {
	case dominated == len(t.Rows):
		text += " Registered users dominate consistently in every season."
	case dominated == 0:
		text += " Casual users outnumber registered users in every season."
	default:
		text += fmt.Sprintf(" Registered users dominate in %d of %d seasons.", dominated, len(t.Rows))
	}
	return text
}

func workingDayInsight(t Table) string {
	off, okOff := t.Value(NonWorkingDay, MeasureTotal)
	on, okOn := t.Value(WorkingDay, MeasureTotal)
	switch {
	case okOff && okOn && on >= off:
		return fmt.Sprintf("Working days average %s rentals against %s on non-working days, pointing to routine commuting use.",
			FormatCount(on), FormatCount(off))
	case okOff && okOn:
		return fmt.Sprintf("Non-working days average %s rentals against %s on working days, pointing to leisure use.",
			FormatCount(off), FormatCount(on))
	case okOn:
		return fmt.Sprintf("Only working days are selected, averaging %s rentals.", FormatCount(on))
	default:
		return fmt.Sprintf("Only non-working days are selected, averaging %s rentals.", FormatCount(off))
	}
}

// peakHour 在 [from, to) 小时范围内找度量的最大值
func peakHour(t Table, measure string, from, to int) (int, bool) {
	m := t.measureIndex(measure)
	peak, best, found := 0, -1.0, false
	for _, r := range t.Rows {
		h, err := strconv.Atoi(r.Group)
		if err != nil || h < from || h >= to {
			continue
		}
		if r.Values[m] > best {
			peak, best, found = h, r.Values[m], true
		}
	}
	return peak, found
}

func hourlyInsight(t Table) string {
	morning, okMorning := peakHour(t, MeasureRegistered, 0, 12)
	evening, okEvening := peakHour(t, MeasureRegistered, 12, 24)
	casual, _ := peakHour(t, MeasureCasual, 0, 24)

	var text string
	if okMorning && okEvening {
		text = fmt.Sprintf("Registered usage peaks at %02d:00 and %02d:00, the commuting rush hours.", morning, evening)
	} else {
		peak, _ := peakHour(t, MeasureRegistered, 0, 24)
		text = fmt.Sprintf("Registered usage peaks at %02d:00.", peak)
	}
	return text + fmt.Sprintf(" Casual usage peaks at %02d:00.", casual)
}

func weatherInsight(t Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	best, worst := t.Rows[0], t.Rows[0]
	for _, r := range t.Rows[1:] {
		if r.Values[0] > best.Values[0] {
			best = r
		}
		if r.Values[0] < worst.Values[0] {
			worst = r
		}
	}
	text := fmt.Sprintf("%s weather drives rentals with %s per day on average.", best.Group, FormatCount(best.Values[0]))
	if worst.Group != best.Group && best.Values[0] > 0 {
		drop := (1 - worst.Values[0]/best.Values[0]) * 100
		text += fmt.Sprintf(" Demand falls %.0f%% under %s.", drop, worst.Group)
	}
	return text
}

func weatherResponseInsight(t Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	if len(t.Rows) < 2 {
		return fmt.Sprintf("Only %s weather is present in the selection.", t.Rows[0].Group)
	}
	first, last := t.Rows[0], t.Rows[len(t.Rows)-1]
	casualDrop := relativeDrop(first.Values[0], last.Values[0])
	registeredDrop := relativeDrop(first.Values[1], last.Values[1])

	text := fmt.Sprintf("From %s to %s, casual rentals change by %.0f%% and registered rentals by %.0f%%.",
		first.Group, last.Group, -casualDrop, -registeredDrop)
	if casualDrop > registeredDrop {
		return text + " Casual users are more sensitive to bad weather than registered users."
	}
	return text + " Registered users are at least as sensitive to weather as casual users."
}

func relativeDrop(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (1 - to/from) * 100
}

func segmentInsight(t Table) string {
	if len(t.Rows) == 0 {
		return "No day in the selection can be segmented."
	}
	total := 0
	best := t.Rows[0]
	for _, r := range t.Rows {
		total += r.Count
		if r.Count > best.Count {
			best = r
		}
	}
	if total == 0 {
		return "No day in the selection can be segmented."
	}
	share := float64(best.Count) / float64(total) * 100
	return fmt.Sprintf("Most days fall in the %s segment (%s of %s days, %.0f%%).",
		best.Group, FormatCount(float64(best.Count)), FormatCount(float64(total)), share)
}
