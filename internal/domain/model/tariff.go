package model

import (
	"strings"
	"time"
)

type DurationUnit string

const (
	DurationMonth DurationUnit = "month"
	DurationDay   DurationUnit = "day"
)

// Tariff is an immutable catalog entry.
type Tariff struct {
	Key           string
	Name          string
	Price         int64
	DurationValue int
	DurationUnit  DurationUnit
	Discount      string
}

const (
	TariffKeyYear     = "tariff_year"
	TariffKeyHalfYear = "tariff_halfyear"
	TariffKeyQuarter  = "tariff_quarter"
	TariffKeyMonth    = "tariff_month"
	TariffKeyTrial    = "tariff_trial"

	// TariffKeyPrefix prefixes every tariff selection callback.
	TariffKeyPrefix = "tariff_"
)

var catalog = []Tariff{
	{Key: TariffKeyYear, Name: "🏆12 месяцев", Price: 1000, DurationValue: 12, DurationUnit: DurationMonth, Discount: "Скидка 17%"},
	{Key: TariffKeyHalfYear, Name: "🥇6 месяцев", Price: 550, DurationValue: 6, DurationUnit: DurationMonth, Discount: "Скидка 8%"},
	{Key: TariffKeyQuarter, Name: "🥈3 месяца", Price: 280, DurationValue: 3, DurationUnit: DurationMonth, Discount: "Скидка 7%"},
	{Key: TariffKeyMonth, Name: "🥉1 месяц", Price: 100, DurationValue: 1, DurationUnit: DurationMonth},
	{Key: TariffKeyTrial, Name: "🌟 Пробный период", Price: 0, DurationValue: 5, DurationUnit: DurationDay, Discount: "Бесплатно"},
}

// Tariffs returns the catalog in display order.
func Tariffs() []Tariff {
	out := make([]Tariff, len(catalog))
	copy(out, catalog)
	return out
}

// TariffByKey looks a tariff up by its callback key.
func TariffByKey(key string) (Tariff, bool) {
	for _, t := range catalog {
		if t.Key == key {
			return t, true
		}
	}
	return Tariff{}, false
}

// TariffByName looks a tariff up by its display name.
func TariffByName(name string) (Tariff, bool) {
	name = strings.TrimSpace(name)
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return Tariff{}, false
}

// DefaultTariff is used whenever a tariff cannot be determined.
func DefaultTariff() Tariff {
	t, _ := TariffByKey(TariffKeyMonth)
	return t
}

// ResolveTariffName returns the named tariff or the default one.
func ResolveTariffName(name string) Tariff {
	if t, ok := TariffByName(name); ok {
		return t
	}
	return DefaultTariff()
}

func (t Tariff) IsTrial() bool { return t.Key == TariffKeyTrial }

// ExpiryFrom adds the tariff duration to from.
func (t Tariff) ExpiryFrom(from time.Time) time.Time {
	switch t.DurationUnit {
	case DurationDay:
		return from.AddDate(0, 0, t.DurationValue)
	default:
		return from.AddDate(0, t.DurationValue, 0)
	}
}
