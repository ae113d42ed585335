package domain

import (
	"math"
	"time"
)

// Таблицы начисления эко-баллов. Единственный источник истины: и превью в
// каталоге, и начисление при подтверждении заказа считают по этим таблицам.
// Чем ближе срок годности, тем выше базовый балл; первый подошедший tier
// выигрывает.
type ecoTier struct {
	maxDays int
	points  int
}

var ecoTiers = []ecoTier{
	{maxDays: 0, points: 100},
	{maxDays: 1, points: 80},
	{maxDays: 3, points: 60},
	{maxDays: 7, points: 40},
	{maxDays: 14, points: 25},
	{maxDays: 30, points: 15},
}

// За пределами последнего tier действует минимальный балл.
const ecoPointsFloor = 10

var ecoCategoryMultipliers = map[string]float64{
	"Meat and Poultry": 1.3,
	"Dairy":            1.2,
	"Deli":             1.2,
	"Bakery":           1.15,
	"Produce":          1.1,
}

// DaysUntilExpiry возвращает ceil((expiry - now) / 24h). Может быть
// отрицательным для просроченных товаров.
func DaysUntilExpiry(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

// CalculateEcoPoints оценивает экологическую ценность покупки одной единицы
// товара. Неизвестная категория получает множитель 1.0, просроченный товар
// попадает в самый срочный tier; ошибок у функции нет.
func CalculateEcoPoints(expiry time.Time, category string) int {
	return CalculateEcoPointsAt(expiry, category, time.Now().UTC())
}

// CalculateEcoPointsAt — детерминированный вариант с явным моментом "сейчас".
func CalculateEcoPointsAt(expiry time.Time, category string, now time.Time) int {
	days := DaysUntilExpiry(expiry, now)

	base := ecoPointsFloor
	for _, tier := range ecoTiers {
		if days <= tier.maxDays {
			base = tier.points
			break
		}
	}

	multiplier, ok := ecoCategoryMultipliers[category]
	if !ok {
		multiplier = 1.0
	}

	return int(math.Round(float64(base) * multiplier))
}
