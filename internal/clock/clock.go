// Package clock содержит реализации domain.Clock.
package clock

import (
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Func адаптирует функцию к domain.Clock.
type Func func() time.Time

// Now возвращает момент, приведённый к UTC.
func (f Func) Now() time.Time {
	return f().UTC()
}

// System возвращает системные часы в UTC.
func System() domain.Clock {
	return Func(time.Now)
}

// Fixed возвращает часы, всегда показывающие t. Используется в тестах.
func Fixed(t time.Time) domain.Clock {
	utc := t.UTC()
	return Func(func() time.Time { return utc })
}

var _ domain.Clock = Func(nil)
