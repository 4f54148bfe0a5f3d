package seed

import (
	"fmt"
	"strings"
	"time"

	"db-mirror/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
)

// Generator produces plausible column values. Text columns are matched on
// their name first (email, phone, city...) and fall back to words.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewGenerator returns a Generator; equal seeds give equal sequences.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		now:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}

// Value generates a value for col. It never returns nil for a NOT NULL column.
func (g *Generator) Value(col *schema.Column) any {
	name := strings.ToLower(col.Name)
	f := g.faker

	switch col.Type {
	case schema.TypeEnum:
		if len(col.EnumValues) > 0 {
			return f.RandomString(col.EnumValues)
		}
		return truncate(f.Word(), col.Length)

	case schema.TypeInteger:
		// Boolean-like column handling
		if isFlag(name) {
			return f.Number(0, 1)
		}
		if strings.Contains(name, "year") {
			return f.Number(2000, 2025)
		}
		return f.Number(1, maxForDigits(col.Length, 50000))

	case schema.TypeDecimal:
		return f.Price(0.99, 99.99)

	case schema.TypeBoolean:
		return f.Bool()

	case schema.TypeDatetime:
		return f.DateRange(g.now.AddDate(-1, 0, 0), g.now).Truncate(time.Second)

	case schema.TypeBinary:
		return []byte(f.LetterN(16))
	}

	return truncate(g.text(name, col.Length), col.Length)
}

func (g *Generator) text(name string, length int) string {
	f := g.faker
	isID := strings.HasSuffix(name, "id")

	switch {
	case strings.Contains(name, "year"):
		return fmt.Sprintf("%d", f.Number(2000, 2025))
	case isID:
		return f.LetterN(uint(min(max(length, 1), 12)))
	case strings.Contains(name, "email"):
		return f.Email()
	case strings.Contains(name, "phone"):
		return f.Phone()
	case strings.Contains(name, "first"):
		return f.FirstName()
	case strings.Contains(name, "last"):
		return f.LastName()
	case strings.Contains(name, "name"):
		return f.Name()
	case strings.Contains(name, "address"):
		return f.Street()
	case strings.Contains(name, "zip"), strings.Contains(name, "postal"):
		return f.Zip()
	case strings.Contains(name, "city"):
		return f.City()
	case strings.Contains(name, "country"):
		return f.Country()
	case isFlag(name):
		return f.RandomString([]string{"Y", "N"})
	case length > 0 && length < 20:
		return f.Word()
	case strings.Contains(name, "title"), strings.Contains(name, "subject"):
		return f.Sentence(3)
	}
	return f.Sentence(8)
}

func isFlag(name string) bool {
	return strings.Contains(name, "active") || strings.Contains(name, "enabled") || strings.HasPrefix(name, "is_")
}

// maxForDigits limits generated integers to the column's precision.
func maxForDigits(digits, fallback int) int {
	if digits <= 0 || digits >= 10 {
		return fallback
	}
	limit := 1
	for i := 0; i < digits; i++ {
		limit *= 10
	}
	return min(limit-1, fallback)
}

// identityLimit returns how many values an auto increment column of the
// given native type can hold.
func identityLimit(rawType string) int {
	base := strings.ToLower(rawType)
	if i := strings.IndexAny(base, "( "); i > 0 {
		base = base[:i]
	}
	switch base {
	case "tinyint":
		return 255
	case "smallint", "int2":
		return 32767
	case "mediumint":
		return 8388607
	default:
		return 2147483647
	}
}
