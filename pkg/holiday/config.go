package holiday

import (
	"context"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/calendar"
)

// DefaultURL serves Taiwan's government office calendar as <year>.json.
const DefaultURL = "https://cdn.jsdelivr.net/gh/ruyut/TaiwanCalendar/data"

// Configured sets up the holiday source based on flags.
func Configured() calendar.HolidaySource {
	provider := lflag.String("holiday-source", "http", "Holiday source to use (available: http, firestore, static)")
	baseURL := lflag.String("holiday-url", DefaultURL, "Base URL serving <year>.json holiday records")
	cacheDir := lflag.String("holiday-cache-dir", "", "Directory to cache fetched holiday records in, empty disables the cache")
	cacheTTL := lflag.Duration("holiday-cache-ttl", 7*24*time.Hour, "How long a cached holiday year is used before refetching (0 never expires)")

	var s struct{ calendar.HolidaySource }

	fs := ConfiguredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "http":
			s.HolidaySource = NewFileCache(NewHTTPSource(*baseURL), *cacheDir, *cacheTTL)
		case "firestore":
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			s.HolidaySource = NewFileCache(fs, *cacheDir, *cacheTTL)
		case "static":
			// weekend rules only
			s.HolidaySource = NewStaticSource()
		default:
			panic(fmt.Sprintf("unknown holiday source: %s", *provider))
		}
	})

	return &s
}
