package plans

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/calendar"
)

// DefaultTimezone is where Taipower plans are read.
const DefaultTimezone = "Asia/Taipei"

// Configured sets up the plan catalog based on flags. Without a plans file
// the embedded plans are used.
func Configured(cal calendar.Calendar) *Catalog {
	file := lflag.String("plans-file", "", "YAML or JSON plans file to load instead of the built-in plans")
	timezone := lflag.String("plans-timezone", DefaultTimezone, "Time zone plan schedules are read in")

	c := &Catalog{}

	lflag.Do(func() {
		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			panic(fmt.Sprintf("invalid plans timezone %q: %v", *timezone, err))
		}
		decl, err := DefaultDeclaration()
		if *file != "" {
			decl, err = LoadFile(*file)
		}
		if err != nil {
			panic(fmt.Sprintf("failed to load plans: %v", err))
		}
		built, err := Build(decl, cal, loc)
		if err != nil {
			panic(fmt.Sprintf("failed to build plans: %v", err))
		}
		*c = *built
	})

	return c
}
