package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/metrics"
	"github.com/raterudder/tou/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreSource stores holiday records under holidays/<year>/days/<YYYYMMDD>.
type FirestoreSource struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ calendar.HolidaySource = (*FirestoreSource)(nil)

// ConfiguredFirestore registers the firestore flags. The source still needs
// Init once flags are parsed.
func ConfiguredFirestore() *FirestoreSource {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreSource{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// NewFirestoreSource returns an uninitialized source. Empty values use the
// detected project and the default database.
func NewFirestoreSource(projectID, database string) *FirestoreSource {
	return &FirestoreSource{projectID: projectID, database: database}
}

// Init creates the Firestore client. It must be called before any other
// method.
func (f *FirestoreSource) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreSource) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreSource) yearDoc(year int) *firestore.DocumentRef {
	return f.client.Collection("holidays").Doc(strconv.Itoa(year))
}

// Records implements calendar.HolidaySource. A year that was never seeded has
// no records.
func (f *FirestoreSource) Records(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	records, err := f.records(ctx, year)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.HolidayFetchesTotal.WithLabelValues("firestore", result).Inc()
	return records, err
}

func (f *FirestoreSource) records(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	iter := f.yearDoc(year).Collection("days").
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var records []types.HolidayRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("error iterating holidays of %d: %w", year, err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "holiday doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
			return nil, fmt.Errorf("holiday document %s missing 'json' field: %w", doc.Ref.ID, err)
		}
		jsonStr, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("holiday document %s 'json' field is not string", doc.Ref.ID)
		}

		var r types.HolidayRecord
		if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal holiday", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Upsert writes records, each under the year of its date.
func (f *FirestoreSource) Upsert(ctx context.Context, records []types.HolidayRecord) error {
	years := make(map[int]bool)
	for _, r := range records {
		jsonBytes, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal holiday: %w", err)
		}
		docID := types.FormatHolidayDate(r.Date)
		_, err = f.yearDoc(r.Date.Year).Collection("days").Doc(docID).Set(ctx, map[string]interface{}{
			"json":      string(jsonBytes),
			"isHoliday": r.IsHoliday,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert holiday %s: %w", docID, err)
		}
		years[r.Date.Year] = true
	}
	for year := range years {
		_, err := f.yearDoc(year).Set(ctx, map[string]interface{}{
			"updated": time.Now(),
		}, firestore.MergeAll)
		if err != nil {
			return fmt.Errorf("failed to update holiday year %d: %w", year, err)
		}
	}
	return nil
}
