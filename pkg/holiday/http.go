package holiday

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/common"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/metrics"
	"github.com/raterudder/tou/pkg/types"
)

// maxBodySize bounds a year file download.
const maxBodySize = 4 << 20

// HTTPSource fetches <baseURL>/<year>.json.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

var _ calendar.HolidaySource = (*HTTPSource)(nil)

// NewHTTPSource returns a source rooted at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  common.HTTPClient(time.Minute),
	}
}

// URL returns the address of a year's records.
func (s *HTTPSource) URL(year int) string {
	return fmt.Sprintf("%s/%d.json", s.baseURL, year)
}

// Records implements calendar.HolidaySource. Records outside year are
// dropped.
func (s *HTTPSource) Records(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	records, err := s.fetch(ctx, year)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.HolidayFetchesTotal.WithLabelValues("http", result).Inc()
	return records, err
}

func (s *HTTPSource) fetch(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	url := s.URL(year)
	log.Ctx(ctx).DebugContext(ctx, "fetching holiday records", slog.Int("year", year), slog.String("url", url))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday api status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday records: %w", err)
	}
	records, err := ParseRecords(body)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "holiday records parse error", slog.Any("error", err), slog.String("url", url))
		return nil, err
	}
	return ForYear(records, year), nil
}
