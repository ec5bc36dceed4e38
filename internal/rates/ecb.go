package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"budgetbuddy/internal/log"
	"budgetbuddy/internal/metrics"
)

// DefaultECBURL serves the euro foreign exchange reference rates of the day.
const DefaultECBURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

const maxBodyBytes = 1 << 20

// ECBSource downloads the European Central Bank daily reference rates.
type ECBSource struct {
	url        string
	httpClient *http.Client
	logger     *log.Logger
}

var _ Source = (*ECBSource)(nil)

func NewECBSource(url string, logger *log.Logger) *ECBSource {
	if url == "" {
		url = DefaultECBURL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ECBSource{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.WithComponent(log.ComponentRates),
	}
}

func (s *ECBSource) Rates(ctx context.Context) (Table, error) {
	start := time.Now()
	body, err := s.fetch(ctx)
	if err != nil {
		metrics.ObserveRateFetch("error")
		s.logger.WarnContext(ctx, "Rate fetch failed", "url", s.url, log.FieldError, err.Error())
		return Table{}, err
	}
	table, err := parseECB(body)
	if err != nil {
		metrics.ObserveRateFetch("error")
		s.logger.WarnContext(ctx, "Rate table unreadable", log.FieldError, err.Error())
		return Table{}, err
	}
	metrics.ObserveRateFetch("ok")
	s.logger.InfoContext(ctx, "Rate table fetched",
		"date", table.Date.Format("2006-01-02"),
		"currencies", len(table.Rates),
		log.FieldDuration, time.Since(start).Milliseconds())
	return table, nil
}

func (s *ECBSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get rates: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}
	return body, nil
}

// parseECB reads the eurofxref envelope:
//
//	<Cube><Cube time="2025-03-14"><Cube currency="USD" rate="1.0882"/>...</Cube></Cube>
func parseECB(body []byte) (Table, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return Table{}, fmt.Errorf("parse rates xml: %w", err)
	}

	table := Table{Base: "EUR", Rates: make(map[string]decimal.Decimal)}
	if day := doc.FindElement("//Cube[@time]"); day != nil {
		if t, err := time.Parse("2006-01-02", day.SelectAttrValue("time", "")); err == nil {
			table.Date = t
		}
	}

	for _, el := range doc.FindElements("//Cube[@currency]") {
		code := el.SelectAttrValue("currency", "")
		rate, err := decimal.NewFromString(el.SelectAttrValue("rate", ""))
		if err != nil || !rate.IsPositive() {
			continue
		}
		table.Rates[code] = rate
	}
	if len(table.Rates) == 0 {
		return Table{}, errors.New("parse rates xml: no rates found")
	}
	table.Rates[table.Base] = decimal.NewFromInt(1)
	return table, nil
}
