package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/swapify-api/internal/analytics"
	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

const (
	defaultTop = 5
	maxTop     = 50
)

// Store is the storage the reports read
type Store interface {
	ListProductsCreatedIn(ctx context.Context, from, to time.Time) ([]models.Product, error)
	ListSwapsActiveIn(ctx context.Context, from, to time.Time) ([]models.Swap, error)
	ListShoutoutsCreatedIn(ctx context.Context, from, to time.Time) ([]models.Shoutout, error)
	ListSignupTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// ReportService serves the admin analytics reports
type ReportService struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewReportService creates a ReportService
func NewReportService(store Store, log *zap.Logger) *ReportService {
	return &ReportService{store: store, log: log.Named("report"), now: time.Now}
}

// Get returns the report of the requested range as JSON
func (s *ReportService) Get(c fiber.Ctx) error {
	rep, status, err := s.build(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rep)
}

// Export sends the report as a CSV or XLSX attachment
func (s *ReportService) Export(c fiber.Ctx) error {
	format := strings.ToLower(c.Query("format", FormatCSV))
	if format != FormatCSV && format != FormatXLSX {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Format must be csv or xlsx"})
	}

	rep, status, err := s.build(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = WriteXLSX(&buf, rep)
	} else {
		err = WriteCSV(&buf, rep)
	}
	if err != nil {
		s.log.Error("export report failed", zap.String("format", format), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export report"})
	}

	filename := fmt.Sprintf("swapify-report-%s-%s.%s",
		rep.Range.From.Format("20060102"), rep.Range.To.AddDate(0, 0, -1).Format("20060102"), format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

// build resolves the query, loads the range and the window before it, and computes the report.
// On failure it returns the status and a user-facing error.
func (s *ReportService) build(c fiber.Ctx) (Report, int, error) {
	r, err := analytics.ResolveRange(c.Query("range"), c.Query("from"), c.Query("to"), s.now())
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidPreset) {
			return Report{}, fiber.StatusBadRequest, errors.New("Range must be 7d, 30d, 90d or custom")
		}
		return Report{}, fiber.StatusBadRequest, fmt.Errorf("Custom range needs valid from and to dates covering 1 to %d days", analytics.MaxCustomDays)
	}

	top := defaultTop
	if raw := c.Query("top"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 1 {
			return Report{}, fiber.StatusBadRequest, errors.New("Invalid top parameter")
		}
		top = min(n, maxTop)
	}

	data, err := s.load(r.Previous().From, r.To)
	if err != nil {
		s.log.Error("load report data failed", zap.Time("from", r.From), zap.Time("to", r.To), zap.Error(err))
		return Report{}, fiber.StatusInternalServerError, errors.New("Failed to load report")
	}

	return Build(r, data, top), fiber.StatusOK, nil
}

func (s *ReportService) load(from, to time.Time) (Data, error) {
	ctx, cancel := db.GetContext()
	defer cancel()

	var data Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Products, err = s.store.ListProductsCreatedIn(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		data.Swaps, err = s.store.ListSwapsActiveIn(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		data.Shoutouts, err = s.store.ListShoutoutsCreatedIn(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		data.Signups, err = s.store.ListSignupTimes(gctx, from, to)
		return err
	})
	return data, g.Wait()
}
