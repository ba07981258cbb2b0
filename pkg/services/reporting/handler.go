package reporting

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ReportingService struct {
	reader Reader
	log    *logrus.Entry
}

func NewReportingService(reader Reader, log *logrus.Entry) *ReportingService {
	return &ReportingService{reader: reader, log: log}
}

// SetupRouter registers the read API on a fresh gin engine.
func SetupRouter(s *ReportingService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", s.health)
	r.GET("/summary", s.getSummary)
	r.GET("/stats", s.getStats)
	r.GET("/invoices", s.getInvoices)
	r.GET("/vendors/top10", s.getTopVendors)
	return r
}

func (s *ReportingService) health(c *gin.Context) {
	if err := s.reader.Ping(c.Request.Context()); err != nil {
		s.log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *ReportingService) getSummary(c *gin.Context) {
	totals, err := s.reader.Totals(c.Request.Context())
	if err != nil {
		s.fail(c, "failed to load summary", err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (s *ReportingService) getStats(c *gin.Context) {
	stats, err := s.reader.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, "failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *ReportingService) getInvoices(c *gin.Context) {
	q, err := parseInvoiceQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := s.reader.ListInvoices(c.Request.Context(), q)
	if err != nil {
		s.fail(c, "failed to list invoices", err)
		return
	}
	if page.Items == nil {
		page.Items = []InvoiceItem{}
	}
	c.JSON(http.StatusOK, page)
}

func (s *ReportingService) getTopVendors(c *gin.Context) {
	vendors, err := s.reader.TopVendors(c.Request.Context(), 10)
	if err != nil {
		s.fail(c, "failed to load top vendors", err)
		return
	}
	if vendors == nil {
		vendors = []VendorSpend{}
	}
	c.JSON(http.StatusOK, vendors)
}

func (s *ReportingService) fail(c *gin.Context, msg string, err error) {
	s.log.WithError(err).WithField("path", c.FullPath()).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseInvoiceQuery(c *gin.Context) (InvoiceQuery, error) {
	q := InvoiceQuery{
		Page:   1,
		Limit:  DefaultPageSize,
		Search: strings.TrimSpace(c.Query("q")),
		Sort:   c.DefaultQuery("sort", SortDateDesc),
	}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, queryError("page must be a positive integer")
		}
		q.Page = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, queryError("limit must be a positive integer")
		}
		q.Limit = min(n, MaxPageSize)
	}

	switch q.Sort {
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc:
	default:
		return q, queryError("sort must be one of date_desc, date_asc, amount_desc, amount_asc")
	}
	return q, nil
}

func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	}
}
