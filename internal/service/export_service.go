package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/export"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

type exportPaymentSource interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
}

type exportStudentSource interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files.
type ExportService struct {
	payments exportPaymentSource
	students exportStudentSource
	storage  fileStorage
	csv      csvRenderer
	xlsx     xlsxRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheetName string) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(payments exportPaymentSource, students exportStudentSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, xlsx xlsxRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		payments: payments,
		students: students,
		storage:  storage,
		csv:      csv,
		xlsx:     xlsx,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset for a job definition and stores the rendered
// export file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, sheetName, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, sheetName)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, sheetName)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	schoolPart := sanitizeFilename(job.Params.SchoolID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), schoolPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypePayments:
		return s.buildPaymentDataset(ctx, job.Params)
	case models.ExportTypeStudents:
		return s.buildStudentDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildPaymentDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.PaymentFilter{
		SchoolID: params.SchoolID,
		From:     params.From,
		To:       params.To,
		PageSize: exportPageSize,
	}
	var dataRows []map[string]string
	for page := 1; ; page++ {
		filter.Page = page
		payments, total, err := s.payments.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, p := range payments {
			voided := "no"
			if p.Voided {
				voided = "yes"
			}
			dataRows = append(dataRows, map[string]string{
				"Receipt No.":  p.ReceiptNumber,
				"Student ID":   p.StudentID,
				"Amount":       fmt.Sprintf("%.2f", p.Amount),
				"Currency":     p.Currency,
				"Method":       string(p.Method),
				"Platform Fee": fmt.Sprintf("%.2f", p.PlatformFeeAmount),
				"Voided":       voided,
				"Paid At":      p.PaidAt.UTC().Format(time.RFC3339),
			})
		}
		if len(dataRows) >= total || len(payments) == 0 {
			break
		}
	}
	dataset := export.Dataset{
		Headers: []string{"Receipt No.", "Student ID", "Amount", "Currency", "Method", "Platform Fee", "Voided", "Paid At"},
		Rows:    dataRows,
	}
	return dataset, "Payments", nil
}

func (s *ExportService) buildStudentDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.StudentFilter{
		SchoolID: params.SchoolID,
		PageSize: exportPageSize,
	}
	var dataRows []map[string]string
	for page := 1; ; page++ {
		filter.Page = page
		students, total, err := s.students.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, st := range students {
			active := "no"
			if st.Active {
				active = "yes"
			}
			dataRows = append(dataRows, map[string]string{
				"Admission No.":  st.AdmissionNumber,
				"Full Name":      st.FullName,
				"Class":          deref(st.ClassName),
				"Guardian":       deref(st.GuardianName),
				"Guardian Phone": deref(st.GuardianPhone),
				"Active":         active,
			})
		}
		if len(dataRows) >= total || len(students) == 0 {
			break
		}
	}
	dataset := export.Dataset{
		Headers: []string{"Admission No.", "Full Name", "Class", "Guardian", "Guardian Phone", "Active"},
		Rows:    dataRows,
	}
	return dataset, "Students", nil
}

const exportPageSize = 100

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
