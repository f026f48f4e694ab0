package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/dto"
	"github.com/noah-isme/school-results-api/internal/models"
	"github.com/noah-isme/school-results-api/internal/repository"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/export"
	"github.com/noah-isme/school-results-api/pkg/jobs"
	"github.com/noah-isme/school-results-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportResultRepo interface {
	ListByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) ([]models.SubjectResult, error)
	GetTermTotal(ctx context.Context, schoolID, studentID, termID, sessionID string) (*models.TermTotal, error)
}

type exportStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type exportSubjectReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix  string
	ResultTTL  time.Duration
	MaxRetries int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportService manages asynchronous result-sheet exports: it persists
// job records, dispatches them onto the worker queue, renders class
// report cards and broadsheets, and serves the signed downloads.
type ExportService struct {
	store       exportJobStore
	queue       jobDispatcher
	results     exportResultRepo
	students    exportStudentReader
	subjects    exportSubjectReader
	enrollments rankingEnrollmentRepo
	ranking     *RankingService
	storage     exportFileStorage
	signer      *storage.DownloadSigner
	csv         csvRenderer
	pdf         pdfRenderer
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(store exportJobStore, queue jobDispatcher, results exportResultRepo, students exportStudentReader, subjects exportSubjectReader, enrollments rankingEnrollmentRepo, ranking *RankingService, fileStore exportFileStorage, signer *storage.DownloadSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportService{
		store:       store,
		queue:       queue,
		results:     results,
		students:    students,
		subjects:    subjects,
		enrollments: enrollments,
		ranking:     ranking,
		storage:     fileStore,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// AttachQueue wires the dispatcher after construction. The queue's
// handler needs the worker, which needs this service, so the queue is
// attached once both exist.
func (s *ExportService) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateJob validates the request, persists the job and enqueues it.
func (s *ExportService) CreateJob(ctx context.Context, claims *models.JWTClaims, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	job := &models.ExportJob{
		SchoolID: claims.SchoolID,
		Type:     req.Type,
		Params: models.ExportJobParams{
			SessionID:    req.SessionID,
			TermID:       req.TermID,
			ClassLevelID: req.ClassLevelID,
			Format:       req.Format,
		},
		Status:    models.ExportStatusQueued,
		Progress:  0,
		CreatedBy: claims.UserID,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ExportStatusFailed
		msg := "failed to enqueue job"
		progress := 100
		now := time.Now().UTC()
		_ = s.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}

	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata, scoped to the caller's school.
func (s *ExportService) GetStatus(ctx context.Context, claims *models.JWTClaims, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.SchoolID != claims.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &dto.ExportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
		Error:     job.ErrorMessage,
	}, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	format := models.ExportFormatCSV
	if strings.HasSuffix(relPath, ".pdf") {
		format = models.ExportFormatPDF
	}
	return &ExportDownload{
		File:      file,
		Filename:  fmt.Sprintf("export-%s.%s", jobID, format),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.store.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("recover queued export jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("requeue pending export job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup boots a goroutine that purges expired export files.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
					s.logger.Warn("export cleanup", zap.Error(err))
				} else if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// Generate builds the dataset for a job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}

	var (
		dataset export.Dataset
		title   string
		err     error
	)
	switch job.Type {
	case models.ExportTypeReportCards:
		dataset, err = s.buildReportCardDataset(ctx, job)
		title = "Report Cards"
	case models.ExportTypeBroadsheet:
		dataset, err = s.buildBroadsheetDataset(ctx, job)
		title = "Broadsheet"
	default:
		err = fmt.Errorf("unsupported export type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s-%s-%d.%s", job.Type, job.ID, time.Now().UTC().Unix(), job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ScoreSheet renders a blank score-entry template for a class: one row
// per (student, subject) with empty CA1..CA3 and Exam columns. Served
// synchronously since no result data is read.
func (s *ExportService) ScoreSheet(ctx context.Context, claims *models.JWTClaims, classLevelID, sessionID string) ([]byte, string, error) {
	if classLevelID == "" || sessionID == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "classLevelId and sessionId are required")
	}

	cohort, err := s.enrollments.ListByClassLevelAndSession(ctx, claims.SchoolID, classLevelID, sessionID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	subjects, err := s.subjects.ListBySchool(ctx, claims.SchoolID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	headers := []string{"Student", "Student ID", "Subject", "CA1", "CA2", "CA3", "Exam"}
	rows := make([]map[string]string, 0, len(cohort)*len(subjects))
	for _, enrollment := range cohort {
		student, err := s.students.FindByID(ctx, enrollment.StudentID)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		for _, subject := range subjects {
			rows = append(rows, map[string]string{
				"Student":    student.Name,
				"Student ID": student.ID,
				"Subject":    subject.Name,
			})
		}
	}

	payload, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render score sheet")
	}
	filename := fmt.Sprintf("score-sheet-%s.csv", classLevelID)
	return payload, filename, nil
}

// buildReportCardDataset renders one row per (student, subject) for the
// class, with the student's standing repeated on each row.
func (s *ExportService) buildReportCardDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, error) {
	p := job.Params
	ranked, err := s.ranking.ClassStanding(ctx, job.SchoolID, p.ClassLevelID, p.SessionID, p.TermID)
	if err != nil {
		return export.Dataset{}, err
	}

	headers := []string{"Student", "Subject", "CA", "Exam", "Total", "Grade", "Remark", "Term Total", "Position"}
	rows := make([]map[string]string, 0, len(ranked)*8)
	for _, member := range ranked {
		student, err := s.students.FindByID(ctx, member.StudentID)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load student %s: %w", member.StudentID, err)
		}
		results, err := s.results.ListByTuple(ctx, job.SchoolID, member.StudentID, p.TermID, p.SessionID)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load results for %s: %w", member.StudentID, err)
		}
		for _, r := range results {
			rows = append(rows, map[string]string{
				"Student":    student.Name,
				"Subject":    r.Subject,
				"CA":         strconv.Itoa(r.CA),
				"Exam":       strconv.Itoa(intOrZero(r.Exam)),
				"Total":      strconv.Itoa(r.TotalScore),
				"Grade":      r.Grade,
				"Remark":     r.Remark,
				"Term Total": strconv.Itoa(member.Total),
				"Position":   member.PositionLabel,
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

// buildBroadsheetDataset renders one row per student with a column per
// subject taught to the class.
func (s *ExportService) buildBroadsheetDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, error) {
	p := job.Params
	ranked, err := s.ranking.ClassStanding(ctx, job.SchoolID, p.ClassLevelID, p.SessionID, p.TermID)
	if err != nil {
		return export.Dataset{}, err
	}

	type studentSheet struct {
		name    string
		scores  map[string]int
		total   int
		ordinal string
	}

	subjectSet := make(map[string]struct{})
	sheets := make([]studentSheet, 0, len(ranked))
	for _, member := range ranked {
		student, err := s.students.FindByID(ctx, member.StudentID)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load student %s: %w", member.StudentID, err)
		}
		results, err := s.results.ListByTuple(ctx, job.SchoolID, member.StudentID, p.TermID, p.SessionID)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load results for %s: %w", member.StudentID, err)
		}
		scores := make(map[string]int, len(results))
		for _, r := range results {
			scores[r.Subject] = r.TotalScore
			subjectSet[r.Subject] = struct{}{}
		}
		sheets = append(sheets, studentSheet{
			name:    student.Name,
			scores:  scores,
			total:   member.Total,
			ordinal: member.PositionLabel,
		})
	}

	subjects := make([]string, 0, len(subjectSet))
	for subject := range subjectSet {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	headers := append([]string{"Student"}, subjects...)
	headers = append(headers, "Total", "Position")

	rows := make([]map[string]string, 0, len(sheets))
	for _, sheet := range sheets {
		row := map[string]string{
			"Student":  sheet.name,
			"Total":    strconv.Itoa(sheet.total),
			"Position": sheet.ordinal,
		}
		for _, subject := range subjects {
			if score, ok := sheet.scores[subject]; ok {
				row[subject] = strconv.Itoa(score)
			} else {
				row[subject] = "-"
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

// ExportWorker bridges queue jobs to the export generator.
type ExportWorker struct {
	store      exportJobStore
	exporter   *ExportService
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(store exportJobStore, exporter *ExportService, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{store: store, exporter: exporter, logger: logger, maxRetries: maxRetries}
}

// Handle processes one queue job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.store.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("mark export job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		} else {
			queued := models.ExportStatusQueued
			reset := 0
			if updateErr := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("requeue export job", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.store.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("mark export job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}
