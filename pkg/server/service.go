package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikeboe/company-researcher/pkg/clients"
	"github.com/mikeboe/company-researcher/pkg/config"
	"github.com/mikeboe/company-researcher/pkg/database"
	"github.com/mikeboe/company-researcher/pkg/embeddings"
	"github.com/mikeboe/company-researcher/pkg/nodes"
	"github.com/mikeboe/company-researcher/pkg/observer"
	"github.com/mikeboe/company-researcher/pkg/search"
	"github.com/mikeboe/company-researcher/pkg/splitter"
	"github.com/mikeboe/company-researcher/pkg/state"
	"github.com/mikeboe/company-researcher/pkg/vectorstore"
)

type Service struct {
	DB  *database.PostgresDB
	Cfg *config.Config

	mu      sync.Mutex
	streams map[uuid.UUID]*observer.Broadcaster
}

func NewService(db *database.PostgresDB, cfg *config.Config) *Service {
	return &Service{
		DB:      db,
		Cfg:     cfg,
		streams: make(map[uuid.UUID]*observer.Broadcaster),
	}
}

type Job struct {
	ID         uuid.UUID `json:"id"`
	Company    string    `json:"company"`
	CompanyURL string    `json:"company_url"`
	HQLocation string    `json:"hq_location"`
	Industry   string    `json:"industry"`
	Status     string    `json:"status"`
	Report     *string   `json:"report,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateJobRequest struct {
	Company    string `json:"company" binding:"required"`
	CompanyURL string `json:"company_url"`
	HQLocation string `json:"hq_location"`
	Industry   string `json:"industry"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, company, company_url, hq_location, industry, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, company, company_url, hq_location, industry, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Company, req.CompanyURL, req.HQLocation, req.Industry).Scan(
		&job.ID, &job.Company, &job.CompanyURL, &job.HQLocation, &job.Industry, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Start background worker
	go s.runWorker(*job)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, company, company_url, hq_location, industry, status, report, created_at, updated_at
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Company, &job.CompanyURL, &job.HQLocation, &job.Industry,
		&job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, company, company_url, hq_location, industry, status, report, created_at, updated_at
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Company, &job.CompanyURL, &job.HQLocation, &job.Industry,
			&job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// EvidenceHit is one curated-document chunk matching an evidence query.
type EvidenceHit struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
}

// SearchEvidence runs a semantic query against a finished job's indexed
// evidence: the query is embedded and matched against the curated-document
// chunks indexEvidence stored for that job.
func (s *Service) SearchEvidence(ctx context.Context, jobID uuid.UUID, query string, topK int) ([]EvidenceHit, error) {
	if topK <= 0 {
		topK = 5
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, s.Cfg.EmbeddingModel, s.Cfg.GoogleApiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}
	queryVec, err := embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	store, err := vectorstore.NewPGVectorStore(s.DB.Pool, evidenceTable(jobID))
	if err != nil {
		return nil, fmt.Errorf("invalid evidence table: %w", err)
	}
	results, err := store.SimilaritySearch(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("evidence search failed: %w", err)
	}

	hits := make([]EvidenceHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, EvidenceHit{
			Content:  r.Document.Content,
			Metadata: r.Document.Metadata,
			Score:    r.Score,
		})
	}
	return hits, nil
}

// Stream returns the live event channel for a running job, or false when the
// job has no active stream.
func (s *Service) Stream(jobID uuid.UUID) (<-chan observer.StatusEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.streams[jobID]
	if !ok {
		return nil, false
	}
	return b.Events(), true
}

func (s *Service) runWorker(job Job) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", job.ID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, job.ID))

	broadcaster := observer.NewBroadcaster(256)
	s.mu.Lock()
	s.streams[job.ID] = broadcaster
	s.mu.Unlock()
	defer func() {
		broadcaster.Close()
		s.mu.Lock()
		delete(s.streams, job.ID)
		s.mu.Unlock()
	}()

	deps, embedder, err := s.buildDeps(ctx, dbLogger)
	if err != nil {
		s.failJob(ctx, job.ID, fmt.Sprintf("Failed to init backends: %v", err))
		return
	}

	pipeline, err := nodes.NewPipeline(deps, s.Cfg.ReportDir, dbLogger)
	if err != nil {
		// The only fatal path: a malformed topology fails before any stage
		// runs.
		s.failJob(ctx, job.ID, fmt.Sprintf("Invalid pipeline: %v", err))
		return
	}

	st := state.New(state.Params{
		Company:    job.Company,
		CompanyURL: job.CompanyURL,
		HQLocation: job.HQLocation,
		Industry:   job.Industry,
	}, job.ID.String(), broadcaster)

	var final *state.State
	for snap := range pipeline.Run(ctx, st) {
		final = snap
		if stateJSON, err := json.Marshal(snap); err == nil {
			_, err = s.DB.Pool.Exec(ctx,
				"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
				job.ID, stateJSON)
			if err != nil {
				dbLogger.Error("Failed to save state to DB", "error", err)
			}
		}
	}

	s.indexEvidence(ctx, job.ID, final, embedder, dbLogger)

	if final != nil && final.Report != nil {
		_, err = s.DB.Pool.Exec(ctx,
			"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
			job.ID, *final.Report)
		if err != nil {
			dbLogger.Error("Failed to save final report to DB", "error", err)
		}
		return
	}

	// A run that produced no report is still a completed run; the narrative
	// log carries the reasons.
	dbLogger.Warn("Run completed without a report", "company", job.Company)
	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'completed', updated_at = NOW() WHERE id = $1", job.ID)
}

func (s *Service) buildDeps(ctx context.Context, logger *slog.Logger) (nodes.Deps, *embeddings.GoogleEmbedder, error) {
	llm, err := clients.GoogleAi(clients.ModelType(s.Cfg.FastModel))
	if err != nil {
		return nodes.Deps{}, nil, fmt.Errorf("failed to init LLM: %w", err)
	}
	generator := clients.NewLLMGenerator(llm).WithModels(s.Cfg.ReasoningModel, s.Cfg.FastModel)

	tavily := search.NewTavilyClient(s.Cfg.TavilyApiKey)

	var embedder *embeddings.GoogleEmbedder
	if s.Cfg.GoogleApiKey != "" {
		embedder, err = embeddings.NewGoogleEmbedder(ctx, s.Cfg.EmbeddingModel, s.Cfg.GoogleApiKey)
		if err != nil {
			logger.Warn("Embedder unavailable, curator will use retrieval scores", "error", err)
			embedder = nil
		}
	}

	deps := nodes.Deps{
		Generator: generator,
		Searcher:  tavily,
		Extractor: tavily,
		Logger:    logger,
	}
	if embedder != nil {
		deps.Embedder = embedder
	}
	return deps, embedder, nil
}

// evidenceTable names the per-job pgvector collection. UUID dashes become
// underscores to satisfy Postgres identifier rules.
func evidenceTable(jobID uuid.UUID) string {
	return "evidence_" + strings.ReplaceAll(jobID.String(), "-", "_")
}

// indexEvidence chunks and embeds the curated documents of a finished run
// into a per-job pgvector collection, which SearchEvidence queries later.
// Best-effort: indexing failures only log.
func (s *Service) indexEvidence(ctx context.Context, jobID uuid.UUID, final *state.State, embedder *embeddings.GoogleEmbedder, logger *slog.Logger) {
	if final == nil || embedder == nil {
		return
	}

	table := evidenceTable(jobID)
	if err := s.DB.EnsureVectorExtension(ctx); err != nil {
		logger.Warn("Failed to ensure vector extension", "error", err)
		return
	}
	if err := s.DB.CreateEmbeddingsTable(ctx, table, 1536); err != nil {
		logger.Warn("Failed to create evidence table", "table", table, "error", err)
		return
	}
	store, err := vectorstore.NewPGVectorStore(s.DB.Pool, table)
	if err != nil {
		logger.Warn("Invalid evidence table name", "table", table, "error", err)
		return
	}

	textSplitter := splitter.NewRecursiveCharacterTextSplitter(s.Cfg.ChunkSize, s.Cfg.ChunkOverlap)
	indexed := 0

	for _, key := range []state.Key{
		state.KeyCuratedCompanyData, state.KeyCuratedIndustryData,
		state.KeyCuratedFinancialData, state.KeyCuratedNewsData,
	} {
		for url, doc := range final.Docs(key) {
			chunks, err := textSplitter.SplitText(doc.RawContent)
			if err != nil || len(chunks) == 0 {
				continue
			}
			vectors, err := embedder.EmbedTexts(ctx, chunks)
			if err != nil {
				logger.Warn("Failed to embed evidence", "url", url, "error", err)
				continue
			}

			documents := make([]vectorstore.Document, len(chunks))
			for i, chunk := range chunks {
				documents[i] = vectorstore.Document{
					Content: chunk,
					Metadata: map[string]interface{}{
						"source":   url,
						"title":    doc.Title,
						"category": string(key),
					},
					Embedding: vectors[i],
				}
			}
			if err := store.AddDocuments(ctx, documents); err != nil {
				logger.Warn("Failed to index evidence", "url", url, "error", err)
				continue
			}
			indexed++
		}
	}

	logger.Info("Indexed curated evidence", "table", table, "documents", indexed)
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
