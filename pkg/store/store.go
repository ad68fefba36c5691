// Package store persists workflow runs, deployments, comparisons and smoke
// test results.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/testnetoor/pkg/config"
)

var (
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrResultsRecorded is returned when results are recorded for a
	// comparison that already has them.
	ErrResultsRecorded = errors.New("comparison results already recorded")
)

// RunFilter narrows ListRuns.
type RunFilter struct {
	NetworkName  string
	WorkflowName string
	Limit        int
}

// DeploymentFilter narrows ListDeployments.
type DeploymentFilter struct {
	Name  string
	Limit int
}

// Store provides persistence for recorded testnet state.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Runs and deployments.
	RecordRun(ctx context.Context, run *WorkflowRun, deployment *Deployment) error
	GetRun(ctx context.Context, runID int64) (*WorkflowRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]WorkflowRun, error)
	GetDeployment(ctx context.Context, id uint) (*Deployment, error)
	ListDeployments(ctx context.Context, filter DeploymentFilter) ([]Deployment, error)

	// Comparisons.
	CreateComparison(ctx context.Context, c *Comparison) error
	GetComparison(ctx context.Context, id string) (*Comparison, error)
	ListComparisons(ctx context.Context) ([]Comparison, error)
	SetComparisonThreadLink(ctx context.Context, id, link string) error
	RecordComparisonResults(ctx context.Context, id string, results ComparisonResults) error

	// Smoke tests.
	CreateSmokeTestResult(ctx context.Context, result *SmokeTestResult) error
	LatestSmokeTestResults(ctx context.Context, deploymentIDs []uint) (map[uint]*SmokeTestResult, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var (
		dialector gorm.Dialector
		err       error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		if s.cfg.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(s.cfg.SQLite.Path), 0o755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
		}

		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	s.db, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if s.cfg.Driver == "sqlite" {
		// Every connection to :memory: is a separate database, and SQLite
		// has a single writer anyway.
		sqlDB, err := s.db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&WorkflowRun{},
		&Deployment{},
		&Comparison{},
		&ComparisonTest{},
		&SmokeTestResult{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Debug("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// --- Runs and deployments ---

// RecordRun inserts a run and, when given, its deployment in one
// transaction.
func (s *store) RecordRun(
	ctx context.Context, run *WorkflowRun, deployment *Deployment,
) error {
	if deployment != nil {
		if err := deployment.Validate(); err != nil {
			return fmt.Errorf("validating deployment: %w", err)
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("creating workflow run: %w", err)
		}

		if deployment == nil {
			return nil
		}

		deployment.WorkflowRunID = run.ID

		if err := tx.Omit("WorkflowRun").Create(deployment).Error; err != nil {
			return fmt.Errorf("creating deployment: %w", err)
		}

		return nil
	})
}

func (s *store) GetRun(ctx context.Context, runID int64) (*WorkflowRun, error) {
	var run WorkflowRun
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error; err != nil {
		return nil, fmt.Errorf("getting run %d: %w", runID, err)
	}

	return &run, nil
}

func (s *store) ListRuns(
	ctx context.Context, filter RunFilter,
) ([]WorkflowRun, error) {
	q := s.db.WithContext(ctx).Order("triggered_at DESC").Order("id DESC")

	if filter.NetworkName != "" {
		q = q.Where("network_name = ?", filter.NetworkName)
	}

	if filter.WorkflowName != "" {
		q = q.Where("workflow_name = ?", filter.WorkflowName)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var runs []WorkflowRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

func (s *store) GetDeployment(ctx context.Context, id uint) (*Deployment, error) {
	var d Deployment
	if err := s.db.WithContext(ctx).
		Preload("WorkflowRun").
		First(&d, id).Error; err != nil {
		return nil, fmt.Errorf("getting deployment %d: %w", id, err)
	}

	return &d, nil
}

func (s *store) ListDeployments(
	ctx context.Context, filter DeploymentFilter,
) ([]Deployment, error) {
	q := s.db.WithContext(ctx).Preload("WorkflowRun").Order("id DESC")

	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var deployments []Deployment
	if err := q.Find(&deployments).Error; err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	return deployments, nil
}

// --- Comparisons ---

// CreateComparison checks every referenced deployment exists, then inserts
// the comparison and its tests.
func (s *store) CreateComparison(ctx context.Context, c *Comparison) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range c.DeploymentIDs() {
			var count int64
			if err := tx.Model(&Deployment{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("checking deployment %d: %w", id, err)
			}

			if count == 0 {
				return fmt.Errorf("deployment %d: %w", id, ErrNotFound)
			}
		}

		for i := range c.Tests {
			c.Tests[i].Position = i
		}

		if err := tx.Omit("ReferenceDeployment").Create(c).Error; err != nil {
			return fmt.Errorf("creating comparison: %w", err)
		}

		return nil
	})
}

func (s *store) GetComparison(ctx context.Context, id string) (*Comparison, error) {
	var c Comparison
	if err := s.db.WithContext(ctx).
		Preload("ReferenceDeployment").
		Preload("Tests", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Tests.Deployment").
		First(&c, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("getting comparison %s: %w", id, err)
	}

	return &c, nil
}

func (s *store) ListComparisons(ctx context.Context) ([]Comparison, error) {
	var comparisons []Comparison
	if err := s.db.WithContext(ctx).
		Preload("Tests", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC").
		Find(&comparisons).Error; err != nil {
		return nil, fmt.Errorf("listing comparisons: %w", err)
	}

	return comparisons, nil
}

func (s *store) SetComparisonThreadLink(ctx context.Context, id, link string) error {
	result := s.db.WithContext(ctx).
		Model(&Comparison{}).
		Where("id = ?", id).
		Update("thread_link", link)
	if result.Error != nil {
		return fmt.Errorf("setting thread link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}

	return nil
}

// RecordComparisonResults moves a comparison into its terminal state.
func (s *store) RecordComparisonResults(
	ctx context.Context, id string, results ComparisonResults,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Comparison
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return fmt.Errorf("getting comparison %s: %w", id, err)
		}

		if c.ResultsRecorded() {
			return fmt.Errorf("comparison %s: %w", id, ErrResultsRecorded)
		}

		started := results.StartedAt.UTC()
		updates := map[string]any{
			"passed":             results.Passed,
			"results_started_at": started,
		}

		if results.EndedAt != nil {
			updates["results_ended_at"] = results.EndedAt.UTC()
		}

		if results.Report != "" {
			updates["report"] = results.Report
		}

		if err := tx.Model(&c).Updates(updates).Error; err != nil {
			return fmt.Errorf("recording comparison results: %w", err)
		}

		return nil
	})
}

// --- Smoke tests ---

func (s *store) CreateSmokeTestResult(ctx context.Context, result *SmokeTestResult) error {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&Deployment{}).
		Where("id = ?", result.DeploymentID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("checking deployment %d: %w", result.DeploymentID, err)
	}

	if count == 0 {
		return fmt.Errorf("deployment %d: %w", result.DeploymentID, ErrNotFound)
	}

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Omit("Deployment").Create(result).Error; err != nil {
		return fmt.Errorf("creating smoke test result: %w", err)
	}

	return nil
}

// LatestSmokeTestResults returns the newest result per deployment. Missing
// deployments are absent from the map.
func (s *store) LatestSmokeTestResults(
	ctx context.Context, deploymentIDs []uint,
) (map[uint]*SmokeTestResult, error) {
	latest := make(map[uint]*SmokeTestResult, len(deploymentIDs))
	if len(deploymentIDs) == 0 {
		return latest, nil
	}

	var results []SmokeTestResult
	if err := s.db.WithContext(ctx).
		Where("deployment_id IN ?", deploymentIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("listing smoke test results: %w", err)
	}

	for i := range results {
		latest[results[i].DeploymentID] = &results[i]
	}

	return latest, nil
}
