// Package vector manages collections and their records in the vector database:
// listing, idempotent creation, deletion, full reads, batched inserts and
// nearest-neighbour text search.
//
// Every operation acquires a session at its start and releases it before
// returning, whether it succeeded or not.
package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"

	"github.com/andrew/vecdash/pkg/embedding"
	"github.com/andrew/vecdash/pkg/logging"
	"github.com/andrew/vecdash/pkg/models"
	"github.com/andrew/vecdash/pkg/session"
)

// Defaults for the ingest and query paths.
const (
	DefaultBatchSize      = 200
	DefaultMaxErrors      = 10
	DefaultSearchLimit    = 10
	DefaultScrollPageSize = 100
)

// Service defines the collection and record operations
type Service interface {
	// ListCollections returns collection names in ascending order
	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates name unless it already exists; created is false if it did
	CreateCollection(ctx context.Context, name string) (created bool, err error)

	// DeleteCollection removes name; deleting a missing collection succeeds with existed false
	DeleteCollection(ctx context.Context, name string) (existed bool, err error)

	// GetAllRecords reads every record of a collection into memory
	GetAllRecords(ctx context.Context, name string) ([]models.Record, error)

	// Scan streams every object of a collection to fn, stopping at fn's first error
	Scan(ctx context.Context, name string, fn func(models.Object) error) error

	// AddRecords inserts records in batches, stopping early once too many have failed
	AddRecords(ctx context.Context, name string, records []models.Record) (models.BatchResult, error)

	// Search finds the records closest to query, best match first
	Search(ctx context.Context, name, query string, limit int) models.SearchResult

	// LoadFromFile inserts the records held in a JSON file
	LoadFromFile(ctx context.Context, name, path string) (models.BatchResult, error)
}

// Config contains the tunables of a Store
type Config struct {
	BatchSize      int    // records per upsert
	MaxErrors      int    // inserting stops once more than this many records failed
	Dimensions     uint64 // vector size for new collections; 0 probes the embedder
	ScrollPageSize uint32 // points fetched per page when reading a whole collection
}

// DefaultConfig returns the Store defaults
func DefaultConfig() Config {
	return Config{
		BatchSize:      DefaultBatchSize,
		MaxErrors:      DefaultMaxErrors,
		ScrollPageSize: DefaultScrollPageSize,
	}
}

// Ensure Store implements the interface.
var _ Service = (*Store)(nil)

// Store implements Service over a Qdrant session and an embedder
type Store struct {
	sessions *session.Manager
	embedder embedding.Embedder
	config   Config
	logger   *slog.Logger
	newID    func() string
}

// NewStore creates a Store. Zero fields in cfg take their defaults.
func NewStore(sessions *session.Manager, embedder embedding.Embedder, cfg Config, logger *slog.Logger) *Store {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	if cfg.ScrollPageSize == 0 {
		cfg.ScrollPageSize = DefaultScrollPageSize
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Store{
		sessions: sessions,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// Sessions returns the session manager the store runs its operations on
func (s *Store) Sessions() *session.Manager {
	return s.sessions
}

// ListCollections returns the collection names in ascending order
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.logger.Info("listing collections")

	var names []string
	err := s.sessions.Do(ctx, func(conn session.Conn) error {
		var err error
		names, err = listCollections(ctx, conn)
		return err
	})
	if err != nil {
		s.logger.Error("error listing collections", "error", err)
		return nil, classify(err)
	}

	s.logger.Info("listed collections", "count", len(names))
	return names, nil
}

// CreateCollection creates name with the configured vectorizer unless it already exists
func (s *Store) CreateCollection(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	s.logger.Info("creating collection", "collection", name, "model", s.embedder.Model())

	created := false
	err := s.sessions.Do(ctx, func(conn session.Conn) error {
		names, err := listCollections(ctx, conn)
		if err != nil {
			return err
		}
		if slices.Contains(names, name) {
			s.logger.Info("collection already exists, skipping creation", "collection", name)
			return nil
		}

		size, err := s.vectorSize(ctx)
		if err != nil {
			return err
		}

		resp, err := conn.Collections().Create(ctx, &qdrantclient.CreateCollection{
			CollectionName: name,
			VectorsConfig: &qdrantclient.VectorsConfig{
				Config: &qdrantclient.VectorsConfig_Params{
					Params: &qdrantclient.VectorParams{
						Size:     size,
						Distance: qdrantclient.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return err
		}
		if !resp.GetResult() {
			return errors.New("server did not acknowledge creation")
		}
		created = true
		return nil
	})
	if err != nil {
		s.logger.Error("error creating collection", "collection", name, "error", err)
		return false, fmt.Errorf("%w: %s: %w", ErrCollectionCreate, name, classify(err))
	}

	if created {
		s.logger.Info("collection created", "collection", name)
	}
	return created, nil
}

// vectorSize returns the configured dimensions, or asks the embedder when none are set
func (s *Store) vectorSize(ctx context.Context) (uint64, error) {
	if s.config.Dimensions > 0 {
		return s.config.Dimensions, nil
	}
	probe, err := s.embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("failed to probe embedding size: %w", err)
	}
	return uint64(len(probe)), nil
}

// DeleteCollection removes name. A missing collection is not an error; existed reports which case applied.
func (s *Store) DeleteCollection(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	s.logger.Info("deleting collection", "collection", name)

	existed := false
	err := s.sessions.Do(ctx, func(conn session.Conn) error {
		resp, err := conn.Collections().Delete(ctx, &qdrantclient.DeleteCollection{CollectionName: name})
		if err != nil {
			if errors.Is(classify(err), ErrCollectionNotFound) {
				return nil
			}
			return err
		}
		existed = resp.GetResult()
		return nil
	})
	if err != nil {
		s.logger.Error("error deleting collection", "collection", name, "error", err)
		return false, fmt.Errorf("%w: %s: %w", ErrCollectionDelete, name, classify(err))
	}

	if existed {
		s.logger.Info("collection deleted", "collection", name)
	} else {
		s.logger.Info("collection did not exist, nothing deleted", "collection", name)
	}
	return existed, nil
}

// GetAllRecords reads the whole collection in one forward pass.
// There is no paging at this level, so it only suits small collections.
func (s *Store) GetAllRecords(ctx context.Context, name string) ([]models.Record, error) {
	s.logger.Info("getting all records", "collection", name)

	var records []models.Record
	err := s.Scan(ctx, name, func(obj models.Object) error {
		records = append(records, obj.Properties)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("retrieved records", "collection", name, "count", len(records))
	return records, nil
}

// Scan passes every object in the collection to fn, in the order the database returns them
func (s *Store) Scan(ctx context.Context, name string, fn func(models.Object) error) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}

	err := s.sessions.Do(ctx, func(conn session.Conn) error {
		return s.scroll(ctx, conn, name, fn)
	})
	if err != nil {
		s.logger.Error("error reading collection", "collection", name, "error", err)
		return classify(err)
	}
	return nil
}

func (s *Store) scroll(ctx context.Context, conn session.Conn, name string, fn func(models.Object) error) error {
	limit := s.config.ScrollPageSize
	var offset *qdrantclient.PointId

	for {
		resp, err := conn.Points().Scroll(ctx, &qdrantclient.ScrollPoints{
			CollectionName: name,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    withPayload(),
		})
		if err != nil {
			return fmt.Errorf("failed to scroll %s: %w", name, err)
		}

		for _, point := range resp.GetResult() {
			obj := models.Object{
				ID:         pointIDString(point.GetId()),
				Properties: payloadToRecord(point.GetPayload()),
			}
			if err := fn(obj); err != nil {
				return err
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return nil
		}
	}
}

// AddRecords inserts records into the collection in batches of Config.BatchSize.
// Once more than Config.MaxErrors records have failed, the remaining input is
// not attempted; batches already written stay written. A non-nil error with a
// populated result is a *PartialFailureError.
func (s *Store) AddRecords(ctx context.Context, name string, records []models.Record) (models.BatchResult, error) {
	result := models.BatchResult{Collection: name}
	if name == "" {
		return result, fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if len(records) == 0 {
		s.logger.Info("no records to add", "collection", name)
		return result, nil
	}

	s.logger.Info("adding records", "collection", name, "count", len(records))

	err := s.sessions.Do(ctx, func(conn session.Conn) error {
		names, err := listCollections(ctx, conn)
		if err != nil {
			return err
		}
		if !slices.Contains(names, name) {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}

		s.insertBatches(ctx, conn, name, records, &result)
		return nil
	})
	if err != nil {
		s.logger.Error("error adding records", "collection", name, "error", err)
		return result, classify(err)
	}

	if !result.OK() {
		s.logger.Error("failed imports", "collection", name, "failed", result.Failed, "aborted", result.Aborted)
		s.logger.Error("first failed object", "collection", name, "detail", result.FirstFailure.String())
		return result, &PartialFailureError{
			Collection: name,
			Failed:     result.Failed,
			Aborted:    result.Aborted,
			First:      result.FirstFailure,
		}
	}

	s.logger.Info("added all records", "collection", name, "count", result.Inserted)
	return result, nil
}

func (s *Store) insertBatches(ctx context.Context, conn session.Conn, name string, records []models.Record, result *models.BatchResult) {
	points := make([]*qdrantclient.PointStruct, 0, s.config.BatchSize)
	indexes := make([]int, 0, s.config.BatchSize)

	flush := func() {
		if len(points) == 0 {
			return
		}
		s.logger.Debug("upserting batch", "collection", name, "points", len(points))
		wait := true
		_, err := conn.Points().Upsert(ctx, &qdrantclient.UpsertPoints{
			CollectionName: name,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			s.logger.Warn("batch rejected", "collection", name, "points", len(points), "error", err)
			for _, idx := range indexes {
				result.RecordFailure(idx, err.Error())
			}
		} else {
			result.Inserted += len(points)
		}
		points = points[:0]
		indexes = indexes[:0]
	}

	for i, rec := range records {
		if result.Failed > s.config.MaxErrors {
			s.logger.Warn("batch import stopped due to excessive errors",
				"collection", name, "failed", result.Failed, "remaining", len(records)-i)
			result.Aborted = true
			break
		}
		result.Attempted++

		point, err := s.toPoint(ctx, rec)
		if err != nil {
			result.RecordFailure(i, err.Error())
			continue
		}
		points = append(points, point)
		indexes = append(indexes, i)

		if len(points) >= s.config.BatchSize {
			flush()
		}
	}
	flush()
}

// toPoint vectorizes a record and wraps it as a Qdrant point with a fresh id
func (s *Store) toPoint(ctx context.Context, rec models.Record) (*qdrantclient.PointStruct, error) {
	payload, err := recordToPayload(rec)
	if err != nil {
		return nil, err
	}

	text := recordText(rec)
	if text == "" {
		return nil, errors.New("no text properties to vectorize")
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to vectorize: %w", err)
	}
	if s.config.Dimensions > 0 && uint64(len(vec)) != s.config.Dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, collection expects %d", len(vec), s.config.Dimensions)
	}

	return &qdrantclient.PointStruct{
		Id: &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: s.newID()},
		},
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: vec},
			},
		},
		Payload: payload,
	}, nil
}

// Search returns up to limit records nearest to query. A limit of 0 or less means DefaultSearchLimit.
func (s *Store) Search(ctx context.Context, name, query string, limit int) models.SearchResult {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if query == "" {
		return models.Failed(fmt.Errorf("%w: search query is required", ErrInvalidInput))
	}
	s.logger.Info("performing search", "collection", name, "query", query, "limit", limit)

	var records []models.Record
	err := s.sessions.Do(ctx, func(conn session.Conn) error {
		vec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to vectorize query: %w", err)
		}

		resp, err := conn.Points().Search(ctx, &qdrantclient.SearchPoints{
			CollectionName: name,
			Vector:         vec,
			Limit:          uint64(limit),
			WithPayload:    withPayload(),
		})
		if err != nil {
			return fmt.Errorf("failed to search in %s: %w", name, err)
		}

		for _, point := range resp.GetResult() {
			records = append(records, payloadToRecord(point.GetPayload()))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("error performing semantic search", "collection", name, "query", query, "error", err)
		return models.Failed(classify(err))
	}

	s.logger.Info("search finished", "collection", name, "query", query, "results", len(records))
	if len(records) == 0 {
		return models.Empty()
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return models.Found(records)
}

// PlaceholderRecords are inserted by LoadFromFile when the file does not exist
func PlaceholderRecords() []models.Record {
	return []models.Record{
		{"story1": "story1_code"},
		{"story2": "story2_code"},
	}
}

// LoadFromFile reads a JSON object or array from path and inserts it.
// A missing file falls back to PlaceholderRecords.
func (s *Store) LoadFromFile(ctx context.Context, name, path string) (models.BatchResult, error) {
	var records []models.Record

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Warn("data file not found, using placeholder data", "file", path)
		records = PlaceholderRecords()
	case err != nil:
		s.logger.Error("error reading data file", "file", path, "error", err)
		return models.BatchResult{Collection: name}, fmt.Errorf("%w: %s: %w", ErrInvalidInput, path, err)
	default:
		records, err = ParseRecords(data)
		if err != nil {
			s.logger.Error("error decoding JSON", "file", path, "error", err)
			return models.BatchResult{Collection: name}, fmt.Errorf("%s: %w", path, err)
		}
		s.logger.Info("loaded objects from file", "file", path, "count", len(records))
	}

	return s.AddRecords(ctx, name, records)
}

func listCollections(ctx context.Context, conn session.Conn) ([]string, error) {
	resp, err := conn.Collections().List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	names := make([]string, 0, len(resp.GetCollections()))
	for _, col := range resp.GetCollections() {
		names = append(names, col.GetName())
	}
	sort.Strings(names)
	return names, nil
}

func withPayload() *qdrantclient.WithPayloadSelector {
	return &qdrantclient.WithPayloadSelector{
		SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
	}
}
