// Package vectortest provides in-memory stand-ins for Qdrant and the embedder,
// for tests of code built on the vector package.
package vectortest

import (
	"context"
	"errors"
	"sort"
	"sync"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrew/vecdash/pkg/session"
)

// Server is an in-memory Qdrant that hands out sessions through Dial
type Server struct {
	mu          sync.Mutex
	collections map[string]*collection

	// Unreachable makes Dial fail like a refused connection
	Unreachable bool
	// UpsertErr, when set, decides whether an upsert batch is rejected
	UpsertErr func(collection string, points []*qdrantclient.PointStruct) error
	// SearchMatch, when set, filters which points a search may return
	SearchMatch func(point *qdrantclient.PointStruct) bool

	Dials   int
	Closes  int
	Upserts int
}

type collection struct {
	size   uint64
	points []*qdrantclient.PointStruct
}

// NewServer returns an empty server
func NewServer() *Server {
	return &Server{collections: make(map[string]*collection)}
}

// Dial implements session.Dialer
func (s *Server) Dial(ctx context.Context, addr string) (session.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Unreachable {
		return nil, errors.New("dial tcp " + addr + ": connect: connection refused")
	}
	s.Dials++
	return &conn{srv: s, alive: true}, nil
}

// AddCollection creates a collection directly, bypassing the client
func (s *Server) AddCollection(name string, size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = &collection{size: size}
}

// HasCollection reports whether name exists
func (s *Server) HasCollection(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	return ok
}

// Collections returns the number of collections
func (s *Server) Collections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections)
}

// VectorSize returns the vector size name was created with
func (s *Server) VectorSize(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c.size
	}
	return 0
}

// Count returns the number of points stored in name
func (s *Server) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// OpenSessions returns dialed sessions not yet closed
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Dials - s.Closes
}

func notFound(name string) error {
	return status.Errorf(codes.NotFound, "Not found: Collection `%s` doesn't exist!", name)
}

type conn struct {
	srv   *Server
	alive bool
}

func (c *conn) Collections() qdrantclient.CollectionsClient { return &collectionsClient{srv: c.srv} }
func (c *conn) Points() qdrantclient.PointsClient           { return &pointsClient{srv: c.srv} }
func (c *conn) Alive() bool                                 { return c.alive }

func (c *conn) Close() error {
	if !c.alive {
		return nil
	}
	c.alive = false
	c.srv.mu.Lock()
	c.srv.Closes++
	c.srv.mu.Unlock()
	return nil
}

// collectionsClient implements the collection RPCs used by the vector package;
// any other method panics through the nil embedded interface.
type collectionsClient struct {
	qdrantclient.CollectionsClient
	srv *Server
}

func (c *collectionsClient) List(ctx context.Context, in *qdrantclient.ListCollectionsRequest, opts ...grpc.CallOption) (*qdrantclient.ListCollectionsResponse, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	names := make([]string, 0, len(c.srv.collections))
	for name := range c.srv.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := &qdrantclient.ListCollectionsResponse{}
	for _, name := range names {
		resp.Collections = append(resp.Collections, &qdrantclient.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (c *collectionsClient) Create(ctx context.Context, in *qdrantclient.CreateCollection, opts ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	name := in.GetCollectionName()
	if _, ok := c.srv.collections[name]; ok {
		return nil, status.Errorf(codes.AlreadyExists, "Collection `%s` already exists!", name)
	}
	size := in.GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return nil, status.Error(codes.InvalidArgument, "vector size must be positive")
	}
	c.srv.collections[name] = &collection{size: size}
	return &qdrantclient.CollectionOperationResponse{Result: true}, nil
}

func (c *collectionsClient) Delete(ctx context.Context, in *qdrantclient.DeleteCollection, opts ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	name := in.GetCollectionName()
	if _, ok := c.srv.collections[name]; !ok {
		return &qdrantclient.CollectionOperationResponse{Result: false}, nil
	}
	delete(c.srv.collections, name)
	return &qdrantclient.CollectionOperationResponse{Result: true}, nil
}

// pointsClient implements the point RPCs used by the vector package
type pointsClient struct {
	qdrantclient.PointsClient
	srv *Server
}

func (p *pointsClient) Upsert(ctx context.Context, in *qdrantclient.UpsertPoints, opts ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error) {
	p.srv.mu.Lock()
	defer p.srv.mu.Unlock()

	p.srv.Upserts++
	name := in.GetCollectionName()
	col, ok := p.srv.collections[name]
	if !ok {
		return nil, notFound(name)
	}
	if p.srv.UpsertErr != nil {
		if err := p.srv.UpsertErr(name, in.GetPoints()); err != nil {
			return nil, err
		}
	}
	for _, point := range in.GetPoints() {
		if got := uint64(len(point.GetVectors().GetVector().GetData())); got != col.size {
			return nil, status.Errorf(codes.InvalidArgument, "Wrong input: Vector dimension error: expected dim: %d, got %d", col.size, got)
		}
	}
	col.points = append(col.points, in.GetPoints()...)
	return &qdrantclient.PointsOperationResponse{
		Result: &qdrantclient.UpdateResult{Status: qdrantclient.UpdateStatus_Completed},
	}, nil
}

func (p *pointsClient) Search(ctx context.Context, in *qdrantclient.SearchPoints, opts ...grpc.CallOption) (*qdrantclient.SearchResponse, error) {
	p.srv.mu.Lock()
	defer p.srv.mu.Unlock()

	name := in.GetCollectionName()
	col, ok := p.srv.collections[name]
	if !ok {
		return nil, notFound(name)
	}

	resp := &qdrantclient.SearchResponse{}
	for _, point := range col.points {
		if uint64(len(resp.Result)) >= in.GetLimit() {
			break
		}
		if p.srv.SearchMatch != nil && !p.srv.SearchMatch(point) {
			continue
		}
		resp.Result = append(resp.Result, &qdrantclient.ScoredPoint{
			Id:      point.GetId(),
			Payload: point.GetPayload(),
			Score:   1.0 - float32(len(resp.Result))*0.01,
		})
	}
	return resp, nil
}

func (p *pointsClient) Scroll(ctx context.Context, in *qdrantclient.ScrollPoints, opts ...grpc.CallOption) (*qdrantclient.ScrollResponse, error) {
	p.srv.mu.Lock()
	defer p.srv.mu.Unlock()

	name := in.GetCollectionName()
	col, ok := p.srv.collections[name]
	if !ok {
		return nil, notFound(name)
	}

	start := 0
	if off := in.GetOffset(); off != nil {
		for i, point := range col.points {
			if point.GetId().GetUuid() == off.GetUuid() {
				start = i
				break
			}
		}
	}
	limit := int(in.GetLimit())
	if limit <= 0 {
		limit = 10
	}
	end := min(start+limit, len(col.points))

	resp := &qdrantclient.ScrollResponse{}
	for _, point := range col.points[start:end] {
		resp.Result = append(resp.Result, &qdrantclient.RetrievedPoint{
			Id:      point.GetId(),
			Payload: point.GetPayload(),
		})
	}
	if end < len(col.points) {
		resp.NextPageOffset = col.points[end].GetId()
	}
	return resp, nil
}
