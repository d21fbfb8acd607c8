package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// ServiceName is the name the handler is registered under
const ServiceName = "memory"

const (
	defaultListLimit = 50
	maxContentBytes  = 64 << 10
)

// StoreArgs is the argument shape of store
type StoreArgs struct {
	Content  string         `json:"content" jsonschema:"description=Text to remember"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	TTL      int            `json:"ttl,omitempty" jsonschema:"description=Lifetime in seconds; 0 keeps forever"`
}

// IDArgs is the argument shape of retrieve and delete
type IDArgs struct {
	ID string `json:"id"`
}

// SearchArgs is the argument shape of search
type SearchArgs struct {
	Query string   `json:"query,omitempty" jsonschema:"description=Case-insensitive substring of the content"`
	Tags  []string `json:"tags,omitempty" jsonschema:"description=Every tag must be present"`
	Limit int      `json:"limit,omitempty"`
}

// ListArgs is the argument shape of list
type ListArgs struct {
	Limit int `json:"limit,omitempty"`
}

// Handler serves the memory operations
type Handler struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a handler over store
func New(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		logger: logger.With(zap.String("service", ServiceName)),
		now:    time.Now,
	}
}

// Capabilities lists the supported operations
func (h *Handler) Capabilities() []types.Capability {
	return []types.Capability{
		types.NewCapability[StoreArgs]("store", "Store a memory"),
		types.NewCapability[IDArgs]("retrieve", "Retrieve a memory by id"),
		types.NewCapability[SearchArgs]("search", "Search memories by content and tags"),
		types.NewCapability[IDArgs]("delete", "Delete a memory"),
		types.NewCapability[ListArgs]("list", "List recent memories"),
		types.Op("test", "Check the memory store connection"),
	}
}

// ValidateParams checks required arguments
func (h *Handler) ValidateParams(params types.Params) error {
	switch params.Operation {
	case "store":
		if err := params.Require("content"); err != nil {
			return err
		}
		if n := len(params.String("content")); n > maxContentBytes {
			return types.NewError(types.CodeInvalidParams, "content is too large",
				map[string]any{"size": n, "max": maxContentBytes})
		}
		if params.Int("ttl", 0) < 0 {
			return types.Errorf(types.CodeInvalidParams, "ttl must not be negative")
		}
	case "retrieve", "delete":
		return params.Require("id")
	}
	return nil
}

// Execute runs one operation
func (h *Handler) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	switch params.Operation {
	case "store":
		return h.put(ctx, params)
	case "retrieve":
		return h.retrieve(ctx, params)
	case "search":
		return h.search(ctx, params)
	case "delete":
		return h.delete(ctx, params)
	case "list":
		return h.list(ctx, params)
	case "test":
		return h.test(ctx)
	default:
		return nil, types.Errorf(types.CodeOperationNotSupported, "unknown operation: %s", params.Operation)
	}
}

// Health pings the store
func (h *Handler) Health(ctx context.Context) error {
	return h.store.Ping(ctx)
}

// Shutdown closes the store
func (h *Handler) Shutdown(context.Context) error {
	return h.store.Close()
}

func (h *Handler) put(ctx context.Context, params types.Params) (*types.Result, error) {
	m := Memory{
		ID:        uuid.NewString(),
		Content:   params.String("content"),
		Tags:      stringSlice(params.Slice("tags")),
		Metadata:  params.Map("metadata"),
		CreatedAt: h.now().UTC(),
	}
	ttl := time.Duration(params.Int("ttl", 0)) * time.Second
	if ttl > 0 {
		exp := m.CreatedAt.Add(ttl)
		m.ExpiresAt = &exp
	}

	if err := h.store.Put(ctx, m, ttl); err != nil {
		return nil, err
	}
	h.logger.Debug("Memory stored", zap.String("id", m.ID), zap.Int("tags", len(m.Tags)))
	return types.Success(m), nil
}

func (h *Handler) retrieve(ctx context.Context, params types.Params) (*types.Result, error) {
	id := params.String("id")
	m, err := h.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return types.Success(m), nil
}

func (h *Handler) search(ctx context.Context, params types.Params) (*types.Result, error) {
	all, err := h.store.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(params.String("query"))
	tags := stringSlice(params.Slice("tags"))
	limit := params.Int("limit", defaultListLimit)

	matches := []Memory{}
	for _, m := range all {
		if query != "" && !strings.Contains(strings.ToLower(m.Content), query) {
			continue
		}
		if !hasAllTags(m.Tags, tags) {
			continue
		}
		matches = append(matches, m)
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return types.Success(map[string]any{"memories": matches, "count": len(matches)}), nil
}

func (h *Handler) delete(ctx context.Context, params types.Params) (*types.Result, error) {
	id := params.String("id")
	existed, err := h.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, notFound(id)
	}
	return types.Success(map[string]any{"id": id, "deleted": true}), nil
}

func (h *Handler) list(ctx context.Context, params types.Params) (*types.Result, error) {
	memories, err := h.store.Recent(ctx, params.Int("limit", defaultListLimit))
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]any{"memories": memories, "count": len(memories)}), nil
}

func (h *Handler) test(ctx context.Context) (*types.Result, error) {
	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("memory store unreachable: %w", err)
	}
	return types.Success(map[string]any{
		"connected": true,
		"latencyMs": time.Since(start).Milliseconds(),
	}), nil
}

func notFound(id string) *types.Error {
	return types.NewError(types.CodeInvalidParams,
		fmt.Sprintf("memory %q not found", id),
		map[string]any{"id": id})
}

func hasAllTags(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}

func stringSlice(in []any) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
