package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BulkOperation names a batch action.
type BulkOperation string

const (
	BulkCreate  BulkOperation = "create"
	BulkUpdate  BulkOperation = "update"
	BulkDelete  BulkOperation = "delete"
	BulkReorder BulkOperation = "reorder"
)

var (
	ErrInvalidOperation = errors.New("invalid operation: must be create, update, delete or reorder")
	ErrInvalidBulkData  = errors.New("data must be an array")
)

// countKey is the response field carrying the number of successful items.
func (op BulkOperation) countKey() string {
	switch op {
	case BulkCreate:
		return "created"
	case BulkUpdate:
		return "updated"
	case BulkDelete:
		return "deleted"
	case BulkReorder:
		return "reordered"
	}
	return ""
}

// BulkRequest is the body of the bulk endpoints.
type BulkRequest struct {
	Operation BulkOperation   `json:"operation"`
	Data      json.RawMessage `json:"data"`
}

// ItemError reports why one batch item failed.
type ItemError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// BulkResult is the outcome of a batch; it marshals as {"<operation>d": n, "errors": [...]}.
type BulkResult struct {
	Operation BulkOperation
	Count     int
	Errors    []ItemError
}

func (r BulkResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		r.Operation.countKey(): r.Count,
		"errors":               r.Errors,
	})
}

// bulkCategoryItem is one element of a category batch.
type bulkCategoryItem struct {
	ID string `json:"id"`
	CategoryInput
}

// bulkSubCategoryItem is one element of a subcategory batch.
type bulkSubCategoryItem struct {
	ID string `json:"id"`
	SubCategoryInput
}

// bulkRef addresses an item by id, either as "uuid" or {"id": "uuid"}.
type bulkRef struct {
	ID string `json:"id"`
}

func (r *bulkRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.ID = s
		return nil
	}
	type plain bulkRef
	return json.Unmarshal(b, (*plain)(r))
}

// reorderItem moves an item to a sort position; a missing sortOrder uses the item's index.
type reorderItem struct {
	ID        string `json:"id"`
	SortOrder *int   `json:"sortOrder"`
}

// BulkCategories runs op over every category item in data, collecting per-item failures.
func (s *Service) BulkCategories(ctx context.Context, op BulkOperation, data json.RawMessage) (*BulkResult, error) {
	items, err := splitItems(op, data)
	if err != nil {
		return nil, err
	}
	var res BulkResult
	switch op {
	case BulkCreate:
		res = runBatch(ctx, s.logger, op, items, func(it bulkCategoryItem) (string, string) {
			return it.ID, trimmed(it.Name)
		}, func(_ int, it bulkCategoryItem) error {
			_, err := s.CreateCategory(ctx, it.CategoryInput)
			return err
		})
	case BulkUpdate:
		res = runBatch(ctx, s.logger, op, items, func(it bulkCategoryItem) (string, string) {
			return it.ID, trimmed(it.Name)
		}, func(_ int, it bulkCategoryItem) error {
			id, err := parseID(it.ID)
			if err != nil {
				return err
			}
			_, err = s.UpdateCategory(ctx, id, it.CategoryInput)
			return err
		})
	case BulkDelete:
		res = runBatch(ctx, s.logger, op, items, refLabel, func(_ int, it bulkRef) error {
			id, err := parseID(it.ID)
			if err != nil {
				return err
			}
			return s.DeleteCategory(ctx, id)
		})
	case BulkReorder:
		res = runBatch(ctx, s.logger, op, items, reorderLabel, func(i int, it reorderItem) error {
			id, err := parseID(it.ID)
			if err != nil {
				return err
			}
			return s.store.SetCategoryOrder(ctx, id, orderOf(it, i))
		})
	}
	return &res, nil
}

// BulkSubCategories runs op over every subcategory item in data, collecting per-item failures.
func (s *Service) BulkSubCategories(ctx context.Context, op BulkOperation, data json.RawMessage) (*BulkResult, error) {
	items, err := splitItems(op, data)
	if err != nil {
		return nil, err
	}
	var res BulkResult
	switch op {
	case BulkCreate:
		res = runBatch(ctx, s.logger, op, items, func(it bulkSubCategoryItem) (string, string) {
			return it.ID, trimmed(it.Name)
		}, func(_ int, it bulkSubCategoryItem) error {
			_, err := s.CreateSubCategory(ctx, it.SubCategoryInput)
			return err
		})
	case BulkUpdate:
		res = runBatch(ctx, s.logger, op, items, func(it bulkSubCategoryItem) (string, string) {
			return it.ID, trimmed(it.Name)
		}, func(_ int, it bulkSubCategoryItem) error {
			id, err := parseID(it.ID)
			if err != nil {
				return err
			}
			_, err = s.UpdateSubCategory(ctx, id, it.SubCategoryInput)
			return err
		})
	case BulkDelete:
		res = runBatch(ctx, s.logger, op, items, refLabel, func(_ int, it bulkRef) error {
			id, err := parseID(it.ID)
			if err != nil {
				return err
			}
			return s.DeleteSubCategory(ctx, id)
		})
	case BulkReorder:
		res = runBatch(ctx, s.logger, op, items, reorderLabel, func(i int, it reorderItem) error {
			id, err := parseID(it.ID)
			if err != nil {
				return err
			}
			return s.store.SetSubCategoryOrder(ctx, id, orderOf(it, i))
		})
	}
	return &res, nil
}

func splitItems(op BulkOperation, data json.RawMessage) ([]json.RawMessage, error) {
	if op.countKey() == "" {
		return nil, ErrInvalidOperation
	}
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil || items == nil {
		return nil, ErrInvalidBulkData
	}
	return items, nil
}

// runBatch decodes and applies each item independently. A failing item is recorded and the batch
// moves on; there is no transaction around the batch.
func runBatch[T any](
	ctx context.Context,
	logger *zap.Logger,
	op BulkOperation,
	items []json.RawMessage,
	label func(T) (id, name string),
	apply func(index int, item T) error,
) BulkResult {
	res := BulkResult{Operation: op, Errors: []ItemError{}}
	for i, raw := range items {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, ItemError{Index: i, Error: "request cancelled"})
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			res.Errors = append(res.Errors, ItemError{Index: i, Error: "invalid item"})
			continue
		}
		if err := apply(i, item); err != nil {
			id, name := label(item)
			res.Errors = append(res.Errors, ItemError{Index: i, ID: id, Name: name, Error: itemMessage(logger, op, i, err)})
			continue
		}
		res.Count++
	}
	return res
}

// itemMessage exposes business errors as-is and hides anything unexpected behind a generic message.
func itemMessage(logger *zap.Logger, op BulkOperation, index int, err error) string {
	for _, known := range []error{
		ErrCategoryNotFound, ErrSubCategoryNotFound, ErrParentNotFound, ErrNameRequired, ErrInvalidSlug,
		ErrInvalidID, ErrDuplicateName, ErrDuplicateSlug, ErrCategoryInUse, ErrSubCategoryInUse,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	logger.Error("bulk item failed", zap.String("operation", string(op)), zap.Int("index", index), zap.Error(err))
	return "internal error"
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

func refLabel(r bulkRef) (string, string) { return r.ID, "" }

func reorderLabel(r reorderItem) (string, string) { return r.ID, "" }

func orderOf(it reorderItem, index int) int {
	if it.SortOrder != nil {
		return *it.SortOrder
	}
	return index
}
