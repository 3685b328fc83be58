package sqrt

import (
	"context"
	"fmt"

	"sqrt-go/internal/model"
)

// GetHistory returns the most recent job runs, ordered newest first.
func (s *SqrtService) GetHistory(ctx context.Context, limit int) ([]*model.SyncOperation, error) {
	ops, err := s.database.ListSyncOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	return ops, nil
}
