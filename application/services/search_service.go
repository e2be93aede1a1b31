package services

import (
	"context"
	"strings"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/domain/inventory"
	apperrors "github.com/Jayli58/do-we-have-it-backend/pkg/errors"

	"go.uber.org/zap"
)

// SearchResult is the response of an item search.
type SearchResult struct {
	Items []*inventory.Item `json:"items"`
}

// SearchService runs item searches.
type SearchService struct {
	repo   ports.InventoryRepository
	logger *zap.Logger
}

func NewSearchService(repo ports.InventoryRepository, logger *zap.Logger) *SearchService {
	return &SearchService{repo: repo, logger: logger}
}

// SearchItems returns items matching every word of query by prefix, sorted
// by name. A blank query matches nothing.
func (s *SearchService) SearchItems(ctx context.Context, userID, query string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return &SearchResult{Items: []*inventory.Item{}}, nil
	}

	items, err := s.repo.SearchItems(ctx, userID, query)
	if err != nil {
		return nil, apperrors.FromStore("search items", err)
	}
	if items == nil {
		items = []*inventory.Item{}
	}
	sortItems(items)

	s.logger.Debug("Items searched",
		zap.String("userId", userID),
		zap.Int("results", len(items)),
	)
	return &SearchResult{Items: items}, nil
}
