package dynamodb

import (
	"context"
	"fmt"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReconcileSearchIndex rebuilds the expected search rows from the user's
// current items, deletes rows nothing expects (orphans left by an
// interrupted delete or a moved item) and writes the rows that are missing.
func (r *InventoryRepository) ReconcileSearchIndex(ctx context.Context, userID string) (report ports.ReconcileReport, err error) {
	ctx, span := r.startSpan(ctx, "ReconcileSearchIndex", userID)
	defer func() { endSpan(span, err) }()

	expected := make(map[string]map[string]types.AttributeValue)
	err = r.queryPrefix(ctx, userID, itemPrefix, nil, func(av map[string]types.AttributeValue) (bool, error) {
		it, err := itemFromRecord(av)
		if err != nil {
			return false, err
		}
		report.ItemsScanned++
		rows, err := r.builder.SearchRows(userID, it)
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			expected[stringValue(row[AttrSK])] = row
		}
		return true, nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to load items: %w", err)
	}

	var writes []types.WriteRequest
	err = r.queryPrefix(ctx, userID, searchPrefix, nil, func(av map[string]types.AttributeValue) (bool, error) {
		report.RowsScanned++
		sk := stringValue(av[AttrSK])
		if _, ok := expected[sk]; ok {
			delete(expected, sk)
			return true, nil
		}
		writes = append(writes, deleteRequest(primaryKey(av)))
		report.RowsDeleted++
		return true, nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to load search rows: %w", err)
	}

	for _, row := range expected {
		writes = append(writes, putRequest(row))
		report.RowsWritten++
	}

	if len(writes) > 0 {
		if err = r.batch.Write(ctx, writes); err != nil {
			return report, fmt.Errorf("failed to apply index repairs: %w", err)
		}
	}

	span.SetAttributes(
		attribute.Int("reconcile.deleted", report.RowsDeleted),
		attribute.Int("reconcile.written", report.RowsWritten),
	)
	r.logger.Info("Search index reconciled",
		zap.String("userId", userID),
		zap.Int("items", report.ItemsScanned),
		zap.Int("rows", report.RowsScanned),
		zap.Int("deleted", report.RowsDeleted),
		zap.Int("written", report.RowsWritten),
	)
	return report, nil
}
