package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// SaveResolvedPolicy mirrors one resolved policy into the artifact table.
func (db *DB) SaveResolvedPolicy(ctx context.Context, evaluationID uuid.UUID, rp *types.ResolvedPolicy) error {
	return db.SaveArtifact(ctx, evaluationID, rp.ID, rp)
}

// GetResolvedPolicy loads a resolved policy artifact. It returns nil when the
// evaluation has no artifact for the policy.
func (db *DB) GetResolvedPolicy(ctx context.Context, evaluationID uuid.UUID, policyID string) (*types.ResolvedPolicy, error) {
	content, err := db.GetArtifact(ctx, evaluationID, policyID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var rp types.ResolvedPolicy
	if err := json.Unmarshal(content, &rp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resolved policy: %w", err)
	}
	return &rp, nil
}
