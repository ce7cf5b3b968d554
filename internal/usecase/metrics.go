package usecase

import "context"

// MetricsSummary represents aggregated validation insights.
type MetricsSummary struct {
	TotalRequests        int64   `json:"total_requests"`
	ApprovedRequests     int64   `json:"approved_requests"`
	ApprovalRate         float64 `json:"approval_rate"`
	AverageByteCount     float64 `json:"average_byte_count"`
	AverageWhiteFraction float64 `json:"average_white_fraction"`
}

// GetMetricsSummary aggregates validation metrics from persisted records.
func (uc *ValidationUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRequests:        aggregation.TotalCount,
		ApprovedRequests:     aggregation.ApprovedCount,
		AverageByteCount:     aggregation.AverageByteCount,
		AverageWhiteFraction: aggregation.AverageWhiteFraction,
	}
	if aggregation.TotalCount > 0 {
		summary.ApprovalRate = float64(aggregation.ApprovedCount) / float64(aggregation.TotalCount)
	}
	return summary, nil
}
