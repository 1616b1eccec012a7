package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/repository"
)

type AnalyticsService struct {
	repo *repository.UsageLogRepository
}

func NewAnalyticsService(repo *repository.UsageLogRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// Holds ledger summary data for the admin dashboard
type AnalyticsSummary struct {
	TotalRequests   int64                    `json:"total_requests"`
	AvgResponseTime float64                  `json:"avg_response_time_ms"`
	P50ResponseTime int                      `json:"p50_response_time_ms"`
	P95ResponseTime int                      `json:"p95_response_time_ms"`
	P99ResponseTime int                      `json:"p99_response_time_ms"`
	ErrorRate       float64                  `json:"error_rate"`
	SuccessRate     float64                  `json:"success_rate"`
	ClientErrorRate float64                  `json:"client_error_rate"`
	ServerErrorRate float64                  `json:"server_error_rate"`
	TopPaths        []map[string]interface{} `json:"top_paths"`
}

type TimeSeriesData struct {
	Hour            time.Time `json:"hour"`
	Count           int64     `json:"count"`
	AvgResponseTime float64   `json:"avg_response_time"`
}

// Retrieves a usage summary for a time range
func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{}

	totalRequests, err := s.repo.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = totalRequests

	if totalRequests == 0 {
		return summary, nil
	}

	avgResponseTime, err := s.repo.GetAverageResponseTime(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgResponseTime = avgResponseTime

	p50, _ := s.repo.GetPercentile(ctx, from, to, 0.50)
	summary.P50ResponseTime = p50

	p95, _ := s.repo.GetPercentile(ctx, from, to, 0.95)
	summary.P95ResponseTime = p95

	p99, _ := s.repo.GetPercentile(ctx, from, to, 0.99)
	summary.P99ResponseTime = p99

	clientErrors, err := s.repo.CountByStatusCodeRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.repo.CountByStatusCodeRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	totalErrors := clientErrors + serverErrors
	summary.ErrorRate = (float64(totalErrors) / float64(totalRequests)) * 100
	summary.SuccessRate = 100 - summary.ErrorRate
	summary.ClientErrorRate = (float64(clientErrors) / float64(totalRequests)) * 100
	summary.ServerErrorRate = (float64(serverErrors) / float64(totalRequests)) * 100

	topPaths, err := s.repo.GetTopPaths(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}
	summary.TopPaths = topPaths

	return summary, nil
}

// Retrieves hourly time-series data
func (s *AnalyticsService) GetTimeSeriesData(ctx context.Context, from, to time.Time) ([]TimeSeriesData, error) {
	hourlyStats, err := s.repo.GetHourlyStats(ctx, from, to)
	if err != nil {
		return nil, err
	}

	timeSeries := make([]TimeSeriesData, 0, len(hourlyStats))
	for _, stat := range hourlyStats {
		timeSeries = append(timeSeries, TimeSeriesData{
			Hour:            stat["hour"].(time.Time),
			Count:           stat["count"].(int64),
			AvgResponseTime: stat["avg_response_time"].(float64),
		})
	}

	return timeSeries, nil
}

// Retrieves usage stats for a single product key
func (s *AnalyticsService) GetProductKeyStats(ctx context.Context, keyID uuid.UUID, from, to time.Time) (*AnalyticsSummary, error) {
	entries, err := s.repo.FindByProductKey(ctx, keyID, from, to, 10000, 0)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return &AnalyticsSummary{}, nil
	}

	summary := &AnalyticsSummary{
		TotalRequests: int64(len(entries)),
	}

	var totalResponseTime int64
	var clientErrors, serverErrors int64

	for _, entry := range entries {
		totalResponseTime += int64(entry.ResponseTimeMs)

		if entry.StatusCode >= 400 && entry.StatusCode <= 499 {
			clientErrors++
		}
		if entry.StatusCode >= 500 && entry.StatusCode <= 599 {
			serverErrors++
		}
	}
	summary.AvgResponseTime = float64(totalResponseTime) / float64(summary.TotalRequests)

	totalErrors := clientErrors + serverErrors
	summary.ErrorRate = (float64(totalErrors) / float64(summary.TotalRequests)) * 100
	summary.SuccessRate = 100 - summary.ErrorRate
	summary.ClientErrorRate = (float64(clientErrors) / float64(summary.TotalRequests)) * 100
	summary.ServerErrorRate = (float64(serverErrors) / float64(summary.TotalRequests)) * 100

	return summary, nil
}

// Retrieves raw ledger entries with pagination
func (s *AnalyticsService) GetLogs(ctx context.Context, from, to time.Time, limit, offset int) ([]interface{}, error) {
	entries, err := s.repo.FindByTimeRange(ctx, from, to, limit, offset)
	if err != nil {
		return nil, err
	}

	logs := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		logs = append(logs, entry)
	}

	return logs, nil
}
