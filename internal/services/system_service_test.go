package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/pizza-hub/api/internal/domain"
)

type stubHealthRepo struct {
	report domain.SystemHealthReport
	err    error
}

func (r *stubHealthRepo) Collect(context.Context) (domain.SystemHealthReport, error) {
	if r.err != nil {
		return domain.SystemHealthReport{}, r.err
	}
	return r.report, nil
}

func TestHealthReportFillsBuildMetadata(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepo{report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
			},
		}},
		Clock: fixedClock(now),
		Build: BuildInfo{Version: "1.2.3", Environment: "staging"},
	})
	if err != nil {
		t.Fatalf("NewSystemService error: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport error: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok status, got %q", report.Status)
	}
	if report.Version != "1.2.3" || report.Environment != "staging" {
		t.Fatalf("expected build metadata, got %+v", report)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated timestamp %v, got %v", now, report.GeneratedAt)
	}
}

func TestHealthReportDerivesWorstStatus(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepo{report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"pubsub":    {Status: domain.HealthStatusError},
			},
		}},
	})
	if err != nil {
		t.Fatalf("NewSystemService error: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport error: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %q", report.Status)
	}
}
