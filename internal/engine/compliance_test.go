package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

func TestComplianceEngine_UnprotectedBucket(t *testing.T) {
	e := NewDefaultComplianceEngine(nil, zerolog.Nop())
	p := newPlan(created("aws_s3_bucket", "data", map[string]any{"bucket": "acme-data"}))

	res, err := e.Analyze(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string]models.Finding{}
	for _, f := range res.Findings {
		got[f.RuleID] = f
	}
	for _, id := range []string{"COMP_S3_ENCRYPTION", "COMP_S3_PUBLIC_ACCESS_BLOCK"} {
		f, ok := got[id]
		if !ok {
			t.Errorf("missing finding %s; got %v", id, ruleIDs(res.Findings))
			continue
		}
		if f.Severity != models.SeverityHigh {
			t.Errorf("%s severity = %q; want high", id, f.Severity)
		}
		if f.Resource != "aws_s3_bucket.data" {
			t.Errorf("%s resource = %q; want aws_s3_bucket.data", id, f.Resource)
		}
		if f.Kind != models.KindCompliance {
			t.Errorf("%s kind = %q; want compliance", id, f.Kind)
		}
	}

	// (10 + 10) / 1 resource
	if res.Score != 80.0 {
		t.Errorf("score = %.1f; want 80.0", res.Score)
	}
	if res.DimensionScores["SOC2"] != 80.0 {
		t.Errorf("SOC2 = %.1f; want 80.0", res.DimensionScores["SOC2"])
	}
	if res.DimensionScores["HIPAA"] != 100 || res.DimensionScores["GDPR"] != 100 {
		t.Errorf("HIPAA/GDPR = %.1f/%.1f; want 100/100", res.DimensionScores["HIPAA"], res.DimensionScores["GDPR"])
	}
}

func TestComplianceEngine_CompanionResourcesSatisfyControls(t *testing.T) {
	e := NewDefaultComplianceEngine(nil, zerolog.Nop())
	bucket := created("aws_s3_bucket", "data", map[string]any{"bucket": "acme-data"})
	p := newPlan(
		bucket,
		created("aws_s3_bucket_server_side_encryption_configuration", "data", map[string]any{"bucket": "acme-data"}),
		created("aws_s3_bucket_public_access_block", "data", map[string]any{
			"bucket":                  "acme-data",
			"block_public_acls":       true,
			"block_public_policy":     true,
			"ignore_public_acls":      true,
			"restrict_public_buckets": true,
		}),
	)

	res, err := e.Analyze(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 0 {
		t.Errorf("want no findings, got %v", ruleIDs(res.Findings))
	}
}

func TestComplianceEngine_FrameworkSelection(t *testing.T) {
	e := NewDefaultComplianceEngine(nil, zerolog.Nop())
	p := newPlan(
		created("aws_s3_bucket", "data", map[string]any{"bucket": "acme-data"}),
		created("aws_db_instance", "db", map[string]any{"storage_encrypted": false}),
	)

	res, err := e.Analyze(context.Background(), p, Options{Frameworks: []string{"hipaa", "HIPAA"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range res.Findings {
		if f.Framework != "HIPAA" {
			t.Errorf("finding %s has framework %q; only HIPAA was requested", f.RuleID, f.Framework)
		}
	}
	if len(res.Findings) == 0 {
		t.Fatal("want the HIPAA RDS encryption finding")
	}
	if len(res.DimensionScores) != 1 {
		t.Errorf("dimension scores = %v; want only HIPAA", res.DimensionScores)
	}
}

func TestComplianceEngine_DimensionScoresNotNormalized(t *testing.T) {
	// Two resources, one high finding each, both SOC2: the overall score is
	// normalised by resource count, the framework score is not.
	e := NewDefaultComplianceEngine(nil, zerolog.Nop())
	p := newPlan(
		created("aws_cloudtrail", "a", map[string]any{"is_multi_region_trail": false, "enable_log_file_validation": true}),
		created("aws_cloudtrail", "b", map[string]any{"is_multi_region_trail": false, "enable_log_file_validation": true}),
	)

	res, err := e.Analyze(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Findings) != 2 {
		t.Fatalf("want 2 findings, got %v", ruleIDs(res.Findings))
	}
	// medium = 5 each: overall 100 - 10/2, SOC2 100 - 10
	if res.Score != 95.0 {
		t.Errorf("score = %.1f; want 95.0", res.Score)
	}
	if res.DimensionScores["SOC2"] != 90.0 {
		t.Errorf("SOC2 = %.1f; want 90.0", res.DimensionScores["SOC2"])
	}
}

func TestNormalizeFrameworks(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{nil, []string{"SOC2", "HIPAA", "GDPR"}},
		{[]string{" ", ""}, []string{"SOC2", "HIPAA", "GDPR"}},
		{[]string{"gdpr", "soc2", "GDPR"}, []string{"GDPR", "SOC2"}},
	}
	for _, tt := range tests {
		got := normalizeFrameworks(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("normalizeFrameworks(%v) = %v; want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("normalizeFrameworks(%v) = %v; want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}
