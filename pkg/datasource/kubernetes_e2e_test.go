//go:build e2e
// +build e2e

package datasource

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"go.uber.org/zap"
)

// These tests need a reachable cluster in ~/.kube/config with metrics-server.
// Run: go test -tags e2e ./pkg/datasource/

func realKubernetesSource(t *testing.T) *KubernetesSource {
	t.Helper()

	src, err := NewKubernetesSourceFromKubeconfig("", 30*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to build kubernetes source: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := src.Connect(ctx); err != nil {
		t.Fatalf("Failed to connect to cluster: %v", err)
	}
	return src
}

func TestRealClusterUtilization(t *testing.T) {
	src := realKubernetesSource(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := src.FetchUtilization(ctx)
	if err != nil {
		t.Fatalf("FetchUtilization failed: %v", err)
	}
	if u.Hosts == 0 {
		t.Fatal("No nodes found in cluster")
	}
	if u.CPUPercent < 0 || u.CPUPercent > 100 {
		t.Errorf("Expected cpu percent in [0,100], got %.2f", u.CPUPercent)
	}
	if u.RAMPercent < 0 || u.RAMPercent > 100 {
		t.Errorf("Expected ram percent in [0,100], got %.2f", u.RAMPercent)
	}

	t.Logf("✓ %d node(s), %d running pod(s): cpu %.1f%%, ram %.1f%%",
		u.Hosts, u.Instances, u.CPUPercent, u.RAMPercent)
}

func TestRealClusterStorage(t *testing.T) {
	src := realKubernetesSource(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := src.FetchStorage(ctx)
	if err != nil {
		t.Fatalf("FetchStorage failed: %v", err)
	}
	if s.TotalGB < 0 {
		t.Errorf("Expected non-negative storage, got %.2f", s.TotalGB)
	}

	t.Logf("✓ %d volume(s), %.1f GB provisioned", s.Volumes, s.TotalGB)
}

func TestCollectCLIAgainstCluster(t *testing.T) {
	t.Log("Building forecaster...")
	build := exec.Command("go", "build", "-o", "../../bin/forecaster", "../../cmd/forecaster")
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Build failed: %v\n%s", err, output)
	}

	cmd := exec.Command("../../bin/forecaster", "collect", "--source", "kubernetes", "--log-level", "error", "-o", "json")
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("CLI failed: %v", err)
	}

	var rounds []struct {
		Connected bool `json:"connected"`
		Readings  []struct {
			Metric string `json:"metric"`
			Source string `json:"source"`
		} `json:"readings"`
	}
	if err := json.Unmarshal(output, &rounds); err != nil {
		t.Fatalf("Failed to decode CLI output: %v\n%s", err, output)
	}
	if len(rounds) != 1 {
		t.Fatalf("Expected 1 round, got %d", len(rounds))
	}
	if !rounds[0].Connected {
		t.Error("Expected the round to connect to the cluster")
	}
	for _, r := range rounds[0].Readings {
		if r.Metric != "storage" && r.Source != "real" {
			t.Errorf("Expected a real %s reading, got %s", r.Metric, r.Source)
		}
	}

	t.Log("✓ Collected a real round from the cluster")
}
