package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	k8stesting "k8s.io/client-go/testing"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

func node(name, cpu, memory string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse(cpu),
				corev1.ResourceMemory: resource.MustParse(memory),
			},
		},
	}
}

func pod(name string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func pv(name, size string) *corev1.PersistentVolume {
	return &corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{corev1.ResourceStorage: resource.MustParse(size)},
		},
	}
}

func nodeUsage(name, cpu, memory string) metricsv1beta1.NodeMetrics {
	return metricsv1beta1.NodeMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Usage: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(cpu),
			corev1.ResourceMemory: resource.MustParse(memory),
		},
	}
}

// fakeMetrics serves node metrics through a reactor; the generated fake
// tracker stores NodeMetrics under a resource name List does not query.
func fakeMetrics(items ...metricsv1beta1.NodeMetrics) *metricsfake.Clientset {
	client := metricsfake.NewSimpleClientset()
	client.PrependReactor("list", "*", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, &metricsv1beta1.NodeMetricsList{Items: items}, nil
	})
	return client
}

func TestKubernetesSourceUtilization(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		node("node-a", "4", "8Gi"),
		node("node-b", "4", "8Gi"),
		pod("web-1", corev1.PodRunning),
		pod("web-2", corev1.PodRunning),
		pod("job-1", corev1.PodSucceeded),
	)
	metrics := fakeMetrics(
		nodeUsage("node-a", "2", "4Gi"),
		nodeUsage("node-b", "1", "2Gi"),
	)

	src := NewKubernetesSource(clientset, metrics, nil)
	ctx := context.Background()
	require.NoError(t, src.Connect(ctx))

	u, err := src.FetchUtilization(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 37.5, u.CPUPercent, 1e-9)
	assert.InDelta(t, 37.5, u.RAMPercent, 1e-9)
	assert.Equal(t, 2, u.Hosts)
	assert.Equal(t, 2, u.Instances)
	assert.Equal(t, "kubernetes", src.Name())
}

func TestKubernetesSourceNoNodes(t *testing.T) {
	src := NewKubernetesSource(fake.NewSimpleClientset(), fakeMetrics(), nil)

	_, err := src.FetchUtilization(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestKubernetesSourceMetricsServerDown(t *testing.T) {
	metrics := metricsfake.NewSimpleClientset()
	metrics.PrependReactor("list", "*", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("the server is currently unable to handle the request")
	})

	src := NewKubernetesSource(fake.NewSimpleClientset(node("node-a", "2", "4Gi")), metrics, nil)

	_, err := src.FetchUtilization(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestKubernetesSourceStorage(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		pv("data-0", "100Gi"),
		pv("data-1", "50Gi"),
		pv("scratch", "512Mi"),
	)

	src := NewKubernetesSource(clientset, fakeMetrics(), nil)

	s, err := src.FetchStorage(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 150.5, s.TotalGB, 1e-9)
	assert.Equal(t, 3, s.Volumes)
}

// fakeAPIServer answers /version, or hangs until the request is abandoned
// when hang is set.
func fakeAPIServer(t *testing.T, hang bool) *rest.Config {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hang {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		if r.URL.Path != "/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"major":"1","minor":"31","gitVersion":"v1.31.0"}`)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return &rest.Config{Host: srv.URL}
}

func TestKubernetesConnectReadsServerVersion(t *testing.T) {
	src, err := newKubernetesSourceFromConfig(fakeAPIServer(t, false), 0, nil)
	require.NoError(t, err)

	info, err := src.serverVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.31.0", info.GitVersion)
	assert.NoError(t, src.Connect(context.Background()))
}

func TestKubernetesConnectHonoursContext(t *testing.T) {
	src, err := newKubernetesSourceFromConfig(fakeAPIServer(t, true), 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = src.Connect(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestKubernetesRequestTimeout(t *testing.T) {
	src, err := newKubernetesSourceFromConfig(fakeAPIServer(t, true), 50*time.Millisecond, nil)
	require.NoError(t, err)

	start := time.Now()
	err = src.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second, "rest config timeout should bound the request")
}
