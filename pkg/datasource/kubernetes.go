package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// KubernetesSource treats cluster nodes as the compute hosts. Utilization
// is node usage from metrics-server over node allocatable; storage is the
// provisioned PersistentVolume capacity.
type KubernetesSource struct {
	clientset     kubernetes.Interface
	metricsClient metricsv.Interface
	log           *zap.Logger
}

func NewKubernetesSource(clientset kubernetes.Interface, metricsClient metricsv.Interface, log *zap.Logger) *KubernetesSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &KubernetesSource{
		clientset:     clientset,
		metricsClient: metricsClient,
		log:           log,
	}
}

// NewKubernetesSourceFromKubeconfig builds clients from a kubeconfig path.
// An empty path tries in-cluster config, then ~/.kube/config. A positive
// timeout bounds every API request.
func NewKubernetesSourceFromKubeconfig(kubeconfig string, timeout time.Duration, log *zap.Logger) (*KubernetesSource, error) {
	config, err := restConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	return newKubernetesSourceFromConfig(config, timeout, log)
}

func newKubernetesSourceFromConfig(config *rest.Config, timeout time.Duration, log *zap.Logger) (*KubernetesSource, error) {
	if timeout > 0 {
		config.Timeout = timeout
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return NewKubernetesSource(clientset, metricsClient, log), nil
}

func restConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if config, err := rest.InClusterConfig(); err == nil {
			return config, nil
		}
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

func (k *KubernetesSource) Connect(ctx context.Context) error {
	info, err := k.serverVersion(ctx)
	if err != nil {
		return unavailable("connect to cluster", err)
	}
	k.log.Info("connected to cluster", zap.String("version", info.GitVersion))
	return nil
}

// serverVersion is Discovery().ServerVersion() bound to ctx
func (k *KubernetesSource) serverVersion(ctx context.Context) (*version.Info, error) {
	rc := k.clientset.Discovery().RESTClient()
	if rc == nil {
		// fake clientsets have no transport
		return k.clientset.Discovery().ServerVersion()
	}

	body, err := rc.Get().AbsPath("/version").Do(ctx).Raw()
	if err != nil {
		return nil, err
	}
	var info version.Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode server version: %w", err)
	}
	return &info, nil
}

func (k *KubernetesSource) FetchUtilization(ctx context.Context) (models.Utilization, error) {
	nodes, err := k.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.Utilization{}, unavailable("list nodes", err)
	}

	var allocCPU, allocMem float64
	for _, node := range nodes.Items {
		allocCPU += float64(node.Status.Allocatable.Cpu().MilliValue())
		allocMem += float64(node.Status.Allocatable.Memory().Value())
	}
	if allocCPU == 0 || allocMem == 0 {
		return models.Utilization{}, unavailable("node allocatable", fmt.Errorf("no allocatable capacity across %d nodes", len(nodes.Items)))
	}

	nodeMetrics, err := k.metricsClient.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.Utilization{}, unavailable("node metrics", err)
	}

	var usedCPU, usedMem float64
	for _, nm := range nodeMetrics.Items {
		usedCPU += float64(nm.Usage.Cpu().MilliValue())
		usedMem += float64(nm.Usage.Memory().Value())
	}

	return models.Utilization{
		CPUPercent: usedCPU / allocCPU * 100,
		RAMPercent: usedMem / allocMem * 100,
		Hosts:      len(nodes.Items),
		Instances:  k.runningPods(ctx),
	}, nil
}

// runningPods is best effort; the count only annotates the reading
func (k *KubernetesSource) runningPods(ctx context.Context) int {
	pods, err := k.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		k.log.Debug("failed to list pods", zap.Error(err))
		return 0
	}

	running := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}
	return running
}

func (k *KubernetesSource) FetchStorage(ctx context.Context) (models.StorageUsage, error) {
	pvs, err := k.clientset.CoreV1().PersistentVolumes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.StorageUsage{}, unavailable("list persistent volumes", err)
	}

	var totalBytes float64
	for _, pv := range pvs.Items {
		if capacity, ok := pv.Spec.Capacity[corev1.ResourceStorage]; ok {
			totalBytes += float64(capacity.Value())
		}
	}

	return models.StorageUsage{
		TotalGB: totalBytes / bytesPerGB,
		Volumes: len(pvs.Items),
	}, nil
}

func (k *KubernetesSource) Name() string {
	return "kubernetes"
}
