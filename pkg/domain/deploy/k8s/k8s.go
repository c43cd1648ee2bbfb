// Package k8s implements deploy.Deployer against a Kubernetes cluster.
//
// An upgrade rewrites the pod template of the target Deployment (new
// image, new model version annotation) and waits for the rollout to
// complete. A rollout that does not complete within the deadline is
// rolled back to the pod template captured before the upgrade.
package k8s

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"

	"github.com/cardops/shiplane/pkg/domain/deploy"
	xe "github.com/cardops/shiplane/pkg/errors"
	"github.com/cardops/shiplane/pkg/utils/retry"
)

const (
	// RevisionAnnotation is maintained by the deployment controller.
	RevisionAnnotation = "deployment.kubernetes.io/revision"

	// ModelVersionAnnotation marks the pod template with the model
	// version it serves. Changing it forces a new revision even when
	// the image reference happens to be unchanged.
	ModelVersionAnnotation = "shiplane.cardops.io/model-version"
)

type ClusterClient interface {
	GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
	UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
}

// A wrapper for the type k8s.Clientset; because it does not prefer method chain-style invocations of that type.
type clusterClient struct {
	client *k8s.Clientset
}

var _ ClusterClient = &clusterClient{}

func WrapClientset(c *k8s.Clientset) ClusterClient {
	return &clusterClient{client: c}
}

func (k *clusterClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *clusterClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Update(ctx, depl, kubeapimeta.UpdateOptions{})
}

// Requirement is a readiness predicate over a polled resource.
//
// Return nil when the value satisfies the requirement, retry.ErrRetry
// to be asked again, and any other error to stop waiting.
type Requirement[T any] func(value T) error

// RolloutComplete requires that the deployment controller has observed
// generation and made the new revision fully available.
func RolloutComplete(generation int64) Requirement[*kubeapps.Deployment] {
	return func(value *kubeapps.Deployment) error {
		if value.Status.ObservedGeneration < generation {
			return retry.ErrRetry
		}
		replicas := int32(1)
		if value.Spec.Replicas != nil {
			replicas = *value.Spec.Replicas
		}
		if value.Status.UpdatedReplicas < replicas ||
			value.Status.AvailableReplicas < replicas {
			return retry.ErrRetry
		}
		return nil
	}
}

type deployer struct {
	client       ClusterClient
	timeout      time.Duration
	pollInterval time.Duration
	container    string
	logger       *log.Logger

	mu      sync.Mutex
	targets map[string]*sync.Mutex
}

var _ deploy.Deployer = &deployer{}

type Option func(*deployer) *deployer

// WithTimeout bounds the readiness wait of an upgrade. The rollback of
// a failed upgrade gets the same budget on a fresh clock.
func WithTimeout(timeout time.Duration) Option {
	return func(d *deployer) *deployer {
		d.timeout = timeout
		return d
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(d *deployer) *deployer {
		d.pollInterval = interval
		return d
	}
}

// WithContainer selects the container whose image is replaced.
// By default the first container of the pod template is taken.
func WithContainer(name string) Option {
	return func(d *deployer) *deployer {
		d.container = name
		return d
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(d *deployer) *deployer {
		d.logger = logger
		return d
	}
}

func New(client ClusterClient, options ...Option) *deployer {
	d := &deployer{
		client:       client,
		timeout:      5 * time.Minute,
		pollInterval: 5 * time.Second,
		logger:       log.Default(),
		targets:      map[string]*sync.Mutex{},
	}
	for _, opt := range options {
		d = opt(d)
	}
	return d
}

// lockFor serializes deploys per target.
func (d *deployer) lockFor(target deploy.Target) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.targets[target.String()]; ok {
		return l
	}
	l := &sync.Mutex{}
	d.targets[target.String()] = l
	return l
}

func (d *deployer) Deploy(ctx context.Context, target deploy.Target, imageRef string, modelVersion string) (deploy.Record, error) {
	lock := d.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	record := deploy.Record{
		Target: target, ImageRef: imageRef, ModelVersion: modelVersion,
	}

	current, err := d.client.GetDeployment(ctx, target.Namespace, target.Name)
	if err != nil {
		// nothing is mutated yet, so there is nothing to roll back.
		return record, xe.Wrap(deploy.Failure{Target: target, Record: record, Cause: err})
	}
	record.PreviousRevision = current.Annotations[RevisionAnnotation]
	previousTemplate := current.Spec.Template.DeepCopy()

	updated := current.DeepCopy()
	if err := d.rewriteTemplate(updated, imageRef, modelVersion); err != nil {
		// still untouched; updating a template we could not rewrite
		// would roll out a revision that does not carry imageRef.
		return record, xe.Wrap(deploy.Failure{Target: target, Record: record, Cause: err})
	}

	applied, err := d.client.UpdateDeployment(ctx, target.Namespace, updated)
	if err != nil {
		record.RolledBack = d.rollback(target, previousTemplate)
		return record, xe.Wrap(deploy.Failure{Target: target, Record: record, Mutated: true, Cause: err})
	}

	settled, err := d.waitRollout(ctx, target, applied.Generation)
	if settled != nil {
		record.NewRevision = settled.Annotations[RevisionAnnotation]
	}
	if err != nil {
		record.RolledBack = d.rollback(target, previousTemplate)
		return record, xe.Wrap(deploy.Failure{Target: target, Record: record, Mutated: true, Cause: err})
	}

	record.Atomic = true
	return record, nil
}

func (d *deployer) rewriteTemplate(depl *kubeapps.Deployment, imageRef string, modelVersion string) error {
	containers := depl.Spec.Template.Spec.Containers
	found := -1
	for i := range containers {
		if d.container == "" || containers[i].Name == d.container {
			found = i
			break
		}
	}
	if found < 0 {
		if d.container == "" {
			return fmt.Errorf("the pod template of %s/%s has no containers", depl.Namespace, depl.Name)
		}
		return fmt.Errorf("the pod template of %s/%s has no container named %s", depl.Namespace, depl.Name, d.container)
	}

	if depl.Spec.Template.Annotations == nil {
		depl.Spec.Template.Annotations = map[string]string{}
	}
	depl.Spec.Template.Annotations[ModelVersionAnnotation] = modelVersion
	containers[found].Image = imageRef
	return nil
}

// waitRollout polls the deployment until generation is rolled out,
// bounded by the configured timeout.
func (d *deployer) waitRollout(ctx context.Context, target deploy.Target, generation int64) (*kubeapps.Deployment, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ready := RolloutComplete(generation)
	return retry.Blocking(
		waitCtx, retry.StaticBackoff(d.pollInterval),
		func() (*kubeapps.Deployment, error) {
			depl, err := d.client.GetDeployment(waitCtx, target.Namespace, target.Name)
			if err != nil {
				return nil, err
			}
			return depl, ready(depl)
		},
	)
}

// rollback restores the captured pod template and waits for it to be
// rolled out again. It runs detached from the caller's context, so a
// cancelled run cannot abandon the cluster mid-upgrade.
func (d *deployer) rollback(target deploy.Target, previous *kubecore.PodTemplateSpec) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	current, err := d.client.GetDeployment(ctx, target.Namespace, target.Name)
	if err != nil {
		d.logger.Printf("rollback of %s failed: cannot read the deployment: %v", target, err)
		return false
	}
	restored := current.DeepCopy()
	restored.Spec.Template = *previous.DeepCopy()

	applied, err := d.client.UpdateDeployment(ctx, target.Namespace, restored)
	if err != nil {
		d.logger.Printf("rollback of %s failed: cannot restore the previous template: %v", target, err)
		return false
	}

	ready := RolloutComplete(applied.Generation)
	if _, err := retry.Blocking(
		ctx, retry.StaticBackoff(d.pollInterval),
		func() (*kubeapps.Deployment, error) {
			depl, err := d.client.GetDeployment(ctx, target.Namespace, target.Name)
			if err != nil {
				return nil, err
			}
			return depl, ready(depl)
		},
	); err != nil {
		d.logger.Printf("rollback of %s is applied but not confirmed ready: %v", target, err)
		return false
	}
	return true
}
