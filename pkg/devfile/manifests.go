package devfile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// OwningInventoryAnnotation marks every generated resource with the
	// inventory it belongs to, so the agent-side applier can prune
	// resources that disappear from later configs.
	OwningInventoryAnnotation = "config.k8s.io/owning-inventory"

	// InventoryIDLabel identifies the inventory ConfigMap itself.
	InventoryIDLabel = "cli-utils.sigs.k8s.io/inventory-id"

	// portPlaceholder is substituted per exposed endpoint to build
	// per-port hostnames from the domain template.
	portPlaceholder = "{{.port}}"
)

// GenerateOptions are the placement parameters for manifest generation.
type GenerateOptions struct {
	Name      string
	Namespace string

	// Replicas is 1 for a started workspace and 0 for a stopped one.
	// Nothing else about the generated config differs between the two.
	Replicas int32

	// DomainTemplate is the hostname pattern for exposed endpoints, with
	// "{{.port}}" substituted by each endpoint's target port, e.g.
	// "{{.port}}-workspace-abc.workspaces.example.dev".
	DomainTemplate string

	Labels      map[string]string
	Annotations map[string]string
}

// GenerateAll turns a processed devfile into the ordered list of Kubernetes
// manifests for one workspace: Deployment, Service, one Ingress per public
// endpoint, one PersistentVolumeClaim per volume component, and the
// inventory ConfigMap last. The output is deterministic for identical
// inputs; downstream appliers compare configs byte for byte.
func GenerateAll(df *Devfile, opts GenerateOptions) ([]runtime.Object, error) {
	inventoryName := opts.Name + "-workspace-inventory"

	labels := copyMap(opts.Labels)
	annotations := copyMap(opts.Annotations)
	annotations[OwningInventoryAnnotation] = inventoryName

	var objects []runtime.Object

	deployment, err := generateDeployment(df, opts, labels, annotations)
	if err != nil {
		return nil, err
	}
	objects = append(objects, deployment)

	if svc := generateService(df, opts, labels, annotations); svc != nil {
		objects = append(objects, svc)
	}

	objects = append(objects, generateIngresses(df, opts, labels, annotations)...)

	pvcs, err := generateVolumeClaims(df, opts, labels, annotations)
	if err != nil {
		return nil, err
	}
	objects = append(objects, pvcs...)

	inventoryLabels := copyMap(labels)
	inventoryLabels[InventoryIDLabel] = inventoryName
	objects = append(objects, &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        inventoryName,
			Namespace:   opts.Namespace,
			Labels:      inventoryLabels,
			Annotations: copyMap(opts.Annotations),
		},
	})

	return objects, nil
}

// Marshal serializes manifests to JSON documents in order. Used to build
// the config_to_apply field of a reconcile response.
func Marshal(objects []runtime.Object) ([]json.RawMessage, error) {
	docs := make([]json.RawMessage, 0, len(objects))
	for _, obj := range objects {
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal manifest: %w", err)
		}
		docs = append(docs, data)
	}
	return docs, nil
}

func generateDeployment(df *Devfile, opts GenerateOptions, labels, annotations map[string]string) (*appsv1.Deployment, error) {
	var containers []corev1.Container
	for _, component := range df.Components {
		if component.Container == nil {
			continue
		}
		container, err := generateContainer(component.Name, component.Container)
		if err != nil {
			return nil, err
		}
		containers = append(containers, container)
	}

	replicas := opts.Replicas
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        opts.Name,
			Namespace:   opts.Namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: copyMap(opts.Labels)},
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      labels,
					Annotations: annotations,
				},
				Spec: corev1.PodSpec{
					Containers: containers,
					Volumes:    generatePodVolumes(df, opts),
				},
			},
		},
	}, nil
}

func generateContainer(name string, c *Container) (corev1.Container, error) {
	resources, err := generateResources(c)
	if err != nil {
		return corev1.Container{}, fmt.Errorf("component %s: %w", name, err)
	}

	var env []corev1.EnvVar
	for _, e := range c.Env {
		env = append(env, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}

	var ports []corev1.ContainerPort
	for _, ep := range c.Endpoints {
		ports = append(ports, corev1.ContainerPort{
			Name:          ep.Name,
			ContainerPort: int32(ep.TargetPort),
			Protocol:      corev1.ProtocolTCP,
		})
	}

	var mounts []corev1.VolumeMount
	for _, m := range c.VolumeMounts {
		mounts = append(mounts, corev1.VolumeMount{Name: m.Name, MountPath: m.Path})
	}

	return corev1.Container{
		Name:         name,
		Image:        c.Image,
		Command:      c.Command,
		Args:         c.Args,
		Env:          env,
		Ports:        ports,
		VolumeMounts: mounts,
		Resources:    resources,
	}, nil
}

func generateResources(c *Container) (corev1.ResourceRequirements, error) {
	requirements := corev1.ResourceRequirements{
		Limits:   corev1.ResourceList{},
		Requests: corev1.ResourceList{},
	}
	for _, spec := range []struct {
		raw  string
		list corev1.ResourceList
		name corev1.ResourceName
	}{
		{c.MemoryLimit, requirements.Limits, corev1.ResourceMemory},
		{c.MemoryRequest, requirements.Requests, corev1.ResourceMemory},
		{c.CPULimit, requirements.Limits, corev1.ResourceCPU},
		{c.CPURequest, requirements.Requests, corev1.ResourceCPU},
	} {
		if spec.raw == "" {
			continue
		}
		quantity, err := resource.ParseQuantity(spec.raw)
		if err != nil {
			return requirements, fmt.Errorf("invalid %s quantity %q: %w", spec.name, spec.raw, err)
		}
		spec.list[spec.name] = quantity
	}
	if len(requirements.Limits) == 0 {
		requirements.Limits = nil
	}
	if len(requirements.Requests) == 0 {
		requirements.Requests = nil
	}
	return requirements, nil
}

func generateService(df *Devfile, opts GenerateOptions, labels, annotations map[string]string) *corev1.Service {
	var ports []corev1.ServicePort
	for _, component := range df.Components {
		if component.Container == nil {
			continue
		}
		for _, ep := range component.Container.Endpoints {
			if ep.Exposure == "none" {
				continue
			}
			ports = append(ports, corev1.ServicePort{
				Name:       ep.Name,
				Port:       int32(ep.TargetPort),
				TargetPort: intstr.FromInt32(int32(ep.TargetPort)),
				Protocol:   corev1.ProtocolTCP,
			})
		}
	}
	if len(ports) == 0 {
		return nil
	}

	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        opts.Name,
			Namespace:   opts.Namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: corev1.ServiceSpec{
			Selector: copyMap(opts.Labels),
			Ports:    ports,
		},
	}
}

func generateIngresses(df *Devfile, opts GenerateOptions, labels, annotations map[string]string) []runtime.Object {
	pathType := networkingv1.PathTypePrefix

	var ingresses []runtime.Object
	for _, component := range df.Components {
		if component.Container == nil {
			continue
		}
		for _, ep := range component.Container.Endpoints {
			if !ep.Public() {
				continue
			}
			host := strings.ReplaceAll(opts.DomainTemplate, portPlaceholder, strconv.Itoa(ep.TargetPort))
			ingresses = append(ingresses, &networkingv1.Ingress{
				TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
				ObjectMeta: metav1.ObjectMeta{
					Name:        opts.Name + "-" + ep.Name,
					Namespace:   opts.Namespace,
					Labels:      labels,
					Annotations: annotations,
				},
				Spec: networkingv1.IngressSpec{
					Rules: []networkingv1.IngressRule{{
						Host: host,
						IngressRuleValue: networkingv1.IngressRuleValue{
							HTTP: &networkingv1.HTTPIngressRuleValue{
								Paths: []networkingv1.HTTPIngressPath{{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: opts.Name,
											Port: networkingv1.ServiceBackendPort{Number: int32(ep.TargetPort)},
										},
									},
								}},
							},
						},
					}},
				},
			})
		}
	}
	return ingresses
}

func generateVolumeClaims(df *Devfile, opts GenerateOptions, labels, annotations map[string]string) ([]runtime.Object, error) {
	var claims []runtime.Object
	for _, component := range df.Components {
		if component.Volume == nil {
			continue
		}
		size := component.Volume.Size
		if size == "" {
			size = "1Gi"
		}
		quantity, err := resource.ParseQuantity(size)
		if err != nil {
			return nil, fmt.Errorf("component %s: invalid volume size %q: %w", component.Name, size, err)
		}
		claims = append(claims, &corev1.PersistentVolumeClaim{
			TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
			ObjectMeta: metav1.ObjectMeta{
				Name:        opts.Name + "-" + component.Name,
				Namespace:   opts.Namespace,
				Labels:      labels,
				Annotations: annotations,
			},
			Spec: corev1.PersistentVolumeClaimSpec{
				AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
				Resources: corev1.VolumeResourceRequirements{
					Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
				},
			},
		})
	}
	return claims, nil
}

func generatePodVolumes(df *Devfile, opts GenerateOptions) []corev1.Volume {
	var volumes []corev1.Volume
	for _, component := range df.Components {
		if component.Volume == nil {
			continue
		}
		volumes = append(volumes, corev1.Volume{
			Name: component.Name,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: opts.Name + "-" + component.Name,
				},
			},
		})
	}
	return volumes
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
