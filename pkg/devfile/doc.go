/*
Package devfile turns processed devfiles into Kubernetes manifests.

A processed devfile is the flattened component list a workspace was created
from; parent and plugin resolution happen upstream, so this package only
deals with container and volume components.

GenerateAll produces the complete manifest set for one workspace in a fixed
order:

 1. Deployment (one container per container component)
 2. Service (one port per endpoint)
 3. Ingress per public endpoint, host built from the domain template
 4. PersistentVolumeClaim per volume component
 5. inventory ConfigMap (always last)

Every resource carries the config.k8s.io/owning-inventory annotation
pointing at the inventory ConfigMap, which lets the agent-side applier
prune resources that drop out of later configs.

Generation is pure and deterministic: identical inputs produce identical
manifest lists, which matters because agents compare configs byte for byte
before reapplying. The only input that varies between a started and a
stopped workspace is the Deployment replica count (1 vs 0).
*/
package devfile
