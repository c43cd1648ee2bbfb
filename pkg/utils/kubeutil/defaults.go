// Package kubeutil resolves how this process reaches its cluster.
package kubeutil

import (
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// ConnectToK8s builds a *kubernetes.Clientset.
//
// The kubeconfig is taken from, in increasing priority: `~/.kube/config`,
// the environment variable `KUBECONFIG`, and the first existing file of
// searchPath. When none of them names a file, the in-cluster config is
// used, so a pod running shiplaned needs no kubeconfig at all.
func ConnectToK8s(searchPath ...string) (*kubernetes.Clientset, error) {
	kubeconfig := ""

	if home := homedir.HomeDir(); home != "" {
		if p := filepath.Join(home, ".kube", "config"); isFile(p) {
			kubeconfig = p
		}
	}
	if k := os.Getenv("KUBECONFIG"); isFile(k) {
		kubeconfig = k
	}
	for _, p := range searchPath {
		if isFile(p) {
			kubeconfig = p
			break
		}
	}

	var config *rest.Config
	var err error
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(config)
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	s, err := os.Stat(path)
	return err == nil && !s.IsDir()
}
