package deploy

import (
	"context"
	"sync"
)

// Lazy wraps a Deployer that is expensive to build, deferring the
// build until the first Deploy call.
//
// Runs on review branches never reach the deploy stage, so a pipeline
// wrapped this way can go through without any cluster access at hand.
func Lazy(build func() (Deployer, error)) Deployer {
	return &lazy{build: build}
}

type lazy struct {
	once  sync.Once
	build func() (Deployer, error)

	deployer Deployer
	err      error
}

func (l *lazy) Deploy(ctx context.Context, target Target, imageRef string, modelVersion string) (Record, error) {
	l.once.Do(func() {
		l.deployer, l.err = l.build()
	})
	if l.err != nil {
		return Record{}, l.err
	}
	return l.deployer.Deploy(ctx, target, imageRef, modelVersion)
}
