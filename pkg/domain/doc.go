package domain

// domain package contains the Domain Model types of the shiplane pipeline.
//
// `domain/domain.go` has the high-level entities: PipelineRun, StageResult,
// ModelEvaluation and the run context stages communicate through.
//
// `domain/ENTITY` directories hold the interfaces and the "physical"
// representations of each domain concern. For example, `domain/deploy`
// declares the Deployer interface, and `domain/deploy/k8s` implements it
// against a Kubernetes cluster.
