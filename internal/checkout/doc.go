// Package checkout turns a multi-line checkout specification into repository checkouts.
//
// TargetParser reads lines shaped like "repoName[@ref] : location" into Targets owned by the run's
// organization. Dispatcher checks every Target out through a Cloner, isolating failures per target and
// joining all work before it returns a Summary. GitCloner is the go-git backed Cloner and WriteReport
// persists a Summary as YAML.
package checkout
