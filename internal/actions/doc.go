// Package actions adapts the CI runner to the rest of the tool.
//
// RunContext wraps the GitHub Actions workflow command protocol: step inputs,
// secret masking, error annotations and step outputs. RunnerEnvironment
// captures the ambient GITHUB_* variables describing the repository that
// triggered the run.
package actions
