// Package workflow runs the checkout pipeline: it parses the step inputs, acquires an installation token,
// checks out every target, optionally writes an outcome report and optionally installs the token into the
// global git configuration. Operations run in order over one shared State; the first operation error is
// fatal while per-target checkout failures only mark the run as failed.
package workflow
