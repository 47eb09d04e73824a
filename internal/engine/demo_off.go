//go:build !demomode

package engine

// Insecure-demo matches park every player's cipher secret in plain state.
// That is only tolerable for local debugging, so the capability is compiled
// out unless the demomode tag is set.
const insecureDemoEnabled = false
