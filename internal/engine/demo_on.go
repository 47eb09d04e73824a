//go:build demomode

package engine

const insecureDemoEnabled = true
