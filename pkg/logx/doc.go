// Package logx is a thin structured logging layer over zerolog.
//
// It exists so services can hold a long-lived Logger while the
// underlying sinks (console, file) and level are swapped at runtime
// when the config file changes.
package logx
