// Package model contains the shared interfaces and data structures.
//
// This package should only contain interfaces shared by several packages
// within the codebase, with the objective of separating unrelated pieces
// of code and making unit testing easier.
//
// # Content of this package
//
// - logger.go: generic definition of an apex/log compatible logger,
// used in several places across the codebase;
//
// - tor.go: the view of tor's embeddable API that the launcher uses to
// configure, run and query the daemon.
package model
