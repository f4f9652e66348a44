// Package pipeline fans central sequence records out to analysis workers
// and hands the results back in input order.
//
// The pipeline knows nothing about scoring or output formats; callers pass
// an Analyzer and a visit function.
package pipeline
