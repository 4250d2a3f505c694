// Package fileutil holds small file helpers shared by the pipeline: verified
// atomic copies for passthrough output and existence checks for inputs.
package fileutil
