package engine

import (
	"bytes"
	"io"
)

// DuplicateStrictness controls duplicate key handling in detection helpers.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// SourceFactory builds a TokenSource over a reader. Callers pass the JSON driver in use.
type SourceFactory func(r io.Reader) TokenSource

// DetectDuplicateKeysBytes detects duplicate object keys from a byte slice.
// If onDup is DupIgnore, no issues are produced. maxIssues < 0 means unlimited; 0 means disabled; >0 sets limit.
func DetectDuplicateKeysBytes(newSource SourceFactory, data []byte, onDup DuplicateStrictness, maxIssues int) ([]SimpleIssue, error) {
	return DetectDuplicateKeysReader(newSource, bytes.NewReader(data), onDup, maxIssues)
}

// DetectDuplicateKeysReader detects duplicate object keys from an io.Reader.
// The reader is consumed fully unless onDup is DupError and a duplicate is found.
func DetectDuplicateKeysReader(newSource SourceFactory, r io.Reader, onDup DuplicateStrictness, maxIssues int) ([]SimpleIssue, error) {
	if onDup == DupIgnore || maxIssues == 0 {
		return nil, nil
	}
	var issues []SimpleIssue
	truncated := false
	sink := func(si SimpleIssue) {
		if truncated {
			return
		}
		issues = append(issues, si)
		if maxIssues > 0 && len(issues) >= maxIssues {
			issues = append(issues, SimpleIssue{Code: codeTruncated, Path: "/", Message: "max issues reached"})
			truncated = true
		}
	}
	// scan in warn mode; DupError stops after the first report
	src := WrapWithEnforcement(newSource(r), EnforceOptions{OnDuplicate: DupWarn, IssueSink: sink})
	for {
		_, err := src.NextToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			sink(SimpleIssue{Code: codeParseError, Path: "/", Message: err.Error()})
			break
		}
		if onDup == DupError && len(issues) > 0 {
			break
		}
	}
	return issues, nil
}
