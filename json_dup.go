package apimodel

import (
	"io"

	eng "github.com/reoring/apimodel/internal/engine"
)

// DetectJSONDuplicateKeysBytes detects duplicate keys in JSON byte slices using
// the current JSON driver. maxIssues < 0 means unlimited.
func DetectJSONDuplicateKeysBytes(data []byte, strict Strictness, maxIssues int) (Issues, error) {
	si, err := eng.DetectDuplicateKeysBytes(driverFactory(), data, toEngineDup(strict.OnDuplicateKey), maxIssues)
	if err != nil {
		return nil, err
	}
	return fromEngineIssues(si), nil
}

// DetectJSONDuplicateKeysReader detects duplicate keys from an io.Reader.
func DetectJSONDuplicateKeysReader(r io.Reader, strict Strictness, maxIssues int) (Issues, error) {
	si, err := eng.DetectDuplicateKeysReader(driverFactory(), r, toEngineDup(strict.OnDuplicateKey), maxIssues)
	if err != nil {
		return nil, err
	}
	return fromEngineIssues(si), nil
}

func driverFactory() eng.SourceFactory {
	d := CurrentJSONDriver()
	return func(r io.Reader) eng.TokenSource { return engineTokenSource(d.NewReader(r)) }
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}

func fromEngineIssues(si []eng.SimpleIssue) Issues {
	var iss Issues
	for _, s := range si {
		iss = AppendIssues(iss, Issue{Code: s.Code, Path: s.Path, Message: s.Message, Offset: -1})
	}
	return iss
}
