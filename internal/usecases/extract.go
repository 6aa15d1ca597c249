package usecases

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ryanuber/go-glob"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// pushPayload holds the fields of a push notification the observer reads.
type pushPayload struct {
	Ref        string `json:"ref"`
	HeadCommit *struct {
		Modified []string `json:"modified"`
	} `json:"head_commit"`
}

// ExtractPushEvent decodes an authenticated body into a PushEvent.
//
// When branchPattern is non-empty and the branch does not match it, the returned
// error wraps domain.ErrBranchFiltered. That is an expected outcome, not a failure.
// A body that is not a JSON object yields domain.ErrMalformedPayload; a missing
// head commit or file list yields an empty ModifiedFiles.
func ExtractPushEvent(body []byte, branchPattern string) (*domain.PushEvent, error) {
	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
	}

	branch := strings.TrimPrefix(payload.Ref, domain.BranchRefPrefix)
	if branchPattern != "" && !WildcardMatch(branch, branchPattern) {
		return nil, fmt.Errorf("%w: branch %q, pattern %q", domain.ErrBranchFiltered, branch, branchPattern)
	}

	modified := []string{}
	if payload.HeadCommit != nil && payload.HeadCommit.Modified != nil {
		modified = payload.HeadCommit.Modified
	}

	return &domain.PushEvent{
		Branch:        branch,
		ModifiedFiles: modified,
	}, nil
}

// WildcardMatch reports whether name matches pattern, where '*' stands for any
// (possibly empty) run of characters and every other character is literal.
// The whole name must match.
func WildcardMatch(name, pattern string) bool {
	return glob.Glob(pattern, name)
}
